package profile

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/priyanshp28/noteZipper/internal/http/middleware"
	"github.com/priyanshp28/noteZipper/internal/httputil"
	"github.com/priyanshp28/noteZipper/pkg/auth"
	"github.com/priyanshp28/noteZipper/pkg/domain"
)

// Handler handles the profile endpoints of a signed-in account.
type Handler struct {
	logger   *slog.Logger
	accounts *auth.AccountService
}

// NewHandler creates a new profile handler.
func NewHandler(logger *slog.Logger, accounts *auth.AccountService) *Handler {
	return &Handler{
		logger:   logger,
		accounts: accounts,
	}
}

// EditUserRequest represents a profile update. Empty fields are left unchanged.
type EditUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// FindUserRequest represents a lookup by email.
type FindUserRequest struct {
	Email string `json:"email"`
}

// Response is the envelope of profile responses.
type Response struct {
	Success bool                  `json:"success"`
	User    *domain.Profile       `json:"user,omitempty"`
	Message string                `json:"message,omitempty"`
	Error   string                `json:"error,omitempty"`
	Errors  []httputil.FieldError `json:"errors,omitempty"`
}

// GetUser returns the caller's profile.
// POST /api/auth/getuser
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	account, err := h.accounts.Get(r.Context(), accountID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, account.Profile())
}

// EditUser updates the caller's name or email. A new email is sent a fresh
// verification code and leaves the account unverified.
// PUT /api/auth/editUser/{id}
func (h *Handler) EditUser(w http.ResponseWriter, r *http.Request) {
	callerID, targetID, ok := h.ids(w, r)
	if !ok {
		return
	}

	var req EditUserRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.JSON(w, http.StatusBadRequest, Response{Error: "invalid request body"})
		return
	}

	result, err := h.accounts.Update(r.Context(), callerID, targetID, req.Name, req.Email)
	if result == nil {
		h.fail(w, r, err)
		return
	}

	profile := result.Account.Profile()
	resp := Response{Success: true, User: &profile}
	switch {
	case err != nil:
		h.logger.Error("verification mail not sent", "error", err, "account_id", targetID)
		resp.Message = "Profile updated, but the verification mail could not be sent. Please request a new code."
	case result.Issuance != nil:
		resp.Message = "OTP Verification mail sent"
	}
	httputil.JSON(w, http.StatusOK, resp)
}

// DeleteUser deletes the caller's account.
// DELETE /api/auth/deleteUser/{id}
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	callerID, targetID, ok := h.ids(w, r)
	if !ok {
		return
	}

	if err := h.accounts.Delete(r.Context(), callerID, targetID); err != nil {
		h.fail(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, Response{Success: true})
}

// FindUser looks up an account profile by email.
// POST /api/auth/finduser
func (h *Handler) FindUser(w http.ResponseWriter, r *http.Request) {
	var req FindUserRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.JSON(w, http.StatusBadRequest, Response{Error: "invalid request body"})
		return
	}

	account, err := h.accounts.Find(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			httputil.JSON(w, http.StatusBadRequest, Response{Error: "Invalid credentials."})
			return
		}
		h.fail(w, r, err)
		return
	}

	profile := account.Profile()
	httputil.JSON(w, http.StatusOK, Response{Success: true, User: &profile})
}

func (h *Handler) ids(w http.ResponseWriter, r *http.Request) (caller, target uuid.UUID, ok bool) {
	caller, ok = middleware.GetAccountID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, uuid.Nil, false
	}

	target, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.JSON(w, http.StatusBadRequest, Response{Error: "invalid user id"})
		return uuid.Nil, uuid.Nil, false
	}
	return caller, target, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var fe *domain.FieldError
	switch {
	case errors.As(err, &fe):
		httputil.JSON(w, http.StatusBadRequest, Response{
			Errors: []httputil.FieldError{{Param: fe.Field, Msg: fe.Message}},
		})
	case errors.Is(err, domain.ErrAccountNotFound):
		httputil.JSON(w, http.StatusNotFound, Response{Error: "No such User exists."})
	case errors.Is(err, domain.ErrEmailTaken):
		httputil.JSON(w, http.StatusBadRequest, Response{Error: "Sorry, User with this email already exists."})
	case errors.Is(err, domain.ErrForbidden):
		httputil.JSON(w, http.StatusForbidden, Response{Error: "Not allowed"})
	case domain.KindOf(err) == domain.KindInternal:
		h.logger.Error("request failed", "error", err, "path", r.URL.Path)
		httputil.JSON(w, http.StatusInternalServerError, Response{Error: "Internal Server Error"})
	default:
		httputil.JSON(w, httputil.StatusCode(err), Response{Error: err.Error()})
	}
}
