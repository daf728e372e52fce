package account

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/priyanshp28/noteZipper/internal/httputil"
	"github.com/priyanshp28/noteZipper/pkg/auth"
	"github.com/priyanshp28/noteZipper/pkg/domain"
)

// Response messages.
const (
	msgCodeSent         = "OTP Verification mail sent"
	msgEmailTaken       = "Sorry, User with this email already exists."
	msgNoCredentials    = "No user exists with such credentials."
	msgNoSuchEmail      = "No user exists with such email."
	msgNoSuchDetails    = "No user exists with such details."
	msgInvalidCreds     = "Invalid credentials."
	msgNoActiveCode     = "Account doesn't exists or has been verified already. Please log in using your credentials."
	msgExpired          = "The code has expired. Please request a new code."
	msgMismatch         = "The OTP doesn't match or is invalid OTP!"
	msgEmailVerified    = "User Email have been verified successfully."
	msgResetVerified    = "Code verified. You can now reset your password."
	msgPasswordReset    = "Password reset successfully!"
	msgResetNotAllowed  = "Password reset is not authorised. Verify the code sent to your email first."
	msgDispatchFailed   = "Could not send the verification mail. Please request a new code."
	msgTooManyRequests  = "Too many code requests. Please try again later."
	msgInvalidBody      = "invalid request body"
	msgBodyTooLarge     = "request body too large"
	msgInternal         = "Internal Server Error"
	msgInvalidAccountID = "Enter a valid userId"
)

// Handler handles the account flow endpoints: registration, login, code
// verification and password recovery.
type Handler struct {
	logger        *slog.Logger
	authenticator *auth.Authenticator
}

// NewHandler creates a new account handler.
func NewHandler(logger *slog.Logger, authenticator *auth.Authenticator) *Handler {
	return &Handler{
		logger:        logger,
		authenticator: authenticator,
	}
}

// CreateUserRequest represents a registration request.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyOTPRequest represents a code verification request. Purpose is
// optional; when empty, the outstanding code is accepted whatever it was
// issued for.
type VerifyOTPRequest struct {
	UserID  string `json:"userId"`
	OTP     string `json:"otp"`
	Purpose string `json:"purpose,omitempty"`
}

// ResendOTPRequest represents a request for a new verification code.
type ResendOTPRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// ForgetPasswordRequest represents a password reset code request.
type ForgetPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents a password reset. ResetToken is the grant
// returned by a verified password-reset code.
type ResetPasswordRequest struct {
	Email      string `json:"email"`
	NewPass    string `json:"newpass"`
	ResetToken string `json:"resetToken,omitempty"`
}

// PendingData identifies the account a code was sent to.
type PendingData struct {
	UserID    uuid.UUID `json:"userId"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// VerifyData is returned with a verification outcome.
type VerifyData struct {
	Verified            bool       `json:"verified"`
	ResetToken          string     `json:"resetToken,omitempty"`
	ResetTokenExpiresAt *time.Time `json:"resetTokenExpiresAt,omitempty"`
}

// CreateUser handles registration.
// POST /api/auth/createuser
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !h.decode(w, r, &req) {
		return
	}

	issuance, err := h.authenticator.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil && issuance == nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			httputil.Status(w, http.StatusBadRequest, httputil.StatusFailed, msgEmailTaken, nil)
			return
		}
		h.fail(w, r, err)
		return
	}

	h.pending(w, r, issuance, err)
}

// Login handles login. Unverified accounts are sent a new code instead of a
// session token.
// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.authenticator.Login(r.Context(), req.Email, req.Password)
	if result == nil {
		switch {
		case errors.Is(err, domain.ErrAccountNotFound):
			httputil.Status(w, http.StatusBadRequest, httputil.StatusFailed, msgNoCredentials, nil)
		case errors.Is(err, domain.ErrInvalidCredentials):
			httputil.Status(w, http.StatusBadRequest, httputil.StatusFailed, msgInvalidCreds, nil)
		default:
			h.fail(w, r, err)
		}
		return
	}

	if result.Status == auth.LoginPendingVerification {
		h.pending(w, r, result.Issuance, err)
		return
	}

	httputil.JSON(w, http.StatusOK, httputil.StatusResponse{
		Status:    httputil.StatusSuccess,
		AuthToken: result.Session.Token,
	})
}

// VerifyOTP checks a one-time code.
// POST /api/auth/verifyOTP
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	accountID, ok := parseAccountID(w, req.UserID)
	if !ok {
		return
	}

	result, err := h.authenticator.VerifyCode(r.Context(), accountID, req.OTP, domain.CodePurpose(req.Purpose))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	data := VerifyData{Verified: result.AccountVerified}
	switch result.Outcome {
	case domain.OutcomeVerified:
		message := msgEmailVerified
		if result.ResetGrant != "" {
			message = msgResetVerified
			data.ResetToken = result.ResetGrant
			data.ResetTokenExpiresAt = &result.ResetGrantExpiresAt
		}
		httputil.Status(w, http.StatusOK, httputil.StatusVerified, message, data)
	case domain.OutcomeExpired:
		httputil.Status(w, http.StatusBadRequest, httputil.StatusFailed, msgExpired, data)
	case domain.OutcomeMismatch:
		httputil.Status(w, http.StatusBadRequest, httputil.StatusFailed, msgMismatch, data)
	default:
		httputil.Status(w, http.StatusBadRequest, httputil.StatusFailed, msgNoActiveCode, data)
	}
}

// ResendOTP replaces the outstanding code with a new email-verification code.
// POST /api/auth/resendOTP
func (h *Handler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req ResendOTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	accountID, ok := parseAccountID(w, req.UserID)
	if !ok {
		return
	}

	issuance, err := h.authenticator.Resend(r.Context(), accountID, req.Email)
	if err != nil && issuance == nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			httputil.Status(w, http.StatusBadRequest, httputil.StatusFailed, msgNoSuchDetails, nil)
			return
		}
		h.fail(w, r, err)
		return
	}

	h.pending(w, r, issuance, err)
}

// ForgetPassword mails a password-reset code.
// POST /api/auth/forgetpassword
func (h *Handler) ForgetPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	issuance, err := h.authenticator.ForgotPassword(r.Context(), req.Email)
	if err != nil && issuance == nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			httputil.Status(w, http.StatusBadRequest, httputil.StatusFailed, msgNoSuchEmail, nil)
			return
		}
		h.fail(w, r, err)
		return
	}

	h.pending(w, r, issuance, err)
}

// ResetPassword overwrites the account password.
// POST /api/auth/resetpassword
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.authenticator.ResetPassword(r.Context(), req.Email, req.NewPass, req.ResetToken)
	switch {
	case err == nil:
		httputil.Status(w, http.StatusOK, httputil.StatusSuccess, msgPasswordReset, nil)
	case errors.Is(err, domain.ErrAccountNotFound):
		httputil.Status(w, http.StatusBadRequest, httputil.StatusFailed, msgNoSuchEmail, nil)
	case errors.Is(err, domain.ErrInvalidResetGrant):
		httputil.Status(w, http.StatusUnauthorized, httputil.StatusFailed, msgResetNotAllowed, nil)
	default:
		var fe *domain.FieldError
		if errors.As(err, &fe) && fe.Field == "password" {
			err = domain.NewFieldError("newpass", fe.Err, fe.Message)
		}
		h.fail(w, r, err)
	}
}

// pending answers a code issuance. A receipt paired with an error means the
// code is stored but its mail was not sent.
func (h *Handler) pending(w http.ResponseWriter, r *http.Request, issuance *domain.Issuance, err error) {
	data := PendingData{
		UserID:    issuance.AccountID,
		Email:     issuance.Email,
		ExpiresAt: issuance.ExpiresAt,
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "verification mail not sent", "error", err, "account_id", issuance.AccountID, "purpose", issuance.Purpose)
		httputil.Status(w, httputil.StatusCode(err), httputil.StatusFailed, msgDispatchFailed, data)
		return
	}
	httputil.Status(w, http.StatusCreated, httputil.StatusPending, msgCodeSent, data)
}

// fail answers errors that have no flow-specific message.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		httputil.Invalid(w, err)
	case domain.KindRateLimited:
		httputil.Status(w, http.StatusTooManyRequests, httputil.StatusFailed, msgTooManyRequests, nil)
	case domain.KindInternal:
		h.logger.ErrorContext(r.Context(), "request failed", "error", err, "path", r.URL.Path)
		httputil.Status(w, http.StatusInternalServerError, httputil.StatusFailed, msgInternal, nil)
	default:
		httputil.Status(w, httputil.StatusCode(err), httputil.StatusFailed, err.Error(), nil)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := httputil.DecodeJSON(r, v); err != nil {
		if errors.Is(err, httputil.ErrBodyTooLarge) {
			httputil.Status(w, http.StatusRequestEntityTooLarge, httputil.StatusFailed, msgBodyTooLarge, nil)
			return false
		}
		httputil.Status(w, http.StatusBadRequest, httputil.StatusFailed, msgInvalidBody, nil)
		return false
	}
	return true
}

// parseAccountID accepts an empty id as uuid.Nil so the service reports the
// missing field.
func parseAccountID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	if raw == "" {
		return uuid.Nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		httputil.Invalid(w, domain.NewFieldError("userId", domain.ErrValidation, msgInvalidAccountID))
		return uuid.Nil, false
	}
	return id, true
}
