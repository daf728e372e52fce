package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/priyanshp28/noteZipper/internal/config"
	"github.com/priyanshp28/noteZipper/internal/http/features/account"
	"github.com/priyanshp28/noteZipper/internal/http/features/profile"
	"github.com/priyanshp28/noteZipper/internal/http/middleware"
	"github.com/priyanshp28/noteZipper/internal/httputil"
	"github.com/priyanshp28/noteZipper/pkg/auth"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger          *slog.Logger
	Authenticator   *auth.Authenticator
	AccountService  *auth.AccountService
	SessionIssuer   *auth.SessionIssuer
	RateLimitConfig config.RateLimitConfig
	SecurityHeaders config.SecurityHeadersConfig
	Validation      config.ValidationConfig
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.Validation.MaxRequestBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Mount("/api/auth", AuthRoutes(cfg))

	return r
}

// AuthRoutes returns the account and profile routes without the global
// middleware, for mounting under a prefix.
func AuthRoutes(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)
	accountHandler := account.NewHandler(cfg.Logger, cfg.Authenticator)
	profileHandler := profile.NewHandler(cfg.Logger, cfg.AccountService)

	r.Group(func(r chi.Router) {
		r.Use(rateLimiters[middleware.LimitAuth])
		r.Post("/createuser", accountHandler.CreateUser)
		r.Post("/login", accountHandler.Login)
	})
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters[middleware.LimitOTP])
		r.Post("/verifyOTP", accountHandler.VerifyOTP)
		r.Post("/resendOTP", accountHandler.ResendOTP)
	})
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters[middleware.LimitReset])
		r.Post("/forgetpassword", accountHandler.ForgetPassword)
		r.Post("/resetpassword", accountHandler.ResetPassword)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.SessionIssuer))
		r.Use(rateLimiters[middleware.LimitProfile])
		r.Post("/getuser", profileHandler.GetUser)
		r.Put("/editUser/{id}", profileHandler.EditUser)
		r.Delete("/deleteUser/{id}", profileHandler.DeleteUser)
		r.Post("/finduser", profileHandler.FindUser)
	})

	return r
}
