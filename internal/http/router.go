package http

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/animalportal/server/internal/auth"
	"github.com/animalportal/server/internal/http/handlers"
	"github.com/animalportal/server/internal/middleware"
	"github.com/animalportal/server/internal/repo"
)

// RouterDeps carries everything the router needs to wire handlers and
// middleware together.
type RouterDeps struct {
	DB          *sql.DB
	AuthService *auth.AuthService
	Tokens      *auth.TokenService
	Sessions    *auth.SessionManager
	Users       repo.UserRepo
	Cats        repo.CatRepo
	Dogs        repo.DogRepo

	// Optional overrides; NewRouter installs defaults when nil.
	AuthLimiter *middleware.RateLimiter
	UserLimiter *middleware.RateLimiter
}

// NewRouter assembles the full route tree.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	authHandler := handlers.NewAuthHandler(deps.AuthService)
	catHandler := handlers.NewCatHandler(deps.Cats)
	dogHandler := handlers.NewDogHandler(deps.Dogs)
	healthHandler := handlers.NewHealthHandler(deps.DB)

	authenticated := middleware.Authenticate(deps.Tokens, deps.Sessions, deps.Users)
	optionalAuth := middleware.OptionalAuthenticate(deps.Tokens, deps.Sessions, deps.Users)

	// OTP issuance and credential checks get a tight per-IP budget; the
	// rest of the authenticated surface is limited per user.
	authLimiter := deps.AuthLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewRateLimiter(rate.Every(time.Minute/10), 10)
	}
	userLimiter := deps.UserLimiter
	if userLimiter == nil {
		userLimiter = middleware.NewRateLimiter(rate.Every(time.Second), 30)
	}

	r.Get("/health", healthHandler.HandleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(authLimiter))
				r.Post("/register", authHandler.HandleRegister)
				r.Post("/verify-registration", authHandler.HandleVerifyRegistration)
				r.Post("/login", authHandler.HandleLogin)
				r.Post("/forgot-password", authHandler.HandleForgotPassword)
				r.Post("/verify-forgot-password", authHandler.HandleVerifyForgotPasswordOtp)
				r.Post("/reset-password", authHandler.HandleResetPassword)
				r.Post("/refresh", authHandler.HandleRefresh)
			})
			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.Post("/logout", authHandler.HandleLogout)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Use(middleware.RateLimitByUser(userLimiter))
			r.Get("/users/me", authHandler.HandleMe)
		})

		r.Route("/cats", func(r chi.Router) {
			r.With(optionalAuth).Get("/", catHandler.HandleList)
			r.With(optionalAuth).Get("/tag/{tagNumber}", catHandler.HandleGetByTag)
			r.With(optionalAuth).Get("/{id}", catHandler.HandleGet)
			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.Use(middleware.RateLimitByUser(userLimiter))
				r.Post("/", catHandler.HandleCreate)
				r.Put("/{id}", catHandler.HandleUpdate)
				r.Delete("/{id}", catHandler.HandleDelete)
			})
		})

		r.Route("/dogs", func(r chi.Router) {
			r.With(optionalAuth).Get("/", dogHandler.HandleList)
			r.With(optionalAuth).Get("/tag/{tagNumber}", dogHandler.HandleGetByTag)
			r.With(optionalAuth).Get("/{id}", dogHandler.HandleGet)
			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.Use(middleware.RateLimitByUser(userLimiter))
				r.Post("/", dogHandler.HandleCreate)
				r.Put("/{id}", dogHandler.HandleUpdate)
				r.Delete("/{id}", dogHandler.HandleDelete)
			})
		})
	})

	return r
}
