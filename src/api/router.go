package api

import (
	"net/http"

	"expense-tracker-server/src/auth"
	"expense-tracker-server/src/handlers"
	"expense-tracker-server/src/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Versions is the token version source shared by the auth middleware and
// sign-out.
type Versions interface {
	middleware.TokenVersions
	handlers.VersionRecorder
}

type Options struct {
	AllowedOrigins []string
	ReadOnly       bool
}

func NewRouter(expenses handlers.ExpenseStore, users handlers.UserStore, versions Versions, tokens *auth.Manager, opts Options) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORSMiddleware(opts.AllowedOrigins))
	r.Use(middleware.ReadOnlyModeMiddleware(opts.ReadOnly))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", handlers.SignUp(users))
		r.Post("/signin", handlers.SignIn(users, tokens))
		r.Post("/refresh", handlers.RefreshSession(users, tokens))

		r.With(middleware.JWTAuthMiddleware(tokens, versions)).Group(func(r chi.Router) {
			r.Post("/signout", handlers.SignOut(users, versions))
			r.Post("/validate-token", handlers.ValidateToken())
		})
	})

	// Protected routes
	r.With(middleware.JWTAuthMiddleware(tokens, versions)).Route("/expenses", func(r chi.Router) {
		r.Post("/", handlers.CreateExpense(expenses))
		r.Get("/", handlers.GetExpenses(expenses))
		r.Patch("/", handlers.UpdateExpense(expenses))
		r.Put("/", handlers.UpdateExpense(expenses))
		r.Patch("/{id}", handlers.UpdateExpense(expenses))
		r.Put("/{id}", handlers.UpdateExpense(expenses))
		r.Delete("/", handlers.DeleteExpense(expenses))
		r.Delete("/{id}", handlers.DeleteExpense(expenses))
	})

	return r
}
