package usage

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatforge/entitlement/pkg/entitlement"
)

// RouterOptions configures the usage module router.
type RouterOptions struct {
	// Resolver extracts the verified caller identity. Defaults to HeaderResolver.
	Resolver UserIDResolver
	// Logger for request-level failures. Defaults to slog.Default.
	Logger *slog.Logger
}

// Router mounts the usage gate HTTP surface on a chi router.
//
//	r := chi.NewRouter()
//	r.Mount("/", usage.Router(svc, usage.RouterOptions{}))
//
// User-facing routes require a verified identity; /internal routes are meant
// for the scheduler or operators and carry no user context.
func Router(svc *entitlement.Service, opts RouterOptions) chi.Router {
	if svc == nil {
		panic("usage: entitlement service is required")
	}
	if opts.Resolver == nil {
		opts.Resolver = HeaderResolver
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	h := &handler{svc: svc, log: opts.Logger}

	r := chi.NewRouter()

	r.Group(func(user chi.Router) {
		user.Use(requireUser(opts.Resolver, opts.Logger))
		user.Get("/usage/limits", h.checkLimit)
		user.Post("/usage/consume", h.consumeOne)
		user.Post("/usage/reset", h.resetManually)
		user.Post("/billing/sync", h.syncWithProvider)
	})

	r.Post("/internal/sweep", h.sweep)

	return r
}

// requireUser resolves the verified caller and stores it on the context.
func requireUser(resolve UserIDResolver, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := resolve(r)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
				return
			}
			next.ServeHTTP(w, r.WithContext(setUserID(r.Context(), userID)))
		})
	}
}
