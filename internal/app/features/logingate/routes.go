// internal/app/features/logingate/routes.go
package logingate

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter mounted under /login-gate.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Serve)
	return r
}
