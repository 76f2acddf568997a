// internal/app/features/approvals/routes.go
package approvals

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter mounted under /approvals.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{view}", h.List)
	r.Post("/{view}/refresh", h.Refresh)
	r.Post("/{view}/{role}/{recordID}/{authID}/approve", h.Approve)
	r.Post("/{view}/{role}/{recordID}/{authID}/reject", h.Reject)
	r.Delete("/{view}/{role}/{recordID}/{authID}", h.Remove)
	return r
}
