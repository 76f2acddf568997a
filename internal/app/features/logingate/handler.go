// internal/app/features/logingate/handler.go
package logingate

import (
	"errors"
	"net/http"

	"github.com/dalemusser/collegehub/internal/app/system/aggregator"
	"github.com/dalemusser/collegehub/internal/app/system/respond"
	"github.com/dalemusser/collegehub/internal/app/system/timeouts"
	"github.com/dalemusser/collegehub/internal/domain/models"
	"go.uber.org/zap"
)

// Handler tells the client whether an authenticated person may enter the
// app. Authentication itself happens at the external provider; this only
// checks the approval state of the person's record.
type Handler struct {
	Store aggregator.Reader
	Log   *zap.Logger
}

func NewHandler(store aggregator.Reader, logger *zap.Logger) *Handler {
	return &Handler{Store: store, Log: logger}
}

type response struct {
	Found   bool               `json:"found"`
	Allowed bool               `json:"allowed"`
	Status  models.Status      `json:"status,omitempty"`
	Message string             `json:"message,omitempty"`
	Record  *models.RoleRecord `json:"record,omitempty"`
}

// Serve handles GET /login-gate?role=&uid=.
//
// 200 when the record is approved, 403 when it is pending or rejected and
// 404 when no record carries the uid.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	role, err := models.ParseRoleType(q.Get("role"))
	if err != nil {
		respond.BadRequest(w, err.Error())
		return
	}
	uid := q.Get("uid")
	if uid == "" {
		respond.BadRequest(w, "uid is required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Mutation(), h.Log, "login gate")
	defer cancel()

	rec, err := aggregator.Lookup(ctx, h.Store, role, uid)
	if errors.Is(err, aggregator.ErrRecordNotFound) {
		respond.JSON(w, http.StatusNotFound, response{
			Message: "Unable to find your user data. Please contact support.",
		})
		return
	}
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	resp := response{Found: true, Status: rec.Status, Record: &rec}
	switch rec.Status {
	case models.StatusApproved:
		resp.Allowed = true
		respond.JSON(w, http.StatusOK, resp)
	case models.StatusRejected:
		resp.Message = "Your account request was rejected."
		respond.JSON(w, http.StatusForbidden, resp)
	default:
		resp.Message = "Your account is pending approval. Please wait for approval."
		respond.JSON(w, http.StatusForbidden, resp)
	}
	h.Log.Debug("login gate checked",
		zap.String("role", string(role)),
		zap.String("record_id", rec.RecordID),
		zap.Bool("allowed", resp.Allowed))
}
