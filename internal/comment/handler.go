package comment

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/frahmantamala/grievance-management/internal"
	"github.com/frahmantamala/grievance-management/internal/auth"
	"github.com/frahmantamala/grievance-management/internal/core/common/pagination"
	"github.com/frahmantamala/grievance-management/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Post(ctx context.Context, actor *auth.Actor, dto CreateCommentDTO) (*Comment, error)
	List(ctx context.Context, actor *auth.Actor, grievanceID int64, params pagination.Params) (pagination.Page[*Comment], error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
	}
}

func (h *Handler) PostComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.Logger.Error("PostComment: actor not found in context")
		h.HandleServiceError(w, internal.NewUnauthorizedError("unauthorized", internal.ErrCodeInvalidToken))
		return
	}

	var dto CreateCommentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("PostComment: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.Service.Post(r.Context(), actor, dto)
	if err != nil {
		h.Logger.Error("PostComment: service error", "error", err, "grievance_id", dto.GrievanceID, "actor_id", actor.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, c)
}

// ListComments handles GET /comments/grievance/{id}?search&sort_order&skip&limit
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.Logger.Error("ListComments: actor not found in context")
		h.HandleServiceError(w, internal.NewUnauthorizedError("unauthorized", internal.ErrCodeInvalidToken))
		return
	}

	grievanceID, err := h.ParseIDParam("id", chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	params, err := pagination.FromQuery(r.URL.Query())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	page, err := h.Service.List(r.Context(), actor, grievanceID, params)
	if err != nil {
		h.Logger.Error("ListComments: service error", "error", err, "grievance_id", grievanceID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, page)
}
