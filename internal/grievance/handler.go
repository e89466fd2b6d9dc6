package grievance

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/grievance-management/internal"
	"github.com/frahmantamala/grievance-management/internal/auth"
	"github.com/frahmantamala/grievance-management/internal/core/common/pagination"
	"github.com/frahmantamala/grievance-management/internal/transport"
	"github.com/go-chi/chi"
)

const (
	AssignedCountHeader = "X-Assigned-Count"

	multipartMemory = 32 << 20
)

type ServiceAPI interface {
	Create(ctx context.Context, actor *auth.Actor, dto CreateGrievanceDTO, uploads []Upload) (*Grievance, error)
	Assign(ctx context.Context, actor *auth.Actor) (int, error)
	Resolve(ctx context.Context, actor *auth.Actor, grievanceID int64, dto ResolveDTO) (*Grievance, error)
	Close(ctx context.Context, actor *auth.Actor, ticketID string, dto CloseDTO) (*Grievance, error)
	Transfer(ctx context.Context, actor *auth.Actor, ticketID string, dto TransferDTO) (*Grievance, error)
	GetByTicket(ctx context.Context, actor *auth.Actor, ticketID string) (*Grievance, error)
	History(ctx context.Context, actor *auth.Actor, ticketID string) ([]HistoryEntry, error)
	List(ctx context.Context, actor *auth.Actor, filter Filter, params pagination.Params) (pagination.Page[View], error)
	OpenAttachment(ctx context.Context, actor *auth.Actor, attachmentID int64) (*AttachmentStream, error)
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

func (h *Handler) actor(w http.ResponseWriter, r *http.Request, op string) (*auth.Actor, bool) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.Logger.Error(op + ": actor not found in context")
		h.HandleServiceError(w, internal.NewUnauthorizedError("unauthorized", internal.ErrCodeInvalidToken))
		return nil, false
	}
	return actor, true
}

// CreateGrievance handles POST /grievances as multipart/form-data with
// content, department_id and any number of files.
func (h *Handler) CreateGrievance(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "CreateGrievance")
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.Logger.Error("CreateGrievance: invalid multipart form", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	departmentID, err := h.ParseIDParam("department_id", r.FormValue("department_id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var headers []*multipart.FileHeader
	for _, key := range []string{"files", "files[]"} {
		headers = append(headers, r.MultipartForm.File[key]...)
	}

	uploads := make([]Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			h.Logger.Error("CreateGrievance: failed to open upload", "file", fh.Filename, "error", err)
			h.WriteError(w, http.StatusBadRequest, "invalid file upload")
			return
		}
		defer f.Close()
		uploads = append(uploads, Upload{Name: fh.Filename, Reader: f})
	}

	dto := CreateGrievanceDTO{
		DepartmentID: departmentID,
		Content:      r.FormValue("content"),
	}

	g, err := h.Service.Create(r.Context(), actor, dto, uploads)
	if err != nil {
		h.Logger.Error("CreateGrievance: service error", "error", err, "user_id", actor.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, ProjectFor(actor, g))
}

func (h *Handler) ListGrievances(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "ListGrievances")
	if !ok {
		return
	}

	q := r.URL.Query()
	params, err := pagination.FromQuery(q)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	filter, err := h.parseFilter(q.Get)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	page, err := h.Service.List(r.Context(), actor, filter, params)
	if err != nil {
		h.Logger.Error("ListGrievances: service error", "error", err, "actor_id", actor.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) parseFilter(get func(string) string) (Filter, error) {
	filter := Filter{Status: strings.TrimSpace(get("status"))}

	for field, dst := range map[string]**int64{
		"department_id": &filter.DepartmentID,
		"assigned_to":   &filter.AssignedTo,
	} {
		raw := get(field)
		if raw == "" {
			continue
		}
		id, err := h.ParseIDParam(field, raw)
		if err != nil {
			return Filter{}, err
		}
		*dst = &id
	}

	for field, dst := range map[string]**time.Time{
		"created_from": &filter.CreatedFrom,
		"created_to":   &filter.CreatedTo,
	} {
		raw := get(field)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return Filter{}, internal.NewValidationFieldError(field, field+" must be an RFC3339 timestamp", internal.ErrCodeValidationFailed)
		}
		*dst = &t
	}

	return filter, nil
}

func (h *Handler) GetGrievance(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "GetGrievance")
	if !ok {
		return
	}

	ticketID := chi.URLParam(r, "id")
	g, err := h.Service.GetByTicket(r.Context(), actor, ticketID)
	if err != nil {
		h.Logger.Error("GetGrievance: service error", "error", err, "ticket_id", ticketID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ProjectFor(actor, g))
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "GetHistory")
	if !ok {
		return
	}

	ticketID := chi.URLParam(r, "id")
	entries, err := h.Service.History(r.Context(), actor, ticketID)
	if err != nil {
		h.Logger.Error("GetHistory: service error", "error", err, "ticket_id", ticketID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, entries)
}

// AssignGrievances handles POST /grievances/assign. The number of assigned
// grievances is reported in the X-Assigned-Count header.
func (h *Handler) AssignGrievances(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "AssignGrievances")
	if !ok {
		return
	}

	count, err := h.Service.Assign(r.Context(), actor)
	if err != nil {
		h.Logger.Error("AssignGrievances: service error", "error", err, "actor_id", actor.ID)
		h.HandleServiceError(w, err)
		return
	}

	w.Header().Set(AssignedCountHeader, strconv.Itoa(count))
	w.WriteHeader(http.StatusNoContent)
}

// ResolveGrievance handles POST /grievances/{id}/resolve?resolver_id&solved.
// solved defaults to true.
func (h *Handler) ResolveGrievance(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "ResolveGrievance")
	if !ok {
		return
	}

	id, err := h.ParseIDParam("id", chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	q := r.URL.Query()
	dto := ResolveDTO{Solved: true}
	if raw := q.Get("resolver_id"); raw != "" {
		resolverID, err := h.ParseIDParam("resolver_id", raw)
		if err != nil {
			h.HandleServiceError(w, err)
			return
		}
		dto.ResolverID = &resolverID
	}
	if raw := q.Get("solved"); raw != "" {
		solved, err := strconv.ParseBool(raw)
		if err != nil {
			h.HandleServiceError(w, internal.NewValidationFieldError("solved", "solved must be a boolean", internal.ErrCodeValidationFailed))
			return
		}
		dto.Solved = solved
	}

	g, err := h.Service.Resolve(r.Context(), actor, id, dto)
	if err != nil {
		h.Logger.Error("ResolveGrievance: service error", "error", err, "grievance_id", id, "actor_id", actor.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ProjectFor(actor, g))
}

func (h *Handler) TransferGrievance(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "TransferGrievance")
	if !ok {
		return
	}

	var dto TransferDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("TransferGrievance: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ticketID := chi.URLParam(r, "id")
	g, err := h.Service.Transfer(r.Context(), actor, ticketID, dto)
	if err != nil {
		h.Logger.Error("TransferGrievance: service error", "error", err, "ticket_id", ticketID, "actor_id", actor.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ProjectFor(actor, g))
}

func (h *Handler) CloseGrievance(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "CloseGrievance")
	if !ok {
		return
	}

	var dto CloseDTO
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil && err != io.EOF {
			h.Logger.Error("CloseGrievance: invalid request body", "error", err)
			h.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	ticketID := chi.URLParam(r, "id")
	g, err := h.Service.Close(r.Context(), actor, ticketID, dto)
	if err != nil {
		h.Logger.Error("CloseGrievance: service error", "error", err, "ticket_id", ticketID, "actor_id", actor.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ProjectFor(actor, g))
}

// DownloadAttachment streams an attachment back with its stored name.
func (h *Handler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r, "DownloadAttachment")
	if !ok {
		return
	}

	id, err := h.ParseIDParam("attachment_id", chi.URLParam(r, "attachment_id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	stream, err := h.Service.OpenAttachment(r.Context(), actor, id)
	if err != nil {
		h.Logger.Error("DownloadAttachment: service error", "error", err, "attachment_id", id)
		h.HandleServiceError(w, err)
		return
	}
	defer stream.Body.Close()

	w.Header().Set("Content-Type", stream.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": stream.FileName}))
	if stream.FileSize > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(stream.FileSize, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, stream.Body); err != nil {
		h.Logger.Error("DownloadAttachment: failed to stream file", "error", err, "attachment_id", id)
	}
}
