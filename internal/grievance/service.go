package grievance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/grievance-management/internal"
	"github.com/frahmantamala/grievance-management/internal/auth"
	"github.com/frahmantamala/grievance-management/internal/core/common/pagination"
	"github.com/frahmantamala/grievance-management/internal/core/common/validation"
	grievanceDatamodel "github.com/frahmantamala/grievance-management/internal/core/datamodel/grievance"
	userDatamodel "github.com/frahmantamala/grievance-management/internal/core/datamodel/user"
	"github.com/frahmantamala/grievance-management/internal/core/events"
	"github.com/frahmantamala/grievance-management/internal/core/role"
	"github.com/frahmantamala/grievance-management/internal/department"
	"github.com/frahmantamala/grievance-management/internal/storage"
	"github.com/google/uuid"
)

// RepositoryAPI is the persistence side of the engine. Every method runs
// against the transaction handed out by WithTx when called on the tx repo.
type RepositoryAPI interface {
	WithTx(ctx context.Context, fn func(tx RepositoryAPI) error) error

	Create(ctx context.Context, g *grievanceDatamodel.Grievance) error
	Update(ctx context.Context, g *grievanceDatamodel.Grievance) error
	GetByID(ctx context.Context, id int64) (*grievanceDatamodel.Grievance, error)
	GetByTicketID(ctx context.Context, ticketID string) (*grievanceDatamodel.Grievance, error)
	List(ctx context.Context, scope Scope, filter Filter, params pagination.Params) ([]*grievanceDatamodel.Grievance, int64, error)

	AddHistory(ctx context.Context, h *grievanceDatamodel.StatusHistory) error
	History(ctx context.Context, grievanceID int64) ([]*grievanceDatamodel.StatusHistory, error)

	AddAttachment(ctx context.Context, a *grievanceDatamodel.Attachment) error
	GetAttachment(ctx context.Context, id int64) (*grievanceDatamodel.Attachment, error)
	Attachments(ctx context.Context, grievanceIDs ...int64) ([]*grievanceDatamodel.Attachment, error)

	// PendingUnassigned returns pending grievances nobody works on, oldest first.
	PendingUnassigned(ctx context.Context) ([]*grievanceDatamodel.Grievance, error)
	// ActiveEmployees returns every active employee ordered by id.
	ActiveEmployees(ctx context.Context) ([]*userDatamodel.User, error)
	GetUser(ctx context.Context, id int64) (*userDatamodel.User, error)
}

type DepartmentLookup interface {
	Lookup(ctx context.Context, id int64) (*department.Department, error)
}

// Attachment bytes plus what is needed to serve them.
type AttachmentStream struct {
	Attachment
	ContentType string
	Body        io.ReadCloser
}

type Service struct {
	repo        RepositoryAPI
	departments DepartmentLookup
	blobs       storage.BlobStore
	policy      *auth.Policy
	publisher   events.Publisher
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(
	repo RepositoryAPI,
	departments DepartmentLookup,
	blobs storage.BlobStore,
	policy *auth.Policy,
	publisher events.Publisher,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:        repo,
		departments: departments,
		blobs:       blobs,
		policy:      policy,
		publisher:   publisher,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create files a new grievance with its attachments. Files are stored before
// the rows are written and removed again when the transaction fails.
func (s *Service) Create(ctx context.Context, actor *auth.Actor, dto CreateGrievanceDTO, uploads []Upload) (*Grievance, error) {
	if err := s.policy.Authorize(actor, auth.ActionCreateGrievance, auth.Resource{}); err != nil {
		return nil, err
	}

	dto.Content = strings.TrimSpace(dto.Content)
	if err := validation.ValidateGrievanceContent(dto.Content); err != nil {
		return nil, err
	}
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	if _, err := s.departments.Lookup(ctx, dto.DepartmentID); err != nil {
		if errors.Is(err, internal.ErrDepartmentNotFound) {
			return nil, internal.ErrUnknownDepartment
		}
		return nil, err
	}

	now := s.now()
	row := &grievanceDatamodel.Grievance{
		TicketID:     uuid.NewString(),
		UserID:       actor.ID,
		DepartmentID: dto.DepartmentID,
		Content:      dto.Content,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	saved := make([]storage.Object, 0, len(uploads))
	for _, up := range uploads {
		obj, err := s.blobs.Save(ctx, up.Name, up.Reader)
		if err != nil {
			s.discard(saved)
			s.logger.Error("failed to store grievance attachments", "error", err, "file", up.Name, "user_id", actor.ID)
			if errors.Is(err, storage.ErrTooLarge) {
				return nil, internal.NewValidationFieldError("files", "attachment exceeds the upload size limit", internal.ErrCodeValidationFailed)
			}
			return nil, internal.NewStorageError("failed to store attachments", fmt.Errorf("save attachment %q: %w", up.Name, err))
		}
		saved = append(saved, obj)
	}

	var attachments []*grievanceDatamodel.Attachment
	err := s.repo.WithTx(ctx, func(tx RepositoryAPI) error {
		attachments = attachments[:0]
		if err := tx.Create(ctx, row); err != nil {
			return err
		}
		if err := tx.AddHistory(ctx, &grievanceDatamodel.StatusHistory{
			GrievanceID: row.ID,
			Status:      StatusPending,
			ChangedByID: actor.ID,
			ChangedAt:   now,
		}); err != nil {
			return err
		}

		for _, obj := range saved {
			a := &grievanceDatamodel.Attachment{
				GrievanceID: row.ID,
				FilePath:    obj.Path,
				FileName:    obj.Name,
				FileType:    obj.ContentType,
				FileSize:    obj.Size,
				UploadedAt:  now,
			}
			if err := tx.AddAttachment(ctx, a); err != nil {
				return fmt.Errorf("record attachment %q: %w", obj.Name, err)
			}
			attachments = append(attachments, a)
		}
		return nil
	})
	if err != nil {
		s.discard(saved)
		s.logger.Error("failed to create grievance", "error", err, "user_id", actor.ID)
		return nil, internal.NewInternalError("failed to create grievance", err)
	}

	g := FromDataModel(row, attachments)
	s.logger.Info("grievance created",
		"ticket_id", g.TicketID,
		"department_id", g.DepartmentID,
		"attachments", len(attachments),
		"user_id", actor.ID)

	s.publish(ctx, events.NewGrievanceEvent(events.EventTypeGrievanceCreated, g.ID, g.TicketID, g.DepartmentID, actor.ID, g.Status))
	return g, nil
}

// discard removes files saved for a unit of work that did not commit.
// Failures are logged only.
func (s *Service) discard(objects []storage.Object) {
	for _, obj := range objects {
		// the request context may already be done
		deleted, err := s.blobs.Delete(context.Background(), obj.Path)
		if err != nil {
			s.logger.Warn("failed to clean up attachment", "path", obj.Path, "error", err)
			continue
		}
		if !deleted {
			s.logger.Debug("attachment already gone", "path", obj.Path)
		}
	}
}

// Assign hands every pending unassigned grievance to the active employees,
// round-robin by employee id. Without active employees nothing changes. It
// returns the number of grievances assigned.
func (s *Service) Assign(ctx context.Context, actor *auth.Actor) (int, error) {
	if err := s.policy.Authorize(actor, auth.ActionAssign, auth.Resource{}); err != nil {
		return 0, err
	}

	assignments := make(map[int64]int64)
	var assigned []*grievanceDatamodel.Grievance

	err := s.repo.WithTx(ctx, func(tx RepositoryAPI) error {
		pending, err := tx.PendingUnassigned(ctx)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}

		employees, err := tx.ActiveEmployees(ctx)
		if err != nil {
			return err
		}
		pool := make([]int64, 0, len(employees))
		for _, e := range employees {
			if e.Role != role.Employee || !e.IsActive {
				continue
			}
			pool = append(pool, e.ID)
		}
		if len(pool) == 0 {
			return nil
		}

		now := s.now()
		for i, g := range pending {
			employeeID := pool[i%len(pool)]

			g.AssignedTo = &employeeID
			g.Status = StatusInProgress
			g.UpdatedAt = now
			if err := tx.Update(ctx, g); err != nil {
				return err
			}
			if err := tx.AddHistory(ctx, &grievanceDatamodel.StatusHistory{
				GrievanceID: g.ID,
				Status:      StatusInProgress,
				ChangedByID: actor.ID,
				ChangedAt:   now,
			}); err != nil {
				return err
			}
			assignments[g.ID] = employeeID
			assigned = append(assigned, g)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to assign grievances", "error", err, "actor_id", actor.ID)
		return 0, internal.NewInternalError("failed to assign grievances", err)
	}

	s.logger.Info("grievances assigned", "count", len(assignments), "actor_id", actor.ID)

	if len(assignments) > 0 {
		s.publish(ctx, events.NewGrievancesAssignedEvent(actor.ID, assignments))
		for _, g := range assigned {
			s.publish(ctx, events.NewGrievanceEvent(events.EventTypeGrievanceAssigned, g.ID, g.TicketID, g.DepartmentID, actor.ID, g.Status))
		}
	}
	return len(assignments), nil
}

// Resolve marks a grievance solved or not solved. The resolver defaults to
// the actor; naming somebody else is reserved to administrators.
func (s *Service) Resolve(ctx context.Context, actor *auth.Actor, grievanceID int64, dto ResolveDTO) (*Grievance, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	var result *grievanceDatamodel.Grievance
	err := s.repo.WithTx(ctx, func(tx RepositoryAPI) error {
		row, err := tx.GetByID(ctx, grievanceID)
		if err != nil {
			return err
		}
		g := FromDataModel(row, nil)

		if err := s.policy.Authorize(actor, auth.ActionResolve, g.Resource()); err != nil {
			return err
		}
		if !g.CanBeResolved() {
			return internal.ErrInvalidStatus
		}

		resolverID := actor.ID
		if dto.ResolverID != nil && *dto.ResolverID != actor.ID {
			if !actor.Role.IsElevated() {
				return internal.ErrPermissionDenied
			}
			if err := s.checkResolver(ctx, tx, *dto.ResolverID); err != nil {
				return err
			}
			resolverID = *dto.ResolverID
		}

		g.Resolve(resolverID, dto.Solved, s.now())
		row = ToDataModel(g)
		if err := tx.Update(ctx, row); err != nil {
			return err
		}
		if err := tx.AddHistory(ctx, &grievanceDatamodel.StatusHistory{
			GrievanceID: g.ID,
			Status:      g.Status,
			ChangedByID: actor.ID,
			ChangedAt:   *g.ResolvedAt,
		}); err != nil {
			return err
		}
		result = row
		return nil
	})
	if err != nil {
		return nil, s.fail("failed to resolve grievance", err, "grievance_id", grievanceID, "actor_id", actor.ID)
	}

	g, err := s.withAttachments(ctx, result)
	if err != nil {
		return nil, err
	}

	s.logger.Info("grievance resolved",
		"ticket_id", g.TicketID,
		"status", g.Status,
		"resolved_by", g.ResolvedBy,
		"actor_id", actor.ID)

	s.publish(ctx, events.NewGrievanceEvent(events.EventTypeGrievanceResolved, g.ID, g.TicketID, g.DepartmentID, actor.ID, g.Status))
	return g, nil
}

func (s *Service) checkResolver(ctx context.Context, tx RepositoryAPI, id int64) error {
	u, err := tx.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			return internal.NewValidationFieldError("resolver_id", "resolver does not exist", internal.ErrCodeValidationFailed)
		}
		return err
	}
	if !u.IsActive || u.Role == role.User {
		return internal.NewValidationFieldError("resolver_id", "resolver must be an active staff member", internal.ErrCodeValidationFailed)
	}
	return nil
}

// Close archives a resolved grievance.
func (s *Service) Close(ctx context.Context, actor *auth.Actor, ticketID string, dto CloseDTO) (*Grievance, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	var result *grievanceDatamodel.Grievance
	err := s.repo.WithTx(ctx, func(tx RepositoryAPI) error {
		row, err := tx.GetByTicketID(ctx, ticketID)
		if err != nil {
			return err
		}
		g := FromDataModel(row, nil)

		if err := s.policy.Authorize(actor, auth.ActionClose, g.Resource()); err != nil {
			return err
		}
		if !g.CanBeClosed() {
			return internal.ErrInvalidStatus
		}

		now := s.now()
		g.Status = StatusClosed
		g.UpdatedAt = now
		row = ToDataModel(g)
		if err := tx.Update(ctx, row); err != nil {
			return err
		}
		if err := tx.AddHistory(ctx, &grievanceDatamodel.StatusHistory{
			GrievanceID: g.ID,
			Status:      StatusClosed,
			ChangedByID: actor.ID,
			ChangedAt:   now,
			Notes:       trimNotes(dto.Notes),
		}); err != nil {
			return err
		}
		result = row
		return nil
	})
	if err != nil {
		return nil, s.fail("failed to close grievance", err, "ticket_id", ticketID, "actor_id", actor.ID)
	}

	g, err := s.withAttachments(ctx, result)
	if err != nil {
		return nil, err
	}

	s.logger.Info("grievance closed", "ticket_id", g.TicketID, "actor_id", actor.ID)
	s.publish(ctx, events.NewGrievanceEvent(events.EventTypeGrievanceClosed, g.ID, g.TicketID, g.DepartmentID, actor.ID, g.Status))
	return g, nil
}

// Transfer moves a grievance to another department's queue, dropping its
// assignment and resetting it to pending.
func (s *Service) Transfer(ctx context.Context, actor *auth.Actor, ticketID string, dto TransferDTO) (*Grievance, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByTicketID(ctx, ticketID)
	if err != nil {
		return nil, s.fail("failed to transfer grievance", err, "ticket_id", ticketID, "actor_id", actor.ID)
	}
	if err := s.policy.Authorize(actor, auth.ActionTransfer, FromDataModel(current, nil).Resource()); err != nil {
		return nil, err
	}

	target, err := s.departments.Lookup(ctx, dto.NewDepartmentID)
	if err != nil {
		return nil, s.fail("failed to load target department", err, "department_id", dto.NewDepartmentID)
	}

	var (
		result *grievanceDatamodel.Grievance
		from   int64
	)
	err = s.repo.WithTx(ctx, func(tx RepositoryAPI) error {
		row, err := tx.GetByTicketID(ctx, ticketID)
		if err != nil {
			return err
		}
		g := FromDataModel(row, nil)

		if err := s.policy.Authorize(actor, auth.ActionTransfer, g.Resource()); err != nil {
			return err
		}
		if g.DepartmentID == target.ID {
			return internal.ErrSameDepartment
		}

		from = g.DepartmentID
		now := s.now()
		g.TransferTo(target.ID, now)
		row = ToDataModel(g)
		if err := tx.Update(ctx, row); err != nil {
			return err
		}
		if err := tx.AddHistory(ctx, &grievanceDatamodel.StatusHistory{
			GrievanceID: g.ID,
			Status:      TransferLabel(target.Name, target.ID),
			ChangedByID: actor.ID,
			ChangedAt:   now,
			Notes:       trimNotes(dto.Notes),
		}); err != nil {
			return err
		}
		result = row
		return nil
	})
	if err != nil {
		return nil, s.fail("failed to transfer grievance", err, "ticket_id", ticketID, "actor_id", actor.ID)
	}

	g, err := s.withAttachments(ctx, result)
	if err != nil {
		return nil, err
	}

	s.logger.Info("grievance transferred",
		"ticket_id", g.TicketID,
		"from_department_id", from,
		"to_department_id", g.DepartmentID,
		"actor_id", actor.ID)

	s.publish(ctx, events.NewGrievanceEvent(events.EventTypeGrievanceTransferred, g.ID, g.TicketID, g.DepartmentID, actor.ID, g.Status))
	return g, nil
}

func (s *Service) GetByTicket(ctx context.Context, actor *auth.Actor, ticketID string) (*Grievance, error) {
	row, err := s.repo.GetByTicketID(ctx, ticketID)
	if err != nil {
		return nil, s.fail("failed to get grievance", err, "ticket_id", ticketID)
	}
	g := FromDataModel(row, nil)
	if err := s.policy.Authorize(actor, auth.ActionReadGrievance, g.Resource()); err != nil {
		return nil, err
	}
	return s.withAttachments(ctx, row)
}

// History lists the status trail of a grievance, oldest first. Submitters
// do not see it.
func (s *Service) History(ctx context.Context, actor *auth.Actor, ticketID string) ([]HistoryEntry, error) {
	row, err := s.repo.GetByTicketID(ctx, ticketID)
	if err != nil {
		return nil, s.fail("failed to get grievance", err, "ticket_id", ticketID)
	}
	g := FromDataModel(row, nil)
	if err := s.policy.Authorize(actor, auth.ActionReadGrievance, g.Resource()); err != nil {
		return nil, err
	}
	if actor.Role == role.User {
		return nil, internal.ErrPermissionDenied
	}

	rows, err := s.repo.History(ctx, row.ID)
	if err != nil {
		return nil, s.fail("failed to get grievance history", err, "ticket_id", ticketID)
	}
	entries := make([]HistoryEntry, 0, len(rows))
	for _, h := range rows {
		entries = append(entries, HistoryFromDataModel(h))
	}
	return entries, nil
}

// CanRead loads grievance id and checks the actor may read it. Comment
// threads share this visibility.
func (s *Service) CanRead(ctx context.Context, actor *auth.Actor, id int64) (*Grievance, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail("failed to get grievance", err, "grievance_id", id)
	}
	g := FromDataModel(row, nil)
	if err := s.policy.Authorize(actor, auth.ActionReadGrievance, g.Resource()); err != nil {
		return nil, err
	}
	return g, nil
}

// List applies the actor's visibility window before any filter.
func (s *Service) List(ctx context.Context, actor *auth.Actor, filter Filter, params pagination.Params) (pagination.Page[View], error) {
	if err := validation.Struct(filter); err != nil {
		return pagination.Page[View]{}, err
	}
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedTo.Before(*filter.CreatedFrom) {
		return pagination.Page[View]{}, internal.NewValidationFieldError("created_to", "created_to must not be before created_from", internal.ErrCodeValidationFailed)
	}

	scope, err := ScopeFor(actor)
	if err != nil {
		return pagination.Page[View]{}, err
	}

	rows, total, err := s.repo.List(ctx, scope, filter, params)
	if err != nil {
		s.logger.Error("failed to list grievances", "error", err, "actor_id", actor.ID)
		return pagination.Page[View]{}, internal.NewInternalError("failed to list grievances", err)
	}

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	byGrievance := make(map[int64][]*grievanceDatamodel.Attachment, len(rows))
	if len(ids) > 0 {
		attachments, err := s.repo.Attachments(ctx, ids...)
		if err != nil {
			s.logger.Error("failed to load attachments", "error", err)
			return pagination.Page[View]{}, internal.NewInternalError("failed to list grievances", err)
		}
		for _, a := range attachments {
			byGrievance[a.GrievanceID] = append(byGrievance[a.GrievanceID], a)
		}
	}

	items := make([]View, 0, len(rows))
	for _, row := range rows {
		items = append(items, ProjectFor(actor, FromDataModel(row, byGrievance[row.ID])))
	}
	return pagination.NewPage(items, total, params), nil
}

// ScopeFor returns the visibility window of actor: users see what they
// filed, employees what they are assigned, admins their department and
// super admins everything.
func ScopeFor(actor *auth.Actor) (Scope, error) {
	if actor == nil || !actor.IsActive {
		return Scope{}, internal.ErrPermissionDenied
	}
	switch actor.Role {
	case role.User:
		id := actor.ID
		return Scope{UserID: &id}, nil
	case role.Employee:
		id := actor.ID
		return Scope{AssigneeID: &id}, nil
	case role.Admin:
		if actor.DepartmentID == nil {
			return Scope{}, internal.ErrPermissionDenied
		}
		id := *actor.DepartmentID
		return Scope{DepartmentID: &id}, nil
	case role.SuperAdmin:
		return Scope{}, nil
	}
	return Scope{}, internal.ErrPermissionDenied
}

// OpenAttachment streams an attachment of a grievance the actor can read.
// The caller closes Body.
func (s *Service) OpenAttachment(ctx context.Context, actor *auth.Actor, attachmentID int64) (*AttachmentStream, error) {
	a, err := s.repo.GetAttachment(ctx, attachmentID)
	if err != nil {
		return nil, s.fail("failed to get attachment", err, "attachment_id", attachmentID)
	}

	if _, err := s.CanRead(ctx, actor, a.GrievanceID); err != nil {
		return nil, err
	}

	body, err := s.blobs.Open(ctx, a.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			s.logger.Warn("attachment row without stored file", "attachment_id", attachmentID, "path", a.FilePath)
			return nil, internal.ErrAttachmentNotFound
		}
		s.logger.Error("failed to open attachment", "error", err, "attachment_id", attachmentID)
		return nil, internal.NewStorageError("failed to read attachment", err)
	}

	contentType := a.FileType
	if contentType == "" {
		if ct, err := s.blobs.MimeType(ctx, a.FilePath); err == nil {
			contentType = ct
		} else {
			contentType = "application/octet-stream"
		}
	}

	return &AttachmentStream{
		Attachment:  AttachmentFromDataModel(a),
		ContentType: contentType,
		Body:        body,
	}, nil
}

func (s *Service) withAttachments(ctx context.Context, row *grievanceDatamodel.Grievance) (*Grievance, error) {
	attachments, err := s.repo.Attachments(ctx, row.ID)
	if err != nil {
		s.logger.Error("failed to load attachments", "error", err, "ticket_id", row.TicketID)
		return nil, internal.NewInternalError("failed to load attachments", err)
	}
	return FromDataModel(row, attachments), nil
}

// fail passes domain errors through and wraps everything else.
func (s *Service) fail(msg string, err error, attrs ...any) error {
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	s.logger.Error(msg, append([]any{"error", err}, attrs...)...)
	return internal.NewInternalError(msg, err)
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

func trimNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	n := strings.TrimSpace(*notes)
	if n == "" {
		return nil
	}
	return &n
}
