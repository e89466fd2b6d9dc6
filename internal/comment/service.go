package comment

import (
	"context"
	"log/slog"
	"strings"

	"github.com/frahmantamala/grievance-management/internal"
	"github.com/frahmantamala/grievance-management/internal/auth"
	"github.com/frahmantamala/grievance-management/internal/core/common/pagination"
	"github.com/frahmantamala/grievance-management/internal/core/common/validation"
	commentDatamodel "github.com/frahmantamala/grievance-management/internal/core/datamodel/comment"
	"github.com/frahmantamala/grievance-management/internal/grievance"
)

type RepositoryAPI interface {
	Create(ctx context.Context, c *commentDatamodel.Comment) error
	ListByGrievance(ctx context.Context, grievanceID int64, params pagination.Params) ([]*commentDatamodel.Comment, int64, error)
}

// GrievanceReader resolves a grievance the actor is allowed to read;
// grievance.Service satisfies it.
type GrievanceReader interface {
	CanRead(ctx context.Context, actor *auth.Actor, id int64) (*grievance.Grievance, error)
}

type Service struct {
	repo       RepositoryAPI
	grievances GrievanceReader
	policy     *auth.Policy
	logger     *slog.Logger
}

func NewService(repo RepositoryAPI, grievances GrievanceReader, policy *auth.Policy, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		grievances: grievances,
		policy:     policy,
		logger:     logger,
	}
}

// Post appends a comment to a grievance thread the actor can see.
func (s *Service) Post(ctx context.Context, actor *auth.Actor, dto CreateCommentDTO) (*Comment, error) {
	dto.Content = strings.TrimSpace(dto.Content)
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}
	if err := validation.ValidateCommentContent(dto.Content); err != nil {
		return nil, err
	}

	g, err := s.grievances.CanRead(ctx, actor, dto.GrievanceID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, auth.ActionComment, g.Resource()); err != nil {
		return nil, err
	}

	row := ToDataModel(NewComment(g.ID, actor.ID, dto.Content))
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("failed to create comment", "error", err, "grievance_id", g.ID)
		return nil, internal.NewInternalError("failed to create comment", err)
	}

	s.logger.Info("comment posted", "comment_id", row.ID, "grievance_id", g.ID, "author_id", actor.ID)
	return FromDataModel(row), nil
}

func (s *Service) List(ctx context.Context, actor *auth.Actor, grievanceID int64, params pagination.Params) (pagination.Page[*Comment], error) {
	if _, err := s.grievances.CanRead(ctx, actor, grievanceID); err != nil {
		return pagination.Page[*Comment]{}, err
	}

	rows, total, err := s.repo.ListByGrievance(ctx, grievanceID, params)
	if err != nil {
		s.logger.Error("failed to list comments", "error", err, "grievance_id", grievanceID)
		return pagination.Page[*Comment]{}, internal.NewInternalError("failed to list comments", err)
	}

	items := make([]*Comment, 0, len(rows))
	for _, row := range rows {
		items = append(items, FromDataModel(row))
	}
	return pagination.NewPage(items, total, params), nil
}
