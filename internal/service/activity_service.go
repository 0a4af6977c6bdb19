package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"climatrack/internal/model"
	"climatrack/internal/repository"
)

const activityListLimit = 200

// ActivityEntry is one audit event. A zero UserID records an anonymous event.
type ActivityEntry struct {
	UserID  uuid.UUID
	Action  string
	Details string
	IP      string
}

// ActivityService keeps the user activity audit log.
type ActivityService interface {
	// Record appends an entry. It never fails the caller.
	Record(ctx context.Context, entry ActivityEntry)
	Recent(ctx context.Context) ([]model.ActivityLog, error)
}

type activityService struct {
	repo repository.ActivityLogRepository
	log  zerolog.Logger
}

// NewActivityService creates a new activity service.
func NewActivityService(repo repository.ActivityLogRepository, log zerolog.Logger) ActivityService {
	return &activityService{repo: repo, log: log}
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) {
	row := &model.ActivityLog{
		Action:    entry.Action,
		Details:   entry.Details,
		IPAddress: entry.IP,
	}
	if entry.UserID != uuid.Nil {
		id := entry.UserID
		row.UserID = &id
	}
	if err := s.repo.Create(ctx, row); err != nil {
		s.log.Warn().Err(err).Str("action", entry.Action).Msg("record activity")
	}
}

func (s *activityService) Recent(ctx context.Context) ([]model.ActivityLog, error) {
	entries, err := s.repo.ListRecent(ctx, activityListLimit)
	if err != nil {
		return nil, storeError(err, "activity log not found")
	}
	if entries == nil {
		entries = []model.ActivityLog{}
	}
	return entries, nil
}
