package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/weiawesome/streamchat/internal/domain"
	"github.com/weiawesome/streamchat/internal/identity"
	"github.com/weiawesome/streamchat/pkg/log"
)

// GormHistoryRepository implements HistoryRepository using GORM.
type GormHistoryRepository struct {
	db    *gorm.DB
	ids   identity.Generator
	clock func() time.Time
}

// NewGormHistoryRepository creates a new GORM-based history repository.
// Record ids are ULIDs so they sort by creation time.
func NewGormHistoryRepository(db *gorm.DB) *GormHistoryRepository {
	return &GormHistoryRepository{
		db:    db,
		ids:   identity.NewULIDGenerator(),
		clock: time.Now,
	}
}

// Migrate creates or updates the session_history table.
func (r *GormHistoryRepository) Migrate() error {
	return r.db.AutoMigrate(&domain.HistoryModel{})
}

// Record stores rec, assigning its id and timestamp when unset.
func (r *GormHistoryRepository) Record(ctx context.Context, rec *domain.HistoryRecord) error {
	l := log.Ctx(ctx)

	if rec.ID == "" {
		id, err := r.ids.Generate()
		if err != nil {
			return err
		}
		rec.ID = id
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.clock().UTC()
	}

	if err := r.db.WithContext(ctx).Create(domain.HistoryToModel(rec)).Error; err != nil {
		l.Error().Err(err).Str(log.FieldStreamName, rec.StreamName).Msg("failed to record session history")
		return err
	}
	l.Debug().
		Str(log.FieldStreamName, rec.StreamName).
		Str("status", string(rec.Status)).
		Msg("session history recorded")
	return nil
}

// List returns the newest records first.
func (r *GormHistoryRepository) List(ctx context.Context, filter HistoryFilter) ([]domain.HistoryRecord, error) {
	l := log.Ctx(ctx)

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	query := r.db.WithContext(ctx).Model(&domain.HistoryModel{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.StreamName != "" {
		query = query.Where("stream_name = ?", filter.StreamName)
	}

	var models []domain.HistoryModel
	if err := query.Order("id DESC").Limit(limit).Find(&models).Error; err != nil {
		l.Error().Err(err).Msg("failed to list session history")
		return nil, err
	}

	records := make([]domain.HistoryRecord, len(models))
	for i, m := range models {
		records[i] = *m.ToDomain()
	}
	return records, nil
}
