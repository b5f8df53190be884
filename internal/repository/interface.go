package repository

import (
	"context"

	"github.com/weiawesome/streamchat/internal/domain"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// HistoryFilter narrows a history listing. Zero values match everything.
type HistoryFilter struct {
	Status     domain.HistoryStatus
	StreamName string
	Limit      int
}

// HistoryRepository persists session lifecycle events.
type HistoryRepository interface {
	Record(ctx context.Context, rec *domain.HistoryRecord) error
	List(ctx context.Context, filter HistoryFilter) ([]domain.HistoryRecord, error)
}

// NopHistoryRepository discards records. Used when no database is configured.
type NopHistoryRepository struct{}

func (NopHistoryRepository) Record(ctx context.Context, rec *domain.HistoryRecord) error {
	return nil
}

func (NopHistoryRepository) List(ctx context.Context, filter HistoryFilter) ([]domain.HistoryRecord, error) {
	return []domain.HistoryRecord{}, nil
}
