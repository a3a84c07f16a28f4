package repository

import (
	"context"

	"github.com/railzwaylabs/dormitory/internal/scheduler/domain"
	"github.com/railzwaylabs/dormitory/pkg/repository"
	"gorm.io/gorm"
)

type checkpointRepo struct {
	store repository.Repository[domain.Checkpoint]
}

func NewCheckpointRepository(db *gorm.DB) domain.CheckpointRepository {
	return &checkpointRepo{store: repository.ProvideStore[domain.Checkpoint](db)}
}

func (r *checkpointRepo) Find(ctx context.Context, runDate string) (*domain.Checkpoint, error) {
	return r.store.FindOne(ctx, "run_date = ?", runDate)
}

func (r *checkpointRepo) Save(ctx context.Context, cp *domain.Checkpoint) error {
	return r.store.Save(ctx, cp)
}
