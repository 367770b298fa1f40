package port

import (
	"context"
	"errors"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"github.com/google/uuid"
)

// ErrRunNotFound is returned by FindByID when no run has the given ID.
var ErrRunNotFound = errors.New("run not found")

type RunRepository interface {
	Create(ctx context.Context, run *entity.Run) error
	Update(ctx context.Context, run *entity.Run) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Run, error)
}
