package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"github.com/fiapx/fiapx-frame-extractor/internal/domain/port"
	"github.com/google/uuid"
)

// RunRepository keeps run history for the lifetime of the process. The worker uses it
// when no database is configured, so retry accounting still works within one instance.
type RunRepository struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]entity.Run
}

func NewRunRepository() *RunRepository {
	return &RunRepository{runs: make(map[uuid.UUID]entity.Run)}
}

func (r *RunRepository) Create(_ context.Context, run *entity.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; ok {
		return fmt.Errorf("insert run: duplicate id %s", run.ID)
	}
	r.runs[run.ID] = *run
	return nil
}

func (r *RunRepository) Update(_ context.Context, run *entity.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; !ok {
		return fmt.Errorf("update run %s: %w", run.ID, port.ErrRunNotFound)
	}
	r.runs[run.ID] = *run
	return nil
}

func (r *RunRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, fmt.Errorf("find run %s: %w", id, port.ErrRunNotFound)
	}
	return &run, nil
}
