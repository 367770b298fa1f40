package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"github.com/fiapx/fiapx-frame-extractor/internal/domain/port"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RunRepository struct {
	pool *pgxpool.Pool
}

func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

func (r *RunRepository) Create(ctx context.Context, run *entity.Run) error {
	query := `
		INSERT INTO frame_runs (
			id, video_path, video_key, frame_interval, format, quality,
			status, frame_count, video_duration, output_dir, archive_key,
			attempt, max_attempts, error_message, created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`

	_, err := r.pool.Exec(ctx, query,
		run.ID, run.VideoPath, run.VideoKey, run.Interval, string(run.Format), run.Quality,
		string(run.Status), run.FrameCount, run.VideoDuration, run.OutputDir, run.ArchiveKey,
		run.Attempt, run.MaxAttempts, run.ErrorMessage, run.CreatedAt, run.UpdatedAt, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r *RunRepository) Update(ctx context.Context, run *entity.Run) error {
	query := `
		UPDATE frame_runs SET
			status=$2, frame_count=$3, video_duration=$4, output_dir=$5, archive_key=$6,
			attempt=$7, error_message=$8, updated_at=$9, completed_at=$10
		WHERE id=$1`

	tag, err := r.pool.Exec(ctx, query,
		run.ID, string(run.Status), run.FrameCount, run.VideoDuration, run.OutputDir,
		run.ArchiveKey, run.Attempt, run.ErrorMessage, run.UpdatedAt, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update run %s: %w", run.ID, port.ErrRunNotFound)
	}
	return nil
}

func (r *RunRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Run, error) {
	query := `
		SELECT id, video_path, video_key, frame_interval, format, quality,
			status, frame_count, video_duration, output_dir, archive_key,
			attempt, max_attempts, error_message, created_at, updated_at, completed_at
		FROM frame_runs WHERE id=$1`

	run := &entity.Run{}
	var format, status string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.VideoPath, &run.VideoKey, &run.Interval, &format, &run.Quality,
		&status, &run.FrameCount, &run.VideoDuration, &run.OutputDir, &run.ArchiveKey,
		&run.Attempt, &run.MaxAttempts, &run.ErrorMessage, &run.CreatedAt, &run.UpdatedAt, &run.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("find run %s: %w", id, port.ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find run by id: %w", err)
	}
	run.Format = entity.OutputFormat(format)
	run.Status = entity.RunState(status)
	return run, nil
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
