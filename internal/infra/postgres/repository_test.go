package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"github.com/fiapx/fiapx-frame-extractor/internal/domain/port"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestRunRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("frames"),
		tcpostgres.WithUsername("frames_user"),
		tcpostgres.WithPassword("frames_pass"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	defer pgContainer.Terminate(ctx)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := Connect(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	require.NoError(t, RunMigrations(ctx, pool))
	require.NoError(t, RunMigrations(ctx, pool), "migrations are idempotent")

	repo := NewRunRepository(pool)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, port.ErrRunNotFound)

	req := entity.ProcessRequest{VideoPath: "/videos/clip.mp4", Interval: 10, Format: entity.FormatJPG, Quality: 80}
	run := entity.NewRun(req, "uploads/clip.mp4", 3)
	require.NoError(t, repo.Create(ctx, run))

	run.MarkStarted()
	run.MarkCompleted(&entity.ProcessResult{
		Metadata:        entity.VideoMetadata{Duration: 42.5},
		Analysis:        entity.FrameAnalysis{TotalFrames: 5},
		OutputDirectory: "/videos/processed_output",
	}, run.ID.String()+"/frames.zip")
	require.NoError(t, repo.Update(ctx, run))

	found, err := repo.FindByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StateCompleted, found.Status)
	assert.Equal(t, entity.FormatJPG, found.Format)
	assert.Equal(t, 10, found.Interval)
	assert.Equal(t, 5, found.FrameCount)
	assert.InDelta(t, 42.5, found.VideoDuration, 1e-9)
	assert.Equal(t, "/videos/processed_output", found.OutputDir)
	assert.Equal(t, 1, found.Attempt)
	require.NotNil(t, found.CompletedAt)

	missing := entity.NewRun(req, "", 1)
	assert.ErrorIs(t, repo.Update(ctx, missing), port.ErrRunNotFound)
}
