package job

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// repositories returns every Repository implementation under test.
func repositories(t *testing.T) map[string]Repository {
	t.Helper()

	sqliteRepo, err := NewSQLiteRepository(context.Background(), filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteRepo.Close() })

	return map[string]Repository{
		"memory": NewMemoryRepository(),
		"sqlite": sqliteRepo,
	}
}

func TestRepository_SaveAndFind(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			job := New(KindConvert)
			job.InputPath = "/work/upload_1.mp4"
			job.OwnsInput = true
			job.PushToS3 = true

			require.NoError(t, repo.Save(ctx, job))

			saved, err := repo.FindByID(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, job.ID, saved.ID)
			assert.Equal(t, KindConvert, saved.Kind)
			assert.Equal(t, StatusInQueue, saved.Status)
			assert.Equal(t, "/work/upload_1.mp4", saved.InputPath)
			assert.True(t, saved.OwnsInput)
			assert.True(t, saved.PushToS3)
			assert.True(t, job.CreatedAt.Equal(saved.CreatedAt))
		})
	}
}

func TestRepository_SaveUpdates(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			job := New(KindFetch)
			job.SourceURL = "https://example.com/v"
			require.NoError(t, repo.Save(ctx, job))

			require.NoError(t, job.Start())
			job.UpdateProgress(50)
			require.NoError(t, repo.Save(ctx, job))

			saved, err := repo.FindByID(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, StatusRunning, saved.Status)
			assert.Equal(t, 50, saved.Progress)
			assert.False(t, saved.StartedAt.IsZero())

			require.NoError(t, job.Complete())
			job.SetOutput("/work/jobs/x/video.mp4", "https://bucket/video.mp4")
			require.NoError(t, repo.Save(ctx, job))

			saved, err = repo.FindByID(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, StatusCompleted, saved.Status)
			assert.Equal(t, "/work/jobs/x/video.mp4", saved.OutputPath)
			assert.Equal(t, "https://bucket/video.mp4", saved.OutputURL)
			assert.Equal(t, "https://example.com/v", saved.SourceURL)
		})
	}
}

func TestRepository_FindByID_NotFound(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.FindByID(context.Background(), "nonexistent")
			assert.ErrorIs(t, err, ErrJobNotFound)
		})
	}
}

func TestRepository_FindByID_ReturnsCopy(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			job := New(KindConvert)
			require.NoError(t, repo.Save(ctx, job))

			found, err := repo.FindByID(ctx, job.ID)
			require.NoError(t, err)
			found.Progress = 99
			_ = found.Start()

			original, err := repo.FindByID(ctx, job.ID)
			require.NoError(t, err)
			assert.Zero(t, original.Progress, "modifying returned job should not affect repository")
			assert.Equal(t, StatusInQueue, original.Status)
		})
	}
}

func TestRepository_SaveStoresSnapshot(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			job := New(KindConvert)
			require.NoError(t, repo.Save(ctx, job))

			job.UpdateProgress(40)
			job.InputPath = "/changed.mp4"

			stored, err := repo.FindByID(ctx, job.ID)
			require.NoError(t, err)
			assert.Zero(t, stored.Progress, "changes after Save must not leak into the repository")
			assert.Empty(t, stored.InputPath)
		})
	}
}

func TestRepository_List_SameCreationTimeOrderedByID(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			created := time.Now()
			for _, jobID := range []string{"job-c", "job-a", "job-b"} {
				j := NewWithID(jobID, KindFetch)
				j.CreatedAt = created
				require.NoError(t, repo.Save(ctx, j))
			}

			jobs, err := repo.List(ctx)
			require.NoError(t, err)
			require.Len(t, jobs, 3)
			assert.Equal(t, "job-a", jobs[0].ID)
			assert.Equal(t, "job-b", jobs[1].ID)
			assert.Equal(t, "job-c", jobs[2].ID)
		})
	}
}

func TestRepository_List(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			jobs, err := repo.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, jobs)

			base := time.Now()
			older := NewWithID("job-b", KindFetch)
			older.CreatedAt = base.Add(-time.Minute)
			newer := NewWithID("job-a", KindConvert)
			newer.CreatedAt = base
			require.NoError(t, repo.Save(ctx, newer))
			require.NoError(t, repo.Save(ctx, older))

			jobs, err = repo.List(ctx)
			require.NoError(t, err)
			require.Len(t, jobs, 2)
			assert.Equal(t, "job-b", jobs[0].ID, "oldest first")
			assert.Equal(t, "job-a", jobs[1].ID)

			jobs[0].Progress = 99
			again, err := repo.FindByID(ctx, "job-b")
			require.NoError(t, err)
			assert.Zero(t, again.Progress, "modifying listed job should not affect repository")
		})
	}
}

func TestRepository_Delete(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			job := New(KindConvert)
			require.NoError(t, repo.Save(ctx, job))

			require.NoError(t, repo.Delete(ctx, job.ID))

			_, err := repo.FindByID(ctx, job.ID)
			assert.ErrorIs(t, err, ErrJobNotFound)
			assert.ErrorIs(t, repo.Delete(ctx, job.ID), ErrJobNotFound)
		})
	}
}

func TestRepository_ConcurrentAccess(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var wg sync.WaitGroup

			// Concurrent writes
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					_ = repo.Save(ctx, New(KindConvert))
				}
			}()

			// Concurrent reads
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					_, _ = repo.List(ctx)
				}
			}()

			wg.Wait()

			jobs, err := repo.List(ctx)
			require.NoError(t, err)
			assert.Len(t, jobs, 50)
		})
	}
}

func TestSQLiteRepository_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "jobs.db")

	repo, err := NewSQLiteRepository(ctx, path)
	require.NoError(t, err)

	job := New(KindConvert)
	require.NoError(t, job.Start())
	job.SetConversion(120, 96, 54)
	require.NoError(t, repo.Save(ctx, job))
	require.NoError(t, repo.Close())

	reopened, err := NewSQLiteRepository(ctx, path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	saved, err := reopened.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, saved.Status)
	assert.Equal(t, 120, saved.Frames)
	assert.Equal(t, 96, saved.Width)
	assert.Equal(t, 54, saved.Height)
}
