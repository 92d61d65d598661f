package memory

import (
	"context"
	"testing"
	"time"

	"surveylens/domain/core"
	"surveylens/domain/survey"
	"surveylens/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upload(year string, created time.Time) *survey.Upload {
	id := core.NewUploadID()
	return &survey.Upload{ID: id.String(), FileName: year + ".xlsx", Year: year, CreatedAt: created}
}

func TestUploadRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUploadRepository()
	base := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	older := upload("2024", base)
	newer := upload("2024", base.Add(time.Hour))
	other := upload("2023", base.Add(2*time.Hour))
	for _, u := range []*survey.Upload{older, newer, other} {
		require.NoError(t, repo.Create(ctx, u, &survey.StoredAnalysis{UploadID: u.ID}))
	}

	t.Run("duplicate", func(t *testing.T) {
		err := repo.Create(ctx, older, nil)
		assert.Equal(t, errors.CodeDatabaseError, errors.GetCode(err))
	})

	t.Run("list by year newest first", func(t *testing.T) {
		got, err := repo.List(ctx, "2024", 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, newer.ID, got[0].ID)
		assert.Equal(t, older.ID, got[1].ID)
	})

	t.Run("list limit", func(t *testing.T) {
		got, err := repo.List(ctx, "", 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, other.ID, got[0].ID)
	})

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetByID(ctx, core.UploadID(newer.ID))
		require.NoError(t, err)
		assert.Equal(t, *newer, *got)

		analysis, err := repo.GetAnalysis(ctx, core.UploadID(newer.ID))
		require.NoError(t, err)
		assert.Equal(t, newer.ID, analysis.UploadID)
	})

	t.Run("delete", func(t *testing.T) {
		id := core.UploadID(older.ID)
		require.NoError(t, repo.Delete(ctx, id))

		_, err := repo.GetByID(ctx, id)
		assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
		_, err = repo.GetAnalysis(ctx, id)
		assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
		assert.Equal(t, errors.CodeNotFound, errors.GetCode(repo.Delete(ctx, id)))
	})
}

func TestBlobStore(t *testing.T) {
	ctx := context.Background()
	store := NewBlobStore()

	data := []byte("a,b\n1,2\n")
	require.NoError(t, store.Put(ctx, "k", data, "text/csv"))
	data[0] = 'x'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(got))
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}
