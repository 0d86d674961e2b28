package postgres

import (
	"context"
	"testing"
	"time"

	"doclife/internal/model"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var artifactCols = []string{"id", "document_id", "tenant_id", "version", "object_key", "file_name", "expires_at", "created_at"}

func TestArtifactPostgres(t *testing.T) {
	db, mock := newMock(t)
	repo := NewArtifactPostgres(db)
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("create", func(t *testing.T) {
		a := &model.Artifact{
			ID: "art-1", DocumentID: "doc-1", TenantID: "t1", Version: 2,
			ObjectKey: "artifacts/art-1.txt", FileName: "art-1.txt",
			ExpiresAt: now.Add(10 * time.Minute), CreatedAt: now,
		}
		mock.ExpectExec("INSERT INTO download_artifacts").
			WithArgs("art-1", "doc-1", "t1", 2, "artifacts/art-1.txt", "art-1.txt", a.ExpiresAt, now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Create(ctx, a))
	})

	t.Run("find by file name", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM download_artifacts WHERE file_name = \$1`).
			WithArgs("art-1.txt").
			WillReturnRows(sqlmock.NewRows(artifactCols).
				AddRow("art-1", "doc-1", "t1", 2, "artifacts/art-1.txt", "art-1.txt", now, now))

		a, err := repo.FindByFileName(ctx, "art-1.txt")

		require.NoError(t, err)
		assert.Equal(t, "artifacts/art-1.txt", a.ObjectKey)
	})

	t.Run("list expired", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM download_artifacts\s+WHERE expires_at <= \$1 ORDER BY expires_at ASC LIMIT \$2`).
			WithArgs(now, 100).
			WillReturnRows(sqlmock.NewRows(artifactCols).
				AddRow("art-1", "doc-1", "t1", 2, "artifacts/art-1.txt", "art-1.txt", now, now))

		items, err := repo.ListExpired(ctx, now, 100)

		require.NoError(t, err)
		assert.Len(t, items, 1)
	})

	t.Run("delete", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM download_artifacts WHERE id = \$1`).
			WithArgs("art-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Delete(ctx, "art-1"))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
