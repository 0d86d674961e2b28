package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var versionCols = []string{"id", "document_id", "number", "storage_key", "content_hash", "mime_type", "size", "comment", "created_by", "created_at"}

func TestVersionPostgres_ListByDocument(t *testing.T) {
	db, mock := newMock(t)
	repo := NewVersionPostgres(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM document_versions WHERE document_id = \$1 ORDER BY number ASC`).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows(versionCols).
			AddRow("v-1", "doc-1", 1, "documents/doc-1/v1", "aa", "application/pdf", 10, "", "alice", now).
			AddRow("v-2", "doc-1", 2, "documents/doc-1/v2", "bb", "application/pdf", 12, "fix typo", "bob", now))

	versions, err := repo.ListByDocument(context.Background(), "doc-1")

	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[1].Number)
	assert.Equal(t, "bob", versions[1].CreatedBy)
	assert.Equal(t, int64(12), versions[1].Size)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVersionPostgres_FindByNumber(t *testing.T) {
	db, mock := newMock(t)
	repo := NewVersionPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM document_versions WHERE document_id = \$1 AND number = \$2`).
			WithArgs("doc-1", 1).
			WillReturnRows(sqlmock.NewRows(versionCols).
				AddRow("v-1", "doc-1", 1, "documents/doc-1/v1", "aa", "text/plain", 3, "", "alice", time.Now()))

		v, err := repo.FindByNumber(ctx, "doc-1", 1)

		require.NoError(t, err)
		assert.Equal(t, "aa", v.ContentHash)
	})

	t.Run("missing", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM document_versions`).
			WithArgs("doc-1", 9).
			WillReturnError(sql.ErrNoRows)

		v, err := repo.FindByNumber(ctx, "doc-1", 9)

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, v)
	})
}
