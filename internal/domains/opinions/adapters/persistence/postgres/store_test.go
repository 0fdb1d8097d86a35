package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
	"github.com/Apurer/opinions-api/internal/domains/opinions/ports"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = sqlDB.Close()
	})
	return NewStore(db), mock
}

func TestStore_DoCommitsAndLocksFolio(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("F-100").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := store.Do(ctx, func(repos ports.Repositories) error {
		return repos.Opinions().LockFolio(ctx, "F-100")
	})
	require.NoError(t, err)
}

func TestStore_DoRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.Do(context.Background(), func(ports.Repositories) error { return boom })
	require.ErrorIs(t, err, boom)
}

func TestOpinionRepository_GetByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "opinions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "folio", "active"}))

	_, err := store.Opinions().GetByID(context.Background(), 42)
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestReceptorRepository_CountActive(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "opinion_receptors"`).
		WithArgs(int64(3), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := store.Receptors().CountActive(context.Background(), 3, 9)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestReceptorRepository_UpdateMissingRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE "opinion_receptors" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	receptor, err := store.Receptors().GetByEnvioID(context.Background(), " ")
	require.ErrorIs(t, err, ports.ErrNotFound)
	require.Nil(t, receptor)

	err = store.Receptors().Update(context.Background(), toReceptorRecord(sampleReceptor()).toDomain())
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestAttachmentRepository_SoftDelete(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE "opinion_attachments" SET "deleted"=\$1 WHERE id = ANY\(\$2\)`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, store.Attachments().SoftDelete(context.Background(), []int64{4, 5}))
	require.NoError(t, store.Attachments().SoftDelete(context.Background(), nil))
}

func TestAttachmentRepository_UpsertInsertsUnknownIDWithGeneratedID(t *testing.T) {
	store, mock := newMockStore(t)
	owner := int64(5)

	mock.ExpectExec(`UPDATE "opinion_attachments" SET .* WHERE "id" = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO "opinion_attachments" \("path","name","created_at","element_type_id","document_type_id","opinion_id","receptor_id","deleted"\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(31))

	err := store.Attachments().Upsert(context.Background(), []domain.Attachment{
		{ID: 9999, Path: "/o/a.pdf", Name: "a.pdf", ElementTypeID: 1, DocumentTypeID: 10, OpinionID: &owner},
	})
	require.NoError(t, err)
}

func TestAttachmentRepository_UpsertUpdatesExistingRow(t *testing.T) {
	store, mock := newMockStore(t)
	owner := int64(5)

	mock.ExpectExec(`UPDATE "opinion_attachments" SET .*"deleted"=\$\d+ WHERE "id" = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Attachments().Upsert(context.Background(), []domain.Attachment{
		{ID: 12, Path: "/o/a.pdf", Name: "a.pdf", ElementTypeID: 1, DocumentTypeID: 10, OpinionID: &owner, Deleted: true},
	})
	require.NoError(t, err)
}

func TestTranslateError(t *testing.T) {
	active := &pgconn.PgError{Code: uniqueViolation, ConstraintName: ActiveFolioIndex}
	require.ErrorIs(t, translateError(active), ports.ErrActiveOpinionExists)

	other := &pgconn.PgError{Code: uniqueViolation, ConstraintName: "idx_opinion_receptors_envio_id"}
	require.NotErrorIs(t, translateError(other), ports.ErrActiveOpinionExists)

	require.ErrorIs(t, translateError(gorm.ErrRecordNotFound), ports.ErrNotFound)
	require.NoError(t, translateError(nil))
}

func TestNilStoreIsRejected(t *testing.T) {
	var store *Store
	err := store.Do(context.Background(), func(ports.Repositories) error { return nil })
	require.Error(t, err)
}
