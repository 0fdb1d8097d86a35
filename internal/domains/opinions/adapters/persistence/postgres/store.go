package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/Apurer/opinions-api/internal/domains/opinions/ports"
)

var _ ports.Store = (*Store)(nil)

const uniqueViolation = "23505"

// Store persists opinions in PostgreSQL using GORM. Caller manages the DB lifecycle;
// the schema is owned by the migrations package.
type Store struct {
	db *gorm.DB
}

// NewStore wires a PostgreSQL-backed store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Do runs fn inside a database transaction. Repositories handed to fn share it.
func (s *Store) Do(ctx context.Context, fn func(ports.Repositories) error) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) Opinions() ports.OpinionRepository { return &opinionRepository{db: s.db} }

func (s *Store) Receptors() ports.ReceptorRepository { return &receptorRepository{db: s.db} }

func (s *Store) Attachments() ports.AttachmentRepository { return &attachmentRepository{db: s.db} }

func (s *Store) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres opinion store not configured")
	}
	return nil
}

func ensureDB(db *gorm.DB) error {
	if db == nil {
		return errors.New("postgres opinion store not configured")
	}
	return nil
}

// translateError maps driver errors onto the port sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ports.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == ActiveFolioIndex {
		return errors.Join(ports.ErrActiveOpinionExists, err)
	}
	return err
}
