package ports

import (
	"context"
	"errors"

	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
)

// ErrNotFound is returned by repositories when the requested row does not exist.
var ErrNotFound = errors.New("opinion record not found")

// ErrActiveOpinionExists is returned by the store when the one-active-opinion-per-folio
// constraint rejects a write.
var ErrActiveOpinionExists = errors.New("active opinion already exists for folio")

// OpinionRepository persists the opinion aggregate root.
type OpinionRepository interface {
	// Create inserts the opinion together with its receptors and attachments and fills in their ids.
	Create(ctx context.Context, opinion *domain.Opinion) error
	// GetByID loads the opinion with receptors and live attachments.
	GetByID(ctx context.Context, id int64) (*domain.Opinion, error)
	// LockFolio serialises creators of the same folio until the unit of work ends.
	LockFolio(ctx context.Context, folio string) error
	// FindActiveByFolio returns the active opinion of the folio or nil.
	FindActiveByFolio(ctx context.Context, folio string) (*domain.Opinion, error)
	// MaxVersion scans every opinion of the folio, active or not; zero when none exist.
	MaxVersion(ctx context.Context, folio string) (int, error)
	// ListByFolio returns opinions newest first, receptors newest response first.
	ListByFolio(ctx context.Context, folio string) ([]*domain.Opinion, error)
	// Update writes the scalar fields of the opinion (not its children).
	Update(ctx context.Context, opinion *domain.Opinion) error
}

// ReceptorRepository persists receptors.
type ReceptorRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Receptor, error)
	GetByEnvioID(ctx context.Context, envioID string) (*domain.Receptor, error)
	// CountActive counts active receptors of the opinion other than the excluded one.
	CountActive(ctx context.Context, opinionID int64, excludeReceptorID int64) (int, error)
	// Update writes the scalar fields of the receptor (not its attachments).
	Update(ctx context.Context, receptor *domain.Receptor) error
	// ListPendingSignature returns receptors whose request status awaits a signer.
	ListPendingSignature(ctx context.Context) ([]*domain.Receptor, error)
}

// AttachmentRepository persists attachments. Rows are soft-deleted only.
type AttachmentRepository interface {
	// Append inserts new attachments and fills in their ids.
	Append(ctx context.Context, attachments []domain.Attachment) ([]domain.Attachment, error)
	// Upsert inserts attachments with a zero id and overwrites the others. An id that
	// matches no row is inserted as a new row with a generated id.
	Upsert(ctx context.Context, attachments []domain.Attachment) error
	// SoftDelete flags the attachments as deleted.
	SoftDelete(ctx context.Context, ids []int64) error
}

// Repositories bundles the repositories bound to one unit of work.
type Repositories interface {
	Opinions() OpinionRepository
	Receptors() ReceptorRepository
	Attachments() AttachmentRepository
}

// UnitOfWork runs fn inside one store transaction. A non-nil error from fn rolls back.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(repos Repositories) error) error
}

// Store exposes the repositories for read paths plus the unit of work for writes.
type Store interface {
	Repositories
	UnitOfWork
}
