package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
	"github.com/Apurer/opinions-api/internal/domains/opinions/ports"
)

var _ ports.OpinionRepository = (*opinionRepository)(nil)

type opinionRepository struct {
	db *gorm.DB
}

// withChildren preloads receptors (newest response first) and live attachments.
func withChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Receptors", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("responded_at DESC NULLS LAST").Order("id")
		}).
		Preload("Receptors.Attachments", "deleted = ?", false).
		Preload("Attachments", "deleted = ?", false)
}

// Create inserts the opinion, then its receptors and their attachments.
func (r *opinionRepository) Create(ctx context.Context, opinion *domain.Opinion) error {
	if err := ensureDB(r.db); err != nil {
		return err
	}
	if opinion == nil {
		return errors.New("opinion is nil")
	}
	db := r.db.WithContext(ctx)
	record := toOpinionRecord(opinion)
	if err := db.Omit(clause.Associations).Create(&record).Error; err != nil {
		return translateError(err)
	}
	opinion.ID = record.ID

	for _, receptor := range opinion.Receptors {
		receptor.OpinionID = opinion.ID
		rec := toReceptorRecord(receptor)
		if err := db.Omit(clause.Associations).Create(&rec).Error; err != nil {
			return translateError(err)
		}
		receptor.ID = rec.ID
		for i := range receptor.Attachments {
			id := receptor.ID
			receptor.Attachments[i].ReceptorID = &id
		}
		if err := insertAttachments(db, receptor.Attachments); err != nil {
			return err
		}
	}
	for i := range opinion.Attachments {
		id := opinion.ID
		opinion.Attachments[i].OpinionID = &id
	}
	return insertAttachments(db, opinion.Attachments)
}

func (r *opinionRepository) GetByID(ctx context.Context, id int64) (*domain.Opinion, error) {
	if err := ensureDB(r.db); err != nil {
		return nil, err
	}
	var record opinionRecord
	if err := withChildren(r.db.WithContext(ctx)).First(&record, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return record.toDomain(), nil
}

// LockFolio takes a transaction-scoped advisory lock keyed by the folio.
func (r *opinionRepository) LockFolio(ctx context.Context, folio string) error {
	if err := ensureDB(r.db); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", folio).Error
}

func (r *opinionRepository) FindActiveByFolio(ctx context.Context, folio string) (*domain.Opinion, error) {
	if err := ensureDB(r.db); err != nil {
		return nil, err
	}
	var record opinionRecord
	err := withChildren(r.db.WithContext(ctx)).Where("folio = ? AND active", folio).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record.toDomain(), nil
}

func (r *opinionRepository) MaxVersion(ctx context.Context, folio string) (int, error) {
	if err := ensureDB(r.db); err != nil {
		return 0, err
	}
	var version int
	err := r.db.WithContext(ctx).
		Model(&opinionRecord{}).
		Where("folio = ?", folio).
		Select("COALESCE(MAX(version), 0)").
		Scan(&version).Error
	return version, err
}

func (r *opinionRepository) ListByFolio(ctx context.Context, folio string) ([]*domain.Opinion, error) {
	if err := ensureDB(r.db); err != nil {
		return nil, err
	}
	var records []opinionRecord
	if err := withChildren(r.db.WithContext(ctx)).
		Where("folio = ?", folio).
		Order("requested_at DESC").Order("id DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Opinion, 0, len(records))
	for i := range records {
		out = append(out, records[i].toDomain())
	}
	return out, nil
}

func (r *opinionRepository) Update(ctx context.Context, opinion *domain.Opinion) error {
	if err := ensureDB(r.db); err != nil {
		return err
	}
	if opinion == nil {
		return errors.New("opinion is nil")
	}
	result := r.db.WithContext(ctx).
		Model(&opinionRecord{}).
		Where("id = ?", opinion.ID).
		Updates(map[string]any{
			"detail":             opinion.Detail,
			"active":             opinion.Active,
			"signature_sequence": opinion.SignatureSequence,
			"signature_chain":    opinion.SignatureChain,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}
