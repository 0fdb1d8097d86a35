package postgres

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
	"github.com/Apurer/opinions-api/internal/domains/opinions/ports"
)

var _ ports.ReceptorRepository = (*receptorRepository)(nil)

type receptorRepository struct {
	db *gorm.DB
}

func (r *receptorRepository) live(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Attachments", "deleted = ?", false)
}

func (r *receptorRepository) GetByID(ctx context.Context, id int64) (*domain.Receptor, error) {
	if err := ensureDB(r.db); err != nil {
		return nil, err
	}
	var record receptorRecord
	if err := r.live(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return record.toDomain(), nil
}

func (r *receptorRepository) GetByEnvioID(ctx context.Context, envioID string) (*domain.Receptor, error) {
	if err := ensureDB(r.db); err != nil {
		return nil, err
	}
	if strings.TrimSpace(envioID) == "" {
		return nil, ports.ErrNotFound
	}
	var record receptorRecord
	if err := r.live(ctx).First(&record, "envio_id = ?", envioID).Error; err != nil {
		return nil, translateError(err)
	}
	return record.toDomain(), nil
}

func (r *receptorRepository) CountActive(ctx context.Context, opinionID int64, excludeReceptorID int64) (int, error) {
	if err := ensureDB(r.db); err != nil {
		return 0, err
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&receptorRecord{}).
		Where("opinion_id = ? AND active AND id <> ?", opinionID, excludeReceptorID).
		Count(&count).Error
	return int(count), err
}

func (r *receptorRepository) Update(ctx context.Context, receptor *domain.Receptor) error {
	if err := ensureDB(r.db); err != nil {
		return err
	}
	if receptor == nil {
		return errors.New("receptor is nil")
	}
	rec := toReceptorRecord(receptor)
	result := r.db.WithContext(ctx).
		Model(&receptorRecord{}).
		Where("id = ?", receptor.ID).
		Updates(map[string]any{
			"active":             rec.Active,
			"comments":           rec.Comments,
			"responded_at":       rec.RespondedAt,
			"finalized_by":       rec.FinalizedBy,
			"signature_sequence": rec.SignatureSequence,
			"signature_chain":    rec.SignatureChain,
			"envio_id":           rec.EnvioID,
			"signer":             rec.Signer,
			"request_status":     rec.RequestStatus,
			"signer_comment":     rec.SignerComment,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *receptorRepository) ListPendingSignature(ctx context.Context) ([]*domain.Receptor, error) {
	if err := ensureDB(r.db); err != nil {
		return nil, err
	}
	var records []receptorRecord
	if err := r.db.WithContext(ctx).
		Where("UPPER(TRIM(request_status)) = ?", domain.StatusPendingSignature).
		Order("id").
		Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Receptor, 0, len(records))
	for i := range records {
		out = append(out, records[i].toDomain())
	}
	return out, nil
}
