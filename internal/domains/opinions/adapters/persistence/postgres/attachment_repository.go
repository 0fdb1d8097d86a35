package postgres

import (
	"context"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
	"github.com/Apurer/opinions-api/internal/domains/opinions/ports"
)

var _ ports.AttachmentRepository = (*attachmentRepository)(nil)

var attachmentColumns = []string{
	"path", "name", "created_at", "element_type_id", "document_type_id",
	"opinion_id", "receptor_id", "deleted",
}

type attachmentRepository struct {
	db *gorm.DB
}

func (r *attachmentRepository) Append(ctx context.Context, attachments []domain.Attachment) ([]domain.Attachment, error) {
	if err := ensureDB(r.db); err != nil {
		return nil, err
	}
	out := make([]domain.Attachment, len(attachments))
	copy(out, attachments)
	for i := range out {
		out[i].ID = 0
	}
	if err := insertAttachments(r.db.WithContext(ctx), out); err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert overwrites rows by id, including the deleted flag. Rows with a zero or unknown id
// are inserted and receive a generated id.
func (r *attachmentRepository) Upsert(ctx context.Context, attachments []domain.Attachment) error {
	if err := ensureDB(r.db); err != nil {
		return err
	}
	db := r.db.WithContext(ctx)
	var fresh []domain.Attachment
	for _, a := range attachments {
		if a.ID == 0 {
			fresh = append(fresh, a)
			continue
		}
		rec := toAttachmentRecord(a)
		res := db.Model(&attachmentRecord{ID: rec.ID}).
			Select(attachmentColumns).
			Updates(&rec)
		if res.Error != nil {
			return translateError(res.Error)
		}
		if res.RowsAffected == 0 {
			a.ID = 0
			fresh = append(fresh, a)
		}
	}
	return insertAttachments(db, fresh)
}

func (r *attachmentRepository) SoftDelete(ctx context.Context, ids []int64) error {
	if err := ensureDB(r.db); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&attachmentRecord{}).
		Where("id = ANY(?)", pq.Array(ids)).
		Update("deleted", true).Error
}

// insertAttachments creates the rows and writes the generated ids back into list.
func insertAttachments(db *gorm.DB, list []domain.Attachment) error {
	if len(list) == 0 {
		return nil
	}
	records := make([]attachmentRecord, 0, len(list))
	for _, a := range list {
		records = append(records, toAttachmentRecord(a))
	}
	if err := db.Create(&records).Error; err != nil {
		return translateError(err)
	}
	for i := range records {
		list[i].ID = records[i].ID
	}
	return nil
}
