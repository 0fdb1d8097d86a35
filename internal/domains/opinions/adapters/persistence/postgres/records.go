package postgres

import (
	"time"

	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
)

// ActiveFolioIndex is the partial unique index that allows one active opinion per folio.
const ActiveFolioIndex = "ux_opinions_active_folio"

// opinionRecord maps the opinion aggregate root to a relational table.
type opinionRecord struct {
	ID                int64              `gorm:"primaryKey;column:id"`
	Folio             string             `gorm:"column:folio;size:64;index"`
	RequestedAt       time.Time          `gorm:"column:requested_at;index"`
	Detail            string             `gorm:"column:detail;type:text"`
	Active            bool               `gorm:"column:active"`
	Version           int                `gorm:"column:version"`
	SignatureSequence int                `gorm:"column:signature_sequence"`
	SignatureChain    string             `gorm:"column:signature_chain;type:text"`
	CreatedAt         time.Time          `gorm:"column:created_at"`
	UpdatedAt         time.Time          `gorm:"column:updated_at"`
	Receptors         []receptorRecord   `gorm:"foreignKey:OpinionID"`
	Attachments       []attachmentRecord `gorm:"foreignKey:OpinionID"`
}

func (opinionRecord) TableName() string { return "opinions" }

type receptorRecord struct {
	ID                int64              `gorm:"primaryKey;column:id"`
	OpinionID         int64              `gorm:"column:opinion_id;index"`
	Code              string             `gorm:"column:code;size:64"`
	Name              string             `gorm:"column:name"`
	Internal          bool               `gorm:"column:internal"`
	Mandatory         bool               `gorm:"column:mandatory"`
	Active            bool               `gorm:"column:active;index"`
	Comments          string             `gorm:"column:comments;type:text"`
	RespondedAt       *time.Time         `gorm:"column:responded_at"`
	FinalizedBy       string             `gorm:"column:finalized_by"`
	SignatureSequence *int               `gorm:"column:signature_sequence"`
	SignatureChain    string             `gorm:"column:signature_chain;type:text"`
	EnvioID           *string            `gorm:"column:envio_id;size:128;uniqueIndex"`
	Signer            string             `gorm:"column:signer"`
	RequestStatus     string             `gorm:"column:request_status;size:64;index"`
	SignerComment     string             `gorm:"column:signer_comment;type:text"`
	Attachments       []attachmentRecord `gorm:"foreignKey:ReceptorID"`
}

func (receptorRecord) TableName() string { return "opinion_receptors" }

type attachmentRecord struct {
	ID             int64     `gorm:"primaryKey;column:id"`
	Path           string    `gorm:"column:path"`
	Name           string    `gorm:"column:name"`
	CreatedAt      time.Time `gorm:"column:created_at;index"`
	ElementTypeID  int64     `gorm:"column:element_type_id"`
	DocumentTypeID int64     `gorm:"column:document_type_id"`
	OpinionID      *int64    `gorm:"column:opinion_id;index"`
	ReceptorID     *int64    `gorm:"column:receptor_id;index"`
	Deleted        bool      `gorm:"column:deleted"`
}

func (attachmentRecord) TableName() string { return "opinion_attachments" }

func toOpinionRecord(o *domain.Opinion) opinionRecord {
	return opinionRecord{
		ID:                o.ID,
		Folio:             o.Folio,
		RequestedAt:       o.RequestedAt,
		Detail:            o.Detail,
		Active:            o.Active,
		Version:           o.Version,
		SignatureSequence: o.SignatureSequence,
		SignatureChain:    o.SignatureChain,
	}
}

func (r opinionRecord) toDomain() *domain.Opinion {
	o := &domain.Opinion{
		ID:                r.ID,
		Folio:             r.Folio,
		RequestedAt:       r.RequestedAt,
		Detail:            r.Detail,
		Active:            r.Active,
		Version:           r.Version,
		SignatureSequence: r.SignatureSequence,
		SignatureChain:    r.SignatureChain,
	}
	for i := range r.Receptors {
		o.Receptors = append(o.Receptors, r.Receptors[i].toDomain())
	}
	o.Attachments = toDomainAttachments(r.Attachments)
	return o
}

func toReceptorRecord(r *domain.Receptor) receptorRecord {
	rec := receptorRecord{
		ID:                r.ID,
		OpinionID:         r.OpinionID,
		Code:              r.Code,
		Name:              r.Name,
		Internal:          r.Internal,
		Mandatory:         r.Mandatory,
		Active:            r.Active,
		Comments:          r.Comments,
		RespondedAt:       r.RespondedAt,
		FinalizedBy:       r.FinalizedBy,
		SignatureSequence: r.SignatureSequence,
		SignatureChain:    r.SignatureChain,
		Signer:            r.Signer,
		RequestStatus:     r.RequestStatus,
		SignerComment:     r.SignerComment,
	}
	if r.EnvioID != "" {
		envioID := r.EnvioID
		rec.EnvioID = &envioID
	}
	return rec
}

func (r receptorRecord) toDomain() *domain.Receptor {
	out := &domain.Receptor{
		ID:                r.ID,
		OpinionID:         r.OpinionID,
		Code:              r.Code,
		Name:              r.Name,
		Internal:          r.Internal,
		Mandatory:         r.Mandatory,
		Active:            r.Active,
		Comments:          r.Comments,
		RespondedAt:       r.RespondedAt,
		FinalizedBy:       r.FinalizedBy,
		SignatureSequence: r.SignatureSequence,
		SignatureChain:    r.SignatureChain,
		Signer:            r.Signer,
		RequestStatus:     r.RequestStatus,
		SignerComment:     r.SignerComment,
		Attachments:       toDomainAttachments(r.Attachments),
	}
	if r.EnvioID != nil {
		out.EnvioID = *r.EnvioID
	}
	return out
}

func toAttachmentRecord(a domain.Attachment) attachmentRecord {
	return attachmentRecord{
		ID:             a.ID,
		Path:           a.Path,
		Name:           a.Name,
		CreatedAt:      a.CreatedAt,
		ElementTypeID:  a.ElementTypeID,
		DocumentTypeID: a.DocumentTypeID,
		OpinionID:      a.OpinionID,
		ReceptorID:     a.ReceptorID,
		Deleted:        a.Deleted,
	}
}

func (r attachmentRecord) toDomain() domain.Attachment {
	return domain.Attachment{
		ID:             r.ID,
		Path:           r.Path,
		Name:           r.Name,
		CreatedAt:      r.CreatedAt,
		ElementTypeID:  r.ElementTypeID,
		DocumentTypeID: r.DocumentTypeID,
		OpinionID:      r.OpinionID,
		ReceptorID:     r.ReceptorID,
		Deleted:        r.Deleted,
	}
}

func toDomainAttachments(records []attachmentRecord) []domain.Attachment {
	if len(records) == 0 {
		return nil
	}
	out := make([]domain.Attachment, 0, len(records))
	for _, r := range records {
		out = append(out, r.toDomain())
	}
	domain.SortNewestFirst(out)
	return out
}
