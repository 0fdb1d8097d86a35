package migrations

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Run applies the opinions schema, including the partial unique index that keeps one
// active opinion per folio.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	if err := db.AutoMigrate(
		&opinionRecord{},
		&receptorRecord{},
		&attachmentRecord{},
		&elementTypeRecord{},
		&documentTypeRecord{},
		&idempotencyRecord{},
	); err != nil {
		return err
	}
	for _, stmt := range []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_opinions_active_folio ON opinions (folio) WHERE active`,
		`CREATE INDEX IF NOT EXISTS idx_opinion_attachments_live ON opinion_attachments (opinion_id, receptor_id) WHERE NOT deleted`,
	} {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply %q: %w", stmt, err)
		}
	}
	return nil
}

// Opinion schema mirrors the opinions Postgres adapter.
type opinionRecord struct {
	ID                int64     `gorm:"primaryKey;column:id"`
	Folio             string    `gorm:"column:folio;size:64;index"`
	RequestedAt       time.Time `gorm:"column:requested_at;index"`
	Detail            string    `gorm:"column:detail;type:text"`
	Active            bool      `gorm:"column:active"`
	Version           int       `gorm:"column:version"`
	SignatureSequence int       `gorm:"column:signature_sequence"`
	SignatureChain    string    `gorm:"column:signature_chain;type:text"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (opinionRecord) TableName() string { return "opinions" }

type receptorRecord struct {
	ID                int64      `gorm:"primaryKey;column:id"`
	OpinionID         int64      `gorm:"column:opinion_id;index"`
	Code              string     `gorm:"column:code;size:64"`
	Name              string     `gorm:"column:name"`
	Internal          bool       `gorm:"column:internal"`
	Mandatory         bool       `gorm:"column:mandatory"`
	Active            bool       `gorm:"column:active;index"`
	Comments          string     `gorm:"column:comments;type:text"`
	RespondedAt       *time.Time `gorm:"column:responded_at"`
	FinalizedBy       string     `gorm:"column:finalized_by"`
	SignatureSequence *int       `gorm:"column:signature_sequence"`
	SignatureChain    string     `gorm:"column:signature_chain;type:text"`
	EnvioID           *string    `gorm:"column:envio_id;size:128;uniqueIndex"`
	Signer            string     `gorm:"column:signer"`
	RequestStatus     string     `gorm:"column:request_status;size:64;index"`
	SignerComment     string     `gorm:"column:signer_comment;type:text"`
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

// Lookup catalogues are read-only reference data loaded by Seed.
type elementTypeRecord struct {
	ID   int64  `gorm:"primaryKey;column:id"`
	Name string `gorm:"column:name;size:128;uniqueIndex"`
}

func (elementTypeRecord) TableName() string { return "element_types" }

type documentTypeRecord struct {
	ID   int64  `gorm:"primaryKey;column:id"`
	Name string `gorm:"column:name;size:128;uniqueIndex"`
}

func (documentTypeRecord) TableName() string { return "document_types" }

// Idempotency schema mirrors the idempotency store.
type idempotencyRecord struct {
	Key         string    `gorm:"primaryKey;column:key;size:255"`
	RequestHash string    `gorm:"column:request_hash;size:128"`
	OpinionID   int64     `gorm:"column:opinion_id"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (idempotencyRecord) TableName() string { return "opinion_idempotency_keys" }
