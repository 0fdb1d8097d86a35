package types

import (
	"time"

	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
)

// CaseInput carries the case metadata needed to address external receptors.
type CaseInput struct {
	CaseID            string
	CaseFolio         string
	ResponsibleAreaID *int
}

// ReceptorInput describes one receptor of a new opinion request.
type ReceptorInput struct {
	Code          string
	Name          string
	Internal      bool
	Mandatory     bool
	Signer        string
	RequestStatus string
	Entity        *domain.ExternalEntity
}

// RequestOpinionsInput creates a new opinion for a folio.
type RequestOpinionsInput struct {
	Folio             string
	Detail            string
	SignatureSequence int
	SignatureChain    string
	Receptors         []ReceptorInput
	Case              *CaseInput
	// IdempotencyKey makes client retries replay the first result.
	IdempotencyKey string
}

// AttachmentInput references a stored file by catalogue names.
type AttachmentInput struct {
	ID           int64
	Path         string
	Name         string
	CreatedAt    *time.Time
	ElementType  string
	DocumentType string
	Deleted      bool
}

// AddAttachmentsInput appends files to an opinion.
type AddAttachmentsInput struct {
	OpinionID   int64
	Attachments []AttachmentInput
}

// FinalizeInternalInput records the response of an internal receptor.
type FinalizeInternalInput struct {
	ReceptorID  int64
	Comments    string
	FinalizedBy string
	Signature   *domain.Signature
	Attachments []AttachmentInput
}

// FinalizeExternalInput records the response of an external authority.
type FinalizeExternalInput struct {
	EnvioID   string
	Signature *domain.Signature
}

// ReceptorUpdateInput edits the signer data of a receptor.
type ReceptorUpdateInput struct {
	ID            int64
	Signer        string
	RequestStatus string
	SignerComment string
	Attachments   []AttachmentInput
}

// UpdateOpinionInput is the bulk maintenance edit of an opinion.
type UpdateOpinionInput struct {
	OpinionID         int64
	Detail            string
	SignatureSequence int
	SignatureChain    string
	Attachments       []AttachmentInput
	Receptors         []ReceptorUpdateInput
}

// FinalizationOutcome is what a committed finalize leaves behind for the post-commit step.
type FinalizationOutcome struct {
	OpinionID     int64
	ReceptorID    int64
	EnvioID       string
	Folio         string
	OpinionClosed bool
}

// CompensationKey selects which compensation runs for a failed case-status update.
type CompensationKey struct {
	ReceptorID int64
	EnvioID    string
}

// ByEnvio reports whether the key addresses an external receptor.
func (k CompensationKey) ByEnvio() bool { return k.EnvioID != "" }
