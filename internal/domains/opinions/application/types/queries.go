package types

import "time"

// AttachmentView is an attachment with catalogue names resolved.
type AttachmentView struct {
	ID           int64
	Path         string
	Name         string
	CreatedAt    time.Time
	ElementType  string
	DocumentType string
}

// ReceptorSummary is the receptor row of a folio listing.
type ReceptorSummary struct {
	ID            int64
	Code          string
	Name          string
	Internal      bool
	RespondedAt   *time.Time
	Mandatory     bool
	InProcess     bool
	EnvioID       string
	Signer        string
	RequestStatus string
	SignerComment string
}

// OpinionSummary is one opinion of a folio listing.
type OpinionSummary struct {
	ID          int64
	Folio       string
	RequestedAt time.Time
	Detail      string
	Active      bool
	Version     int
	Receptors   []ReceptorSummary
}

// ReceptorDetail is the full state of one receptor.
type ReceptorDetail struct {
	ID                int64
	Code              string
	Name              string
	Internal          bool
	Mandatory         bool
	Active            bool
	Comments          string
	RespondedAt       *time.Time
	FinalizedBy       string
	SignatureSequence *int
	SignatureChain    string
	EnvioID           string
	Signer            string
	RequestStatus     string
	SignerComment     string
	Attachments       []AttachmentView
}

// OpinionDetail combines the opinion, its attachments and one receptor.
type OpinionDetail struct {
	ID                int64
	Folio             string
	RequestedAt       time.Time
	Detail            string
	Active            bool
	Version           int
	SignatureSequence int
	SignatureChain    string
	Attachments       []AttachmentView
	Receptor          *ReceptorDetail
}

// ExternalOpinion is what an external authority sees for its delivery.
type ExternalOpinion struct {
	OpinionID   int64
	Folio       string
	Detail      string
	Attachments []AttachmentView
}

// UpdateResult is the soft outcome of a bulk update.
type UpdateResult struct {
	Found   bool
	Message string
}
