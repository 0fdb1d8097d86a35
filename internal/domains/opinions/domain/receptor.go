package domain

import (
	"strings"
	"time"
)

// StatusPendingSignature marks receptors whose response is waiting on a signer.
const StatusPendingSignature = "PENDIENTE DE FIRMA"

// ExternalEntity identifies the authority an external receptor is delivered to.
type ExternalEntity struct {
	ID   string
	Type string
}

// Receptor is one party asked to respond within an opinion.
type Receptor struct {
	ID                int64
	OpinionID         int64
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
	Attachments       []Attachment
}

// Signature is the optional electronic signature carried by a response.
type Signature struct {
	Sequence int
	Chain    string
}

// Response holds the fields recorded when a receptor answers.
type Response struct {
	RespondedAt time.Time
	Comments    string
	FinalizedBy string
	Signature   *Signature
	Attachments []Attachment
}

// NewReceptor validates the identifying fields of a receptor.
func NewReceptor(code, name string, internal, mandatory bool) (*Receptor, error) {
	if strings.TrimSpace(code) == "" {
		return nil, InvalidOperation("receptor code is required")
	}
	return &Receptor{
		Code:      code,
		Name:      name,
		Internal:  internal,
		Mandatory: mandatory,
		Active:    true,
	}, nil
}

// EnsurePath rejects finalizing through the path that does not match the receptor kind.
func (r *Receptor) EnsurePath(internal bool) error {
	if r.Internal == internal {
		return nil
	}
	if r.Internal {
		return InvalidOperation("receptor %d is internal and cannot be finalized as external", r.ID)
	}
	return InvalidOperation("receptor %d is external and cannot be finalized as internal", r.ID)
}

// Finalize records the response and deactivates the receptor. It is legal exactly once.
func (r *Receptor) Finalize(resp Response) error {
	if !r.Active {
		return Conflict("receptor %d has already been finalized", r.ID)
	}
	respondedAt := resp.RespondedAt
	r.RespondedAt = &respondedAt
	if r.Internal {
		r.Comments = resp.Comments
		r.FinalizedBy = resp.FinalizedBy
	}
	if resp.Signature != nil {
		seq := resp.Signature.Sequence
		r.SignatureSequence = &seq
		r.SignatureChain = resp.Signature.Chain
	}
	for _, a := range resp.Attachments {
		receptorID := r.ID
		a.ReceptorID = &receptorID
		a.OpinionID = nil
		r.Attachments = append(r.Attachments, a)
	}
	r.Active = false
	return nil
}

// Reopen undoes Finalize. Internal receptors also lose comments and finalizer.
// It reports whether anything was reset.
func (r *Receptor) Reopen() bool {
	if r.Active {
		return false
	}
	r.Active = true
	r.RespondedAt = nil
	r.SignatureSequence = nil
	r.SignatureChain = ""
	if r.Internal {
		r.Comments = ""
		r.FinalizedBy = ""
	}
	return true
}

// PendingSignature reports whether the receptor awaits a signer.
func (r *Receptor) PendingSignature() bool {
	return strings.EqualFold(strings.TrimSpace(r.RequestStatus), StatusPendingSignature)
}

// LiveAttachments returns attachments that were not soft-deleted.
func (r *Receptor) LiveAttachments() []Attachment {
	return liveAttachments(r.Attachments)
}

// Clone returns a deep copy.
func (r *Receptor) Clone() *Receptor {
	if r == nil {
		return nil
	}
	clone := *r
	if r.RespondedAt != nil {
		at := *r.RespondedAt
		clone.RespondedAt = &at
	}
	if r.SignatureSequence != nil {
		seq := *r.SignatureSequence
		clone.SignatureSequence = &seq
	}
	clone.Attachments = cloneAttachments(r.Attachments)
	return &clone
}
