package domain

import (
	"strings"
	"time"
)

// Opinion is one round of asking receptors for input on a case folio.
type Opinion struct {
	ID                int64
	Folio             string
	RequestedAt       time.Time
	Detail            string
	Active            bool
	Version           int
	SignatureSequence int
	SignatureChain    string
	Receptors         []*Receptor
	Attachments       []Attachment
}

// NewOpinion builds an active opinion with the given version.
func NewOpinion(folio, detail string, version int, requestedAt time.Time) (*Opinion, error) {
	folio = strings.TrimSpace(folio)
	if folio == "" {
		return nil, InvalidOperation("folio is required")
	}
	if version < 1 {
		version = 1
	}
	return &Opinion{
		Folio:       folio,
		Detail:      detail,
		RequestedAt: requestedAt,
		Active:      true,
		Version:     version,
	}, nil
}

// Sign records the requester signature.
func (o *Opinion) Sign(sequence int, chain string) {
	o.SignatureSequence = sequence
	o.SignatureChain = chain
}

// AddReceptor attaches a new active receptor.
func (o *Opinion) AddReceptor(r *Receptor) {
	if r == nil {
		return
	}
	r.OpinionID = o.ID
	r.Active = true
	o.Receptors = append(o.Receptors, r)
}

// RefreshActive keeps the parent flag equal to OR(receptor.Active).
// It reports whether the flag changed.
func (o *Opinion) RefreshActive() bool {
	active := false
	for _, r := range o.Receptors {
		if r != nil && r.Active {
			active = true
			break
		}
	}
	changed := o.Active != active
	o.Active = active
	return changed
}

// LiveAttachments returns attachments that were not soft-deleted.
func (o *Opinion) LiveAttachments() []Attachment {
	return liveAttachments(o.Attachments)
}

// Clone returns a deep copy.
func (o *Opinion) Clone() *Opinion {
	if o == nil {
		return nil
	}
	clone := *o
	if len(o.Receptors) > 0 {
		clone.Receptors = make([]*Receptor, 0, len(o.Receptors))
		for _, r := range o.Receptors {
			clone.Receptors = append(clone.Receptors, r.Clone())
		}
	}
	clone.Attachments = cloneAttachments(o.Attachments)
	return &clone
}
