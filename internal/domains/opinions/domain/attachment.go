package domain

import (
	"sort"
	"time"
)

// Attachment is a file reference owned by an opinion or by one of its receptors.
// Attachments are never physically removed; Deleted marks them as retired.
type Attachment struct {
	ID             int64
	Path           string
	Name           string
	CreatedAt      time.Time
	ElementTypeID  int64
	DocumentTypeID int64
	OpinionID      *int64
	ReceptorID     *int64
	Deleted        bool
}

// LookupKind names a reference catalogue.
type LookupKind string

const (
	LookupElementType  LookupKind = "element_type"
	LookupDocumentType LookupKind = "document_type"
)

// LookupEntry is an immutable id/name pair of a reference catalogue.
type LookupEntry struct {
	ID   int64
	Name string
}

// SortNewestFirst orders attachments by creation time, newest first.
func SortNewestFirst(list []Attachment) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

func liveAttachments(list []Attachment) []Attachment {
	out := make([]Attachment, 0, len(list))
	for _, a := range list {
		if !a.Deleted {
			out = append(out, a)
		}
	}
	return out
}

func cloneAttachments(list []Attachment) []Attachment {
	if len(list) == 0 {
		return nil
	}
	out := make([]Attachment, 0, len(list))
	for _, a := range list {
		out = append(out, a.Clone())
	}
	return out
}

// Clone returns a copy that shares no pointers with the receiver.
func (a Attachment) Clone() Attachment {
	if a.OpinionID != nil {
		id := *a.OpinionID
		a.OpinionID = &id
	}
	if a.ReceptorID != nil {
		id := *a.ReceptorID
		a.ReceptorID = &id
	}
	return a
}
