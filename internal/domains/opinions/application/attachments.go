package application

import (
	"context"
	"errors"
	"strings"

	optypes "github.com/Apurer/opinions-api/internal/domains/opinions/application/types"
	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
	"github.com/Apurer/opinions-api/internal/domains/opinions/ports"
)

// AddAttachments appends files to an existing opinion.
func (s *Service) AddAttachments(ctx context.Context, input optypes.AddAttachmentsInput) error {
	if _, err := s.store.Opinions().GetByID(ctx, input.OpinionID); err != nil {
		return mapError("load opinion", notFoundAs(err, "no opinion found with id %d", input.OpinionID))
	}
	attachments, err := s.resolveNewAttachments(ctx, input.Attachments)
	if err != nil {
		return err
	}
	if len(attachments) == 0 {
		return nil
	}
	for i := range attachments {
		opinionID := input.OpinionID
		attachments[i].OpinionID = &opinionID
	}
	err = s.store.Do(ctx, func(repos ports.Repositories) error {
		_, err := repos.Attachments().Append(ctx, attachments)
		return err
	})
	return mapError("add opinion attachments", err)
}

func (s *Service) resolveAttachments(ctx context.Context, inputs []optypes.AttachmentInput) ([]domain.Attachment, error) {
	out := make([]domain.Attachment, 0, len(inputs))
	for _, in := range inputs {
		a, err := s.resolveAttachment(ctx, in)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// resolveNewAttachments is resolveAttachments for append-only paths: every file becomes a
// new live row whatever id or deleted flag the caller sent.
func (s *Service) resolveNewAttachments(ctx context.Context, inputs []optypes.AttachmentInput) ([]domain.Attachment, error) {
	out, err := s.resolveAttachments(ctx, inputs)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].ID = 0
		out[i].Deleted = false
	}
	return out, nil
}

func (s *Service) resolveAttachment(ctx context.Context, in optypes.AttachmentInput) (domain.Attachment, error) {
	elementID, err := s.resolveLookup(ctx, domain.LookupElementType, in.ElementType)
	if err != nil {
		return domain.Attachment{}, err
	}
	documentID, err := s.resolveLookup(ctx, domain.LookupDocumentType, in.DocumentType)
	if err != nil {
		return domain.Attachment{}, err
	}
	createdAt := s.now()
	if in.CreatedAt != nil && !in.CreatedAt.IsZero() {
		createdAt = *in.CreatedAt
	}
	return domain.Attachment{
		ID:             in.ID,
		Path:           in.Path,
		Name:           in.Name,
		CreatedAt:      createdAt,
		ElementTypeID:  elementID,
		DocumentTypeID: documentID,
		Deleted:        in.Deleted,
	}, nil
}

func (s *Service) resolveLookup(ctx context.Context, kind domain.LookupKind, name string) (int64, error) {
	if s.lookups == nil {
		return 0, domain.Persistence("resolve catalogue entry", errors.New("lookup resolver not configured"))
	}
	name = strings.TrimSpace(name)
	id, err := s.lookups.ResolveID(ctx, kind, name)
	if err != nil {
		return 0, mapError("resolve catalogue entry", notFoundAs(err, "unknown %s %q", kind, name))
	}
	return id, nil
}

func (s *Service) toAttachmentViews(ctx context.Context, list []domain.Attachment) ([]optypes.AttachmentView, error) {
	live := make([]domain.Attachment, 0, len(list))
	for _, a := range list {
		if !a.Deleted {
			live = append(live, a)
		}
	}
	domain.SortNewestFirst(live)
	views := make([]optypes.AttachmentView, 0, len(live))
	for _, a := range live {
		view := optypes.AttachmentView{ID: a.ID, Path: a.Path, Name: a.Name, CreatedAt: a.CreatedAt}
		if s.lookups != nil {
			var err error
			if view.ElementType, err = s.lookups.ResolveName(ctx, domain.LookupElementType, a.ElementTypeID); err != nil && !errors.Is(err, ports.ErrNotFound) {
				return nil, mapError("resolve element type", err)
			}
			if view.DocumentType, err = s.lookups.ResolveName(ctx, domain.LookupDocumentType, a.DocumentTypeID); err != nil && !errors.Is(err, ports.ErrNotFound) {
				return nil, mapError("resolve document type", err)
			}
		}
		views = append(views, view)
	}
	return views, nil
}
