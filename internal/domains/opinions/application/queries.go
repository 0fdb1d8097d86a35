package application

import (
	"context"
	"sort"
	"strings"

	optypes "github.com/Apurer/opinions-api/internal/domains/opinions/application/types"
	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
)

// ListByFolio returns every opinion of the folio, newest request first.
func (s *Service) ListByFolio(ctx context.Context, folio string) ([]optypes.OpinionSummary, error) {
	folio = strings.TrimSpace(folio)
	opinions, err := s.store.Opinions().ListByFolio(ctx, folio)
	if err != nil {
		return nil, mapError("list opinions", err)
	}
	if len(opinions) == 0 {
		return nil, domain.NotFound("no opinions found for folio %s", folio)
	}
	sort.SliceStable(opinions, func(i, j int) bool {
		return opinions[i].RequestedAt.After(opinions[j].RequestedAt)
	})
	result := make([]optypes.OpinionSummary, 0, len(opinions))
	for _, o := range opinions {
		summary := optypes.OpinionSummary{
			ID:          o.ID,
			Folio:       o.Folio,
			RequestedAt: o.RequestedAt,
			Detail:      o.Detail,
			Active:      o.Active,
			Version:     o.Version,
			Receptors:   make([]optypes.ReceptorSummary, 0, len(o.Receptors)),
		}
		receptors := append([]*domain.Receptor(nil), o.Receptors...)
		sortByResponseDesc(receptors)
		for _, r := range receptors {
			summary.Receptors = append(summary.Receptors, optypes.ReceptorSummary{
				ID:            r.ID,
				Code:          r.Code,
				Name:          r.Name,
				Internal:      r.Internal,
				RespondedAt:   r.RespondedAt,
				Mandatory:     r.Mandatory,
				InProcess:     r.Active,
				EnvioID:       r.EnvioID,
				Signer:        r.Signer,
				RequestStatus: r.RequestStatus,
				SignerComment: r.SignerComment,
			})
		}
		result = append(result, summary)
	}
	return result, nil
}

// GetReceptorDetail returns the opinion seen from one of its receptors.
func (s *Service) GetReceptorDetail(ctx context.Context, receptorID int64) (*optypes.OpinionDetail, error) {
	receptor, err := s.store.Receptors().GetByID(ctx, receptorID)
	if err != nil {
		return nil, mapError("load receptor", notFoundAs(err, "no receptor found with id %d", receptorID))
	}
	opinion, err := s.store.Opinions().GetByID(ctx, receptor.OpinionID)
	if err != nil {
		return nil, mapError("load opinion", notFoundAs(err, "no opinion found for receptor %d", receptorID))
	}
	opinionFiles, err := s.toAttachmentViews(ctx, opinion.Attachments)
	if err != nil {
		return nil, err
	}
	receptorFiles, err := s.toAttachmentViews(ctx, receptor.Attachments)
	if err != nil {
		return nil, err
	}
	return &optypes.OpinionDetail{
		ID:                opinion.ID,
		Folio:             opinion.Folio,
		RequestedAt:       opinion.RequestedAt,
		Detail:            opinion.Detail,
		Active:            opinion.Active,
		Version:           opinion.Version,
		SignatureSequence: opinion.SignatureSequence,
		SignatureChain:    opinion.SignatureChain,
		Attachments:       opinionFiles,
		Receptor: &optypes.ReceptorDetail{
			ID:                receptor.ID,
			Code:              receptor.Code,
			Name:              receptor.Name,
			Internal:          receptor.Internal,
			Mandatory:         receptor.Mandatory,
			Active:            receptor.Active,
			Comments:          receptor.Comments,
			RespondedAt:       receptor.RespondedAt,
			FinalizedBy:       receptor.FinalizedBy,
			SignatureSequence: receptor.SignatureSequence,
			SignatureChain:    receptor.SignatureChain,
			EnvioID:           receptor.EnvioID,
			Signer:            receptor.Signer,
			RequestStatus:     receptor.RequestStatus,
			SignerComment:     receptor.SignerComment,
			Attachments:       receptorFiles,
		},
	}, nil
}

// GetExternalOpinion returns the request detail and files an external authority needs.
func (s *Service) GetExternalOpinion(ctx context.Context, envioID string) (*optypes.ExternalOpinion, error) {
	envioID = strings.TrimSpace(envioID)
	receptor, err := s.store.Receptors().GetByEnvioID(ctx, envioID)
	if err != nil {
		return nil, mapError("load receptor", notFoundAs(err, "no opinion found for envio id %s", envioID))
	}
	opinion, err := s.store.Opinions().GetByID(ctx, receptor.OpinionID)
	if err != nil {
		return nil, mapError("load opinion", notFoundAs(err, "no opinion found for envio id %s", envioID))
	}
	files, err := s.toAttachmentViews(ctx, opinion.Attachments)
	if err != nil {
		return nil, err
	}
	return &optypes.ExternalOpinion{
		OpinionID:   opinion.ID,
		Folio:       opinion.Folio,
		Detail:      opinion.Detail,
		Attachments: files,
	}, nil
}

// PendingSignatureFolios lists the folios with receptors waiting on a signer.
func (s *Service) PendingSignatureFolios(ctx context.Context) ([]string, error) {
	receptors, err := s.store.Receptors().ListPendingSignature(ctx)
	if err != nil {
		return nil, mapError("list pending signatures", err)
	}
	folios := make([]string, 0, len(receptors))
	seenFolio := map[string]struct{}{}
	folioByOpinion := map[int64]string{}
	for _, r := range receptors {
		folio, ok := folioByOpinion[r.OpinionID]
		if !ok {
			opinion, err := s.store.Opinions().GetByID(ctx, r.OpinionID)
			if err != nil {
				return nil, mapError("load opinion", err)
			}
			folio = opinion.Folio
			folioByOpinion[r.OpinionID] = folio
		}
		if _, dup := seenFolio[folio]; dup {
			continue
		}
		seenFolio[folio] = struct{}{}
		folios = append(folios, folio)
	}
	return folios, nil
}

// sortByResponseDesc orders receptors newest response first; unanswered ones go last.
func sortByResponseDesc(list []*domain.Receptor) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].RespondedAt, list[j].RespondedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}
