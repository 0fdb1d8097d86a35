package application

import (
	"context"
	"errors"
	"strings"

	optypes "github.com/Apurer/opinions-api/internal/domains/opinions/application/types"
	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
	"github.com/Apurer/opinions-api/internal/domains/opinions/ports"
)

// FinalizeInternal records an internal receptor's response. When it closes the opinion the
// case-status service is told after commit; a failed notification is compensated locally.
func (s *Service) FinalizeInternal(ctx context.Context, input optypes.FinalizeInternalInput) error {
	outcome, err := s.CommitInternalFinalization(ctx, input)
	if err != nil {
		return err
	}
	return s.completeFinalization(ctx, outcome, optypes.CompensationKey{ReceptorID: outcome.ReceptorID})
}

// FinalizeExternal records an external authority's response identified by its envio id.
func (s *Service) FinalizeExternal(ctx context.Context, input optypes.FinalizeExternalInput) error {
	outcome, err := s.CommitExternalFinalization(ctx, input)
	if err != nil {
		return err
	}
	return s.completeFinalization(ctx, outcome, optypes.CompensationKey{EnvioID: outcome.EnvioID})
}

// CommitInternalFinalization is the local, transactional half of FinalizeInternal.
func (s *Service) CommitInternalFinalization(ctx context.Context, input optypes.FinalizeInternalInput) (optypes.FinalizationOutcome, error) {
	attachments, err := s.resolveNewAttachments(ctx, input.Attachments)
	if err != nil {
		return optypes.FinalizationOutcome{}, err
	}
	var outcome optypes.FinalizationOutcome
	err = s.store.Do(ctx, func(repos ports.Repositories) error {
		receptor, err := repos.Receptors().GetByID(ctx, input.ReceptorID)
		if err != nil {
			return notFoundAs(err, "no receptor found with id %d", input.ReceptorID)
		}
		if err := receptor.EnsurePath(true); err != nil {
			return err
		}
		outcome, err = s.finalizeReceptor(ctx, repos, receptor, domain.Response{
			RespondedAt: s.now(),
			Comments:    input.Comments,
			FinalizedBy: input.FinalizedBy,
			Signature:   input.Signature,
			Attachments: attachments,
		})
		return err
	})
	if err != nil {
		return optypes.FinalizationOutcome{}, mapError("finalize internal opinion", err)
	}
	return outcome, nil
}

// CommitExternalFinalization is the local, transactional half of FinalizeExternal.
func (s *Service) CommitExternalFinalization(ctx context.Context, input optypes.FinalizeExternalInput) (optypes.FinalizationOutcome, error) {
	envioID := strings.TrimSpace(input.EnvioID)
	if envioID == "" {
		return optypes.FinalizationOutcome{}, domain.InvalidOperation("envio id is required")
	}
	var outcome optypes.FinalizationOutcome
	err := s.store.Do(ctx, func(repos ports.Repositories) error {
		receptor, err := repos.Receptors().GetByEnvioID(ctx, envioID)
		if err != nil {
			return notFoundAs(err, "no receptor found with envio id %s", envioID)
		}
		if err := receptor.EnsurePath(false); err != nil {
			return err
		}
		outcome, err = s.finalizeReceptor(ctx, repos, receptor, domain.Response{
			RespondedAt: s.now(),
			Signature:   input.Signature,
		})
		return err
	})
	if err != nil {
		return optypes.FinalizationOutcome{}, mapError("finalize external opinion", err)
	}
	return outcome, nil
}

// NotifyCaseFinalized marks the case as "request finalized" on the case-tracking service.
func (s *Service) NotifyCaseFinalized(ctx context.Context, folio string) error {
	if s.remotes.CaseStatus == nil {
		return domain.RemoteService("case status service is not configured", nil)
	}
	if err := s.remotes.CaseStatus.MarkRequestFinalized(ctx, folio); err != nil {
		return domain.RemoteService("case status update failed", err)
	}
	return nil
}

func (s *Service) finalizeReceptor(ctx context.Context, repos ports.Repositories, receptor *domain.Receptor, resp domain.Response) (optypes.FinalizationOutcome, error) {
	before := len(receptor.Attachments)
	if err := receptor.Finalize(resp); err != nil {
		return optypes.FinalizationOutcome{}, err
	}
	if err := repos.Receptors().Update(ctx, receptor); err != nil {
		return optypes.FinalizationOutcome{}, err
	}
	if added := receptor.Attachments[before:]; len(added) > 0 {
		if _, err := repos.Attachments().Append(ctx, added); err != nil {
			return optypes.FinalizationOutcome{}, err
		}
	}
	remaining, err := repos.Receptors().CountActive(ctx, receptor.OpinionID, receptor.ID)
	if err != nil {
		return optypes.FinalizationOutcome{}, err
	}
	opinion, err := repos.Opinions().GetByID(ctx, receptor.OpinionID)
	if err != nil {
		return optypes.FinalizationOutcome{}, err
	}
	outcome := optypes.FinalizationOutcome{
		OpinionID:  opinion.ID,
		ReceptorID: receptor.ID,
		EnvioID:    receptor.EnvioID,
		Folio:      opinion.Folio,
	}
	if remaining == 0 && opinion.Active {
		opinion.Active = false
		if err := repos.Opinions().Update(ctx, opinion); err != nil {
			return optypes.FinalizationOutcome{}, err
		}
		outcome.OpinionClosed = true
	}
	return outcome, nil
}

func (s *Service) completeFinalization(ctx context.Context, outcome optypes.FinalizationOutcome, key optypes.CompensationKey) error {
	if !outcome.OpinionClosed {
		return nil
	}
	notifyErr := s.NotifyCaseFinalized(ctx, outcome.Folio)
	if notifyErr == nil {
		return nil
	}
	var compensationErr error
	if key.ByEnvio() {
		compensationErr = s.CompensateByEnvioID(ctx, key.EnvioID)
	} else {
		compensationErr = s.CompensateByReceptorID(ctx, key.ReceptorID)
	}
	return FinalizationFailure(notifyErr, compensationErr)
}

// FinalizationFailure builds the error surfaced when the case-status update failed after
// commit. A nil compensationErr means the local state was reverted.
func FinalizationFailure(notifyErr, compensationErr error) error {
	if compensationErr == nil {
		return &domain.Error{Kind: domain.KindRemoteService, Msg: msgCaseStatusFailed, Err: notifyErr}
	}
	return &domain.Error{
		Kind: domain.KindRemoteService,
		Msg:  msgCompensationAlso,
		Err:  errors.Join(notifyErr, compensationErr),
	}
}
