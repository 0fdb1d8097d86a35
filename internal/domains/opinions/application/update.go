package application

import (
	"context"
	"errors"
	"fmt"

	optypes "github.com/Apurer/opinions-api/internal/domains/opinions/application/types"
	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
	"github.com/Apurer/opinions-api/internal/domains/opinions/ports"
)

// UpdateOpinion applies a bulk maintenance edit. An unknown opinion is reported in the
// result message rather than as an error. Attachment ids are honoured only when the row
// already belongs to the edited opinion or receptor; any other id is inserted as a new row.
func (s *Service) UpdateOpinion(ctx context.Context, input optypes.UpdateOpinionInput) (optypes.UpdateResult, error) {
	opinion, err := s.store.Opinions().GetByID(ctx, input.OpinionID)
	if errors.Is(err, ports.ErrNotFound) {
		return optypes.UpdateResult{Message: msgOpinionNotFound}, nil
	}
	if err != nil {
		return optypes.UpdateResult{}, mapError("load opinion", err)
	}

	opinionFiles, err := s.resolveAttachments(ctx, input.Attachments)
	if err != nil {
		return failedUpdate(err)
	}
	for i := range opinionFiles {
		id := opinion.ID
		opinionFiles[i].OpinionID = &id
	}
	receptorFiles := make([][]domain.Attachment, len(input.Receptors))
	for i, ru := range input.Receptors {
		files, err := s.resolveAttachments(ctx, ru.Attachments)
		if err != nil {
			return failedUpdate(err)
		}
		for j := range files {
			id := ru.ID
			files[j].ReceptorID = &id
		}
		receptorFiles[i] = files
	}

	err = s.store.Do(ctx, func(repos ports.Repositories) error {
		claimOwned(opinionFiles, opinion.Attachments)
		opinion.Detail = input.Detail
		opinion.Sign(input.SignatureSequence, input.SignatureChain)
		if err := repos.Opinions().Update(ctx, opinion); err != nil {
			return err
		}
		for i, ru := range input.Receptors {
			receptor, err := repos.Receptors().GetByID(ctx, ru.ID)
			if err != nil {
				return notFoundAs(err, "no receptor found with id %d", ru.ID)
			}
			if receptor.OpinionID != opinion.ID {
				return domain.InvalidOperation("receptor %d does not belong to opinion %d", ru.ID, opinion.ID)
			}
			claimOwned(receptorFiles[i], receptor.Attachments)
			receptor.Signer = ru.Signer
			receptor.RequestStatus = ru.RequestStatus
			receptor.SignerComment = ru.SignerComment
			if err := repos.Receptors().Update(ctx, receptor); err != nil {
				return err
			}
			if len(receptorFiles[i]) > 0 {
				if err := repos.Attachments().Upsert(ctx, receptorFiles[i]); err != nil {
					return err
				}
			}
		}
		if len(opinionFiles) > 0 {
			return repos.Attachments().Upsert(ctx, opinionFiles)
		}
		return nil
	})
	if err != nil {
		return failedUpdate(mapError("update opinion", err))
	}
	return optypes.UpdateResult{Found: true, Message: msgOpinionUpdated}, nil
}

func failedUpdate(err error) (optypes.UpdateResult, error) {
	return optypes.UpdateResult{Found: true, Message: fmt.Sprintf("%s: %v", msgOpinionUpdateFail, err)}, err
}

// claimOwned clears the id of every file that is not one of the owner's current attachments.
func claimOwned(files []domain.Attachment, owned []domain.Attachment) {
	ids := make(map[int64]struct{}, len(owned))
	for _, a := range owned {
		ids[a.ID] = struct{}{}
	}
	for i := range files {
		if _, ok := ids[files[i].ID]; !ok {
			files[i].ID = 0
		}
	}
}
