package application

import (
	"context"

	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
	"github.com/Apurer/opinions-api/internal/domains/opinions/ports"
)

// CompensateByReceptorID reverts a committed internal finalize.
func (s *Service) CompensateByReceptorID(ctx context.Context, receptorID int64) error {
	return s.reopen(ctx, "revert internal opinion", func(repo ports.ReceptorRepository) (*domain.Receptor, error) {
		receptor, err := repo.GetByID(ctx, receptorID)
		return receptor, notFoundAs(err, "no receptor found with id %d", receptorID)
	})
}

// CompensateByEnvioID reverts a committed external finalize.
func (s *Service) CompensateByEnvioID(ctx context.Context, envioID string) error {
	return s.reopen(ctx, "revert external opinion", func(repo ports.ReceptorRepository) (*domain.Receptor, error) {
		receptor, err := repo.GetByEnvioID(ctx, envioID)
		return receptor, notFoundAs(err, "no receptor found with envio id %s", envioID)
	})
}

func (s *Service) reopen(ctx context.Context, op string, load func(ports.ReceptorRepository) (*domain.Receptor, error)) error {
	err := s.store.Do(ctx, func(repos ports.Repositories) error {
		receptor, err := load(repos.Receptors())
		if err != nil {
			return err
		}
		if !receptor.Reopen() {
			return nil
		}
		if err := repos.Receptors().Update(ctx, receptor); err != nil {
			return err
		}
		if receptor.Internal {
			if ids := attachmentIDs(receptor.LiveAttachments()); len(ids) > 0 {
				if err := repos.Attachments().SoftDelete(ctx, ids); err != nil {
					return err
				}
			}
		}
		opinion, err := repos.Opinions().GetByID(ctx, receptor.OpinionID)
		if err != nil {
			return err
		}
		if !opinion.Active {
			opinion.Active = true
			return repos.Opinions().Update(ctx, opinion)
		}
		return nil
	})
	return mapError(op, err)
}

func attachmentIDs(list []domain.Attachment) []int64 {
	ids := make([]int64, 0, len(list))
	for _, a := range list {
		if a.ID != 0 {
			ids = append(ids, a.ID)
		}
	}
	return ids
}
