package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	optypes "github.com/Apurer/opinions-api/internal/domains/opinions/application/types"
	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
	"github.com/Apurer/opinions-api/internal/domains/opinions/ports"
)

// RequestOpinions creates a new active opinion for the folio. External receptors are
// registered with the delivery services before anything is committed; any failure
// leaves no trace in the store.
func (s *Service) RequestOpinions(ctx context.Context, input optypes.RequestOpinionsInput) (int64, error) {
	if err := validateRequest(input); err != nil {
		return 0, err
	}
	folio := strings.TrimSpace(input.Folio)

	key := strings.TrimSpace(input.IdempotencyKey)
	var fingerprint string
	if key != "" && s.idempotency != nil {
		var err error
		fingerprint, err = FingerprintRequest(input)
		if err != nil {
			return 0, fmt.Errorf("fingerprint opinion request: %w", err)
		}
		existing, err := s.idempotency.Get(ctx, key)
		if err != nil {
			return 0, mapError("load idempotency key", err)
		}
		if existing != nil {
			if existing.RequestHash != fingerprint {
				return 0, mapError("replay opinion request", ports.ErrIdempotencyConflict)
			}
			return existing.OpinionID, nil
		}
	}

	active, err := s.store.Opinions().FindActiveByFolio(ctx, folio)
	if err != nil {
		return 0, mapError("check active opinion", err)
	}
	if active != nil {
		return 0, domain.Conflict(msgDuplicateActive)
	}

	var opinionID int64
	err = s.store.Do(ctx, func(repos ports.Repositories) error {
		opinions := repos.Opinions()
		if err := opinions.LockFolio(ctx, folio); err != nil {
			return err
		}
		// checked again under the folio lock; the store's unique index is the last guard
		active, err := opinions.FindActiveByFolio(ctx, folio)
		if err != nil {
			return err
		}
		if active != nil {
			return domain.Conflict(msgDuplicateActive)
		}
		maxVersion, err := opinions.MaxVersion(ctx, folio)
		if err != nil {
			return err
		}
		opinion, err := domain.NewOpinion(folio, input.Detail, maxVersion+1, s.now())
		if err != nil {
			return err
		}
		opinion.Sign(input.SignatureSequence, input.SignatureChain)

		var registered []string
		for _, in := range input.Receptors {
			receptor, err := domain.NewReceptor(in.Code, in.Name, in.Internal, in.Mandatory)
			if err != nil {
				return err
			}
			receptor.Signer = in.Signer
			receptor.RequestStatus = in.RequestStatus
			if !in.Internal {
				envioID, err := s.registerDelivery(ctx, input.Case, *in.Entity)
				if err != nil {
					if len(registered) > 0 {
						return &domain.Error{
							Kind: domain.KindRemoteService,
							Msg:  fmt.Sprintf("delivery for receptor %s failed after registering %s", in.Code, strings.Join(registered, ", ")),
							Err:  err,
						}
					}
					return err
				}
				receptor.EnvioID = envioID
				registered = append(registered, envioID)
			}
			opinion.AddReceptor(receptor)
		}
		if err := opinions.Create(ctx, opinion); err != nil {
			return err
		}
		opinionID = opinion.ID
		return nil
	})
	if err != nil {
		return 0, mapError("store opinion request", err)
	}

	if key != "" && s.idempotency != nil {
		if _, err := s.idempotency.Save(ctx, ports.IdempotencyRecord{Key: key, RequestHash: fingerprint, OpinionID: opinionID}); err != nil {
			// the opinion is committed; a lost key only costs the replay
			s.logger.WarnContext(ctx, "failed to save idempotency key",
				slog.String("idempotency_key", key),
				slog.Int64("opinion_id", opinionID),
				slog.String("error", err.Error()),
			)
		}
	}
	return opinionID, nil
}

func (s *Service) registerDelivery(ctx context.Context, meta *optypes.CaseInput, entity domain.ExternalEntity) (string, error) {
	if s.remotes.Design == nil || s.remotes.Registration == nil {
		return "", domain.RemoteService("delivery services are not configured", nil)
	}
	design, err := s.remotes.Design.FetchDesign(ctx)
	if err != nil {
		return "", domain.RemoteService("could not obtain the delivery design for the external opinion", err)
	}
	envioID, err := s.remotes.Registration.Register(ctx, entity, decorateDesign(design, meta))
	if err != nil {
		return "", domain.RemoteService("could not register the delivery of the external opinion", err)
	}
	if strings.TrimSpace(envioID) == "" {
		return "", domain.RemoteService("delivery registration returned an empty envio id", nil)
	}
	return envioID, nil
}

// decorateDesign injects the case metadata the registration service expects.
func decorateDesign(design ports.Design, meta *optypes.CaseInput) ports.Design {
	out := make(ports.Design, len(design)+3)
	for k, v := range design {
		out[k] = v
	}
	if meta == nil {
		return out
	}
	if meta.ResponsibleAreaID != nil {
		out["idAreaResponsable"] = *meta.ResponsibleAreaID
	}
	out["folioCrearAsunto"] = meta.CaseFolio
	out["idAsunto"] = meta.CaseID
	return out
}

func validateRequest(input optypes.RequestOpinionsInput) error {
	if strings.TrimSpace(input.Folio) == "" {
		return domain.InvalidOperation("folio is required")
	}
	if len(input.Receptors) == 0 {
		return domain.InvalidOperation("at least one receptor is required")
	}
	for _, r := range input.Receptors {
		if r.Internal {
			continue
		}
		if r.Entity == nil || strings.TrimSpace(r.Entity.ID) == "" {
			return domain.InvalidOperation("external receptor %s requires the target authority", r.Code)
		}
		if input.Case == nil || input.Case.ResponsibleAreaID == nil {
			return domain.InvalidOperation("case metadata and responsible area are required for external receptors")
		}
	}
	return nil
}
