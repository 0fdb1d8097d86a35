package opinions

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	optypes "github.com/Apurer/opinions-api/internal/domains/opinions/application/types"
	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
	opinionsports "github.com/Apurer/opinions-api/internal/domains/opinions/ports"
)

const (
	// CommitInternalActivityName records an internal receptor's response in one store transaction.
	CommitInternalActivityName = "opinions.activities.CommitInternalFinalization"
	// CommitExternalActivityName records an external authority's response in one store transaction.
	CommitExternalActivityName = "opinions.activities.CommitExternalFinalization"
	// NotifyCaseFinalizedActivityName tells the case-tracking service the request is finalized.
	NotifyCaseFinalizedActivityName = "opinions.activities.NotifyCaseFinalized"
	// CompensateActivityName reverts a committed finalize after a failed notification.
	CompensateActivityName = "opinions.activities.CompensateFinalization"
)

// Activities exposes the finalize saga steps to Temporal.
type Activities struct {
	saga opinionsports.FinalizationSaga
}

func NewActivities(saga opinionsports.FinalizationSaga) *Activities {
	return &Activities{saga: saga}
}

func (a *Activities) CommitInternalFinalization(ctx context.Context, input optypes.FinalizeInternalInput) (optypes.FinalizationOutcome, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.saga == nil {
		return optypes.FinalizationOutcome{}, errors.New("finalization activities not initialized")
	}
	logger.Info("CommitInternalFinalization started", "receptorId", input.ReceptorID)
	outcome, err := a.saga.CommitInternalFinalization(ctx, input)
	if err != nil {
		logger.Error("CommitInternalFinalization failed", "receptorId", input.ReceptorID, "error", err)
		return optypes.FinalizationOutcome{}, AsApplicationError(err)
	}
	logger.Info("CommitInternalFinalization completed", "receptorId", input.ReceptorID, "opinionClosed", outcome.OpinionClosed)
	return outcome, nil
}

func (a *Activities) CommitExternalFinalization(ctx context.Context, input optypes.FinalizeExternalInput) (optypes.FinalizationOutcome, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.saga == nil {
		return optypes.FinalizationOutcome{}, errors.New("finalization activities not initialized")
	}
	logger.Info("CommitExternalFinalization started", "envioId", input.EnvioID)
	outcome, err := a.saga.CommitExternalFinalization(ctx, input)
	if err != nil {
		logger.Error("CommitExternalFinalization failed", "envioId", input.EnvioID, "error", err)
		return optypes.FinalizationOutcome{}, AsApplicationError(err)
	}
	logger.Info("CommitExternalFinalization completed", "envioId", input.EnvioID, "opinionClosed", outcome.OpinionClosed)
	return outcome, nil
}

func (a *Activities) NotifyCaseFinalized(ctx context.Context, folio string) error {
	logger := activity.GetLogger(ctx)
	if a == nil || a.saga == nil {
		return errors.New("finalization activities not initialized")
	}
	if err := a.saga.NotifyCaseFinalized(ctx, folio); err != nil {
		logger.Warn("NotifyCaseFinalized failed", "folio", folio, "error", err)
		return AsApplicationError(err)
	}
	logger.Info("NotifyCaseFinalized completed", "folio", folio)
	return nil
}

// CompensateFinalization reopens the receptor addressed by key. Reopening an active receptor is a no-op,
// so retries are safe.
func (a *Activities) CompensateFinalization(ctx context.Context, key optypes.CompensationKey) error {
	logger := activity.GetLogger(ctx)
	if a == nil || a.saga == nil {
		return errors.New("finalization activities not initialized")
	}
	var err error
	if key.ByEnvio() {
		err = a.saga.CompensateByEnvioID(ctx, key.EnvioID)
	} else {
		err = a.saga.CompensateByReceptorID(ctx, key.ReceptorID)
	}
	if err != nil {
		logger.Error("CompensateFinalization failed", "receptorId", key.ReceptorID, "envioId", key.EnvioID, "error", err)
		return AsApplicationError(err)
	}
	logger.Info("CompensateFinalization completed", "receptorId", key.ReceptorID, "envioId", key.EnvioID)
	return nil
}

// AsApplicationError carries the domain error kind across Temporal as the application error type.
// Only persistence failures stay retryable.
func AsApplicationError(err error) error {
	var de *domain.Error
	if !errors.As(err, &de) {
		return err
	}
	msg := de.Msg
	if msg == "" {
		msg = de.Error()
	}
	if de.Kind == domain.KindPersistence {
		return temporal.NewApplicationError(msg, de.Kind.String())
	}
	return temporal.NewNonRetryableApplicationError(msg, de.Kind.String(), nil)
}

// FromApplicationError restores the domain error kind from a workflow or activity failure.
func FromApplicationError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		if kind := domain.ParseKind(appErr.Type()); kind != domain.KindUnknown {
			return &domain.Error{Kind: kind, Msg: appErr.Error()}
		}
	}
	return err
}
