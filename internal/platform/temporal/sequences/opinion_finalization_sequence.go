package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/opinions-api/internal/domains/opinions/application"
	optypes "github.com/Apurer/opinions-api/internal/domains/opinions/application/types"
	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
	opinionactivities "github.com/Apurer/opinions-api/internal/platform/temporal/activities/opinions"
)

// FinalizationCommand selects the finalize path; exactly one field is set.
type FinalizationCommand struct {
	Internal *optypes.FinalizeInternalInput
	External *optypes.FinalizeExternalInput
}

// RunOpinionFinalizationSequence commits the response, notifies the case-tracking service once when
// the opinion closed, and compensates locally if that notification fails.
func RunOpinionFinalizationSequence(ctx workflow.Context, cmd FinalizationCommand) error {
	logger := workflow.GetLogger(ctx)
	commitOptions := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}
	notifyOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}
	compensateOptions := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	}

	var (
		outcome optypes.FinalizationOutcome
		key     optypes.CompensationKey
		err     error
	)
	commitCtx := workflow.WithActivityOptions(ctx, commitOptions)
	switch {
	case cmd.Internal != nil:
		err = workflow.ExecuteActivity(commitCtx, opinionactivities.CommitInternalActivityName, *cmd.Internal).Get(ctx, &outcome)
		key = optypes.CompensationKey{ReceptorID: outcome.ReceptorID}
	case cmd.External != nil:
		err = workflow.ExecuteActivity(commitCtx, opinionactivities.CommitExternalActivityName, *cmd.External).Get(ctx, &outcome)
		key = optypes.CompensationKey{EnvioID: outcome.EnvioID}
	default:
		return temporal.NewNonRetryableApplicationError("finalization command has no input", domain.KindInvalidOperation.String(), nil)
	}
	if err != nil {
		logger.Error("finalization commit failed", "error", err)
		return err
	}
	if !outcome.OpinionClosed {
		logger.Info("finalization committed, opinion still open", "opinionId", outcome.OpinionID)
		return nil
	}

	notifyErr := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, notifyOptions), opinionactivities.NotifyCaseFinalizedActivityName, outcome.Folio).Get(ctx, nil)
	if notifyErr == nil {
		logger.Info("finalization completed", "opinionId", outcome.OpinionID, "folio", outcome.Folio)
		return nil
	}
	logger.Warn("case status update failed, compensating", "opinionId", outcome.OpinionID, "error", notifyErr)
	compensationErr := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, compensateOptions), opinionactivities.CompensateActivityName, key).Get(ctx, nil)
	if compensationErr != nil {
		logger.Error("compensation failed", "opinionId", outcome.OpinionID, "error", compensationErr)
	}
	return opinionactivities.AsApplicationError(application.FinalizationFailure(notifyErr, compensationErr))
}
