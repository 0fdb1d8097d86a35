package opinions

import (
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/opinions-api/internal/platform/temporal/sequences"
)

const (
	// FinalizationWorkflowName is the public identifier for registering the workflow.
	FinalizationWorkflowName = "opinions.workflows.Finalization"
	// FinalizationTaskQueue is the queue consumed by the worker processing finalize workflows.
	FinalizationTaskQueue = "OPINION_FINALIZATION"
)

// FinalizationWorkflowInput carries the finalize command and the caller's trace id.
type FinalizationWorkflowInput struct {
	Command sequences.FinalizationCommand
	TraceID string
}

// OpinionFinalizationWorkflow runs the finalize saga for one receptor.
func OpinionFinalizationWorkflow(ctx workflow.Context, input FinalizationWorkflowInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("OpinionFinalizationWorkflow started", withTraceID(input.TraceID)...)
	if err := sequences.RunOpinionFinalizationSequence(ctx, input.Command); err != nil {
		logger.Error("OpinionFinalizationWorkflow failed", withTraceID(input.TraceID, "error", err)...)
		return err
	}
	logger.Info("OpinionFinalizationWorkflow completed", withTraceID(input.TraceID)...)
	return nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
