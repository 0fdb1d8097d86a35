package workflows

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	optypes "github.com/Apurer/opinions-api/internal/domains/opinions/application/types"
	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
	"github.com/Apurer/opinions-api/internal/domains/opinions/ports"
	opinionactivities "github.com/Apurer/opinions-api/internal/platform/temporal/activities/opinions"
	"github.com/Apurer/opinions-api/internal/platform/temporal/sequences"
	opinionworkflows "github.com/Apurer/opinions-api/internal/platform/temporal/workflows/opinions"
)

var (
	_ ports.WorkflowOrchestrator = (*TemporalOpinionWorkflows)(nil)
	_ ports.WorkflowOrchestrator = (*InlineOpinionWorkflows)(nil)
)

// TemporalOpinionWorkflows runs finalizes as workflows on a Temporal cluster and waits for the result.
type TemporalOpinionWorkflows struct {
	client    client.Client
	taskQueue string
}

func NewTemporalOpinionWorkflows(c client.Client) *TemporalOpinionWorkflows {
	return &TemporalOpinionWorkflows{client: c, taskQueue: opinionworkflows.FinalizationTaskQueue}
}

func (o *TemporalOpinionWorkflows) FinalizeInternal(ctx context.Context, input optypes.FinalizeInternalInput) error {
	if input.ReceptorID <= 0 {
		return domain.NotFound("no receptor found with id %d", input.ReceptorID)
	}
	return o.run(ctx, internalWorkflowID(input.ReceptorID), sequences.FinalizationCommand{Internal: &input})
}

func (o *TemporalOpinionWorkflows) FinalizeExternal(ctx context.Context, input optypes.FinalizeExternalInput) error {
	envioID := strings.TrimSpace(input.EnvioID)
	if envioID == "" {
		return domain.InvalidOperation("envio id is required")
	}
	input.EnvioID = envioID
	return o.run(ctx, externalWorkflowID(envioID), sequences.FinalizationCommand{External: &input})
}

// run starts the workflow, or joins the running one with the same id, and waits for it.
func (o *TemporalOpinionWorkflows) run(ctx context.Context, workflowID string, cmd sequences.FinalizationCommand) error {
	if o == nil || o.client == nil {
		return errors.New("temporal opinion workflows not configured")
	}
	options := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: o.taskQueue,
	}
	run, err := o.client.ExecuteWorkflow(
		ctx,
		options,
		opinionworkflows.FinalizationWorkflowName,
		opinionworkflows.FinalizationWorkflowInput{Command: cmd, TraceID: workflowTraceComponent(ctx)},
	)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if !errors.As(err, &alreadyStarted) {
			return err
		}
		run = o.client.GetWorkflow(ctx, workflowID, alreadyStarted.RunId)
	}
	return opinionactivities.FromApplicationError(run.Get(ctx, nil))
}

// InlineOpinionWorkflows executes the service directly without Temporal, useful for tests or dev fallbacks.
type InlineOpinionWorkflows struct {
	service ports.Service
}

func NewInlineOpinionWorkflows(service ports.Service) *InlineOpinionWorkflows {
	return &InlineOpinionWorkflows{service: service}
}

func (o *InlineOpinionWorkflows) FinalizeInternal(ctx context.Context, input optypes.FinalizeInternalInput) error {
	if o == nil || o.service == nil {
		return errors.New("inline opinion workflows not configured")
	}
	return o.service.FinalizeInternal(ctx, input)
}

func (o *InlineOpinionWorkflows) FinalizeExternal(ctx context.Context, input optypes.FinalizeExternalInput) error {
	if o == nil || o.service == nil {
		return errors.New("inline opinion workflows not configured")
	}
	return o.service.FinalizeExternal(ctx, input)
}

func internalWorkflowID(receptorID int64) string {
	return fmt.Sprintf("opinion-finalize-receptor-%d", receptorID)
}

func externalWorkflowID(envioID string) string {
	sum := sha256.Sum256([]byte(envioID))
	return fmt.Sprintf("opinion-finalize-envio-%s", hex.EncodeToString(sum[:8]))
}

func workflowTraceComponent(ctx context.Context) string {
	spanCtx := oteltrace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() && spanCtx.TraceID().IsValid() {
		return spanCtx.TraceID().String()
	}
	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}
