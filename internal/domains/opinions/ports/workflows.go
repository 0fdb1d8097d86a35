package ports

import (
	"context"

	optypes "github.com/Apurer/opinions-api/internal/domains/opinions/application/types"
)

// WorkflowOrchestrator runs the finalize saga, durably when a workflow engine is available.
type WorkflowOrchestrator interface {
	FinalizeInternal(ctx context.Context, input optypes.FinalizeInternalInput) error
	FinalizeExternal(ctx context.Context, input optypes.FinalizeExternalInput) error
}
