package ports

import (
	"context"

	optypes "github.com/Apurer/opinions-api/internal/domains/opinions/application/types"
)

// Service defines the opinion use cases exposed to adapters (inbound/driving port).
type Service interface {
	RequestOpinions(ctx context.Context, input optypes.RequestOpinionsInput) (int64, error)
	ListByFolio(ctx context.Context, folio string) ([]optypes.OpinionSummary, error)
	GetReceptorDetail(ctx context.Context, receptorID int64) (*optypes.OpinionDetail, error)
	GetExternalOpinion(ctx context.Context, envioID string) (*optypes.ExternalOpinion, error)
	AddAttachments(ctx context.Context, input optypes.AddAttachmentsInput) error
	FinalizeInternal(ctx context.Context, input optypes.FinalizeInternalInput) error
	FinalizeExternal(ctx context.Context, input optypes.FinalizeExternalInput) error
	UpdateOpinion(ctx context.Context, input optypes.UpdateOpinionInput) (optypes.UpdateResult, error)
	PendingSignatureFolios(ctx context.Context) ([]string, error)
}

// FinalizationSaga exposes the individual steps of a finalize so a durable
// workflow engine can drive them one activity at a time.
type FinalizationSaga interface {
	CommitInternalFinalization(ctx context.Context, input optypes.FinalizeInternalInput) (optypes.FinalizationOutcome, error)
	CommitExternalFinalization(ctx context.Context, input optypes.FinalizeExternalInput) (optypes.FinalizationOutcome, error)
	NotifyCaseFinalized(ctx context.Context, folio string) error
	CompensateByReceptorID(ctx context.Context, receptorID int64) error
	CompensateByEnvioID(ctx context.Context, envioID string) error
}
