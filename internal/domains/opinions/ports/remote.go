package ports

import (
	"context"

	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
)

// Design is the delivery template returned by the send-design service.
type Design map[string]any

// SendDesign fetches the delivery template for external receptors.
type SendDesign interface {
	FetchDesign(ctx context.Context) (Design, error)
}

// SendRegistration registers a delivery and returns its envio id.
type SendRegistration interface {
	Register(ctx context.Context, entity domain.ExternalEntity, design Design) (string, error)
}

// CaseStatus notifies the case-tracking service.
type CaseStatus interface {
	MarkRequestFinalized(ctx context.Context, folio string) error
}
