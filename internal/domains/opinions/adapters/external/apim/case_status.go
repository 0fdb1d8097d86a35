package apim

import (
	"context"
	"errors"

	"github.com/Apurer/opinions-api/internal/clients/http/casestatus"
	"github.com/Apurer/opinions-api/internal/domains/opinions/ports"
)

// CaseStatusNotifier implements the case-status port over HTTP.
type CaseStatusNotifier struct {
	client *casestatus.Client
}

func NewCaseStatusNotifier(client *casestatus.Client) *CaseStatusNotifier {
	return &CaseStatusNotifier{client: client}
}

// MarkRequestFinalized reports the case folio as "opinion request finalized".
func (n *CaseStatusNotifier) MarkRequestFinalized(ctx context.Context, folio string) error {
	if n == nil || n.client == nil {
		return errors.New("case status notifier not configured")
	}
	return n.client.UpdateStatus(ctx, casestatus.UpdateStatusRequest{
		FolioAsunto:     folio,
		IdEstatusAsunto: casestatus.StatusRequestFinalized,
		Accion:          casestatus.ActionRequestFinalized,
	})
}

var _ ports.CaseStatus = (*CaseStatusNotifier)(nil)
