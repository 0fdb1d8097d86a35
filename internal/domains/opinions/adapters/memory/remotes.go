package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
	"github.com/Apurer/opinions-api/internal/domains/opinions/ports"
)

var (
	_ ports.SendDesign       = (*DeliveryService)(nil)
	_ ports.SendRegistration = (*DeliveryService)(nil)
	_ ports.CaseStatus       = (*CaseStatusService)(nil)
)

// Registration records one delivery registered through DeliveryService.
type Registration struct {
	Entity  domain.ExternalEntity
	Design  ports.Design
	EnvioID string
}

// DeliveryService stands in for the send-design and send-registration services when
// they are not configured. Envio ids are generated as "ENV-<n>".
type DeliveryService struct {
	mu            sync.Mutex
	design        ports.Design
	designErr     error
	failAfter     int
	registerErr   error
	registrations []Registration
}

// NewDeliveryService returns a stub that serves the given design template.
func NewDeliveryService(design ports.Design) *DeliveryService {
	if design == nil {
		design = ports.Design{}
	}
	return &DeliveryService{design: design, failAfter: -1}
}

// FailDesign makes FetchDesign return err.
func (d *DeliveryService) FailDesign(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.designErr = err
}

// FailRegistrationAfter lets n registrations succeed and fails every later one with err.
func (d *DeliveryService) FailRegistrationAfter(n int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failAfter = n
	d.registerErr = err
}

// Registrations returns the deliveries registered so far.
func (d *DeliveryService) Registrations() []Registration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Registration(nil), d.registrations...)
}

func (d *DeliveryService) FetchDesign(ctx context.Context) (ports.Design, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.designErr != nil {
		return nil, d.designErr
	}
	out := make(ports.Design, len(d.design))
	for k, v := range d.design {
		out[k] = v
	}
	return out, nil
}

func (d *DeliveryService) Register(ctx context.Context, entity domain.ExternalEntity, design ports.Design) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAfter >= 0 && len(d.registrations) >= d.failAfter {
		return "", d.registerErr
	}
	envioID := fmt.Sprintf("ENV-%d", len(d.registrations)+1)
	d.registrations = append(d.registrations, Registration{Entity: entity, Design: design, EnvioID: envioID})
	return envioID, nil
}

// CaseStatusService records case-status notifications and can be told to fail.
type CaseStatusService struct {
	mu     sync.Mutex
	err    error
	folios []string
}

// NewCaseStatusService returns a stub that accepts every notification.
func NewCaseStatusService() *CaseStatusService {
	return &CaseStatusService{}
}

// Fail makes every later notification return err; nil restores success.
func (c *CaseStatusService) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Notified returns the folios notified so far, failed attempts included.
func (c *CaseStatusService) Notified() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.folios...)
}

func (c *CaseStatusService) MarkRequestFinalized(ctx context.Context, folio string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.folios = append(c.folios, folio)
	return c.err
}
