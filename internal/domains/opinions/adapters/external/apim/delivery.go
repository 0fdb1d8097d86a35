package apim

import (
	"context"
	"errors"
	"strings"

	apimclient "github.com/Apurer/opinions-api/internal/clients/http/apim"
	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
	"github.com/Apurer/opinions-api/internal/domains/opinions/ports"
)

// DeliveryGateway implements the send-design and send-registration ports.
type DeliveryGateway struct {
	client *apimclient.Client
}

// NewDeliveryGateway wires an API gateway client into the delivery ports.
func NewDeliveryGateway(client *apimclient.Client) *DeliveryGateway {
	return &DeliveryGateway{client: client}
}

func (g *DeliveryGateway) FetchDesign(ctx context.Context) (ports.Design, error) {
	if g == nil || g.client == nil {
		return nil, errors.New("delivery gateway not configured")
	}
	design, err := g.client.GetSendDesign(ctx)
	if err != nil {
		return nil, err
	}
	return ports.Design(design), nil
}

// Register posts the decorated design and returns the envio id assigned by the service.
func (g *DeliveryGateway) Register(ctx context.Context, entity domain.ExternalEntity, design ports.Design) (string, error) {
	if g == nil || g.client == nil {
		return "", errors.New("delivery gateway not configured")
	}
	if strings.TrimSpace(entity.ID) == "" || strings.TrimSpace(entity.Type) == "" {
		return "", errors.New("external entity id and type are required")
	}
	resp, err := g.client.RegisterSend(ctx, entity.ID, entity.Type, map[string]any(design))
	if err != nil {
		return "", err
	}
	envioID := resp.EnvioID()
	if envioID == "" {
		return "", errors.New("register send: response carried no folioEnvio")
	}
	return envioID, nil
}

var (
	_ ports.SendDesign       = (*DeliveryGateway)(nil)
	_ ports.SendRegistration = (*DeliveryGateway)(nil)
)
