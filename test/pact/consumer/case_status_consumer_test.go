//go:build pact
// +build pact

package consumer_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	pactconsumer "github.com/pact-foundation/pact-go/v2/consumer"
	"github.com/pact-foundation/pact-go/v2/matchers"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/opinions-api/internal/clients/http/casestatus"
	pacttest "github.com/Apurer/opinions-api/test/pact"
)

func TestCaseStatusContract(t *testing.T) {
	pact, err := pactconsumer.NewV2Pact(pactconsumer.MockHTTPProviderConfig{
		Consumer: pacttest.ProviderName,
		Provider: pacttest.CaseStatusProviderName,
		PactDir:  pacttest.PactDir(t),
		LogDir:   pacttest.LogDir(t),
	})
	require.NoError(t, err)

	pact.AddInteraction().
		Given(pacttest.StateCaseExists).
		UponReceiving("a notification that the opinion request of a case is finalized").
		WithRequest("POST", "/actualizarasunto/estatus", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.JSONBody(matchers.Map{
				"FolioAsunto":     matchers.S(pacttest.ExampleFolio),
				"IdEstatusAsunto": matchers.Like(casestatus.StatusRequestFinalized),
				"Accion":          matchers.S(casestatus.ActionRequestFinalized),
			})
		}).
		WillRespondWith(http.StatusOK)

	err = pact.ExecuteTest(t, func(config pactconsumer.MockServerConfig) error {
		host := config.Host
		if host == "" {
			host = "localhost"
		}
		client, err := casestatus.NewClient(fmt.Sprintf("http://%s:%d", host, config.Port), &http.Client{Timeout: 5 * time.Second})
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return client.UpdateStatus(ctx, casestatus.UpdateStatusRequest{
			FolioAsunto:     pacttest.ExampleFolio,
			IdEstatusAsunto: casestatus.StatusRequestFinalized,
			Accion:          casestatus.ActionRequestFinalized,
		})
	})
	require.NoError(t, err)
}
