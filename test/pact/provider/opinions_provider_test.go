//go:build pact
// +build pact

package provider_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pact-foundation/pact-go/v2/models"
	pactprovider "github.com/pact-foundation/pact-go/v2/provider"
	"github.com/stretchr/testify/require"

	opinionsserver "github.com/Apurer/opinions-api/go"
	"github.com/Apurer/opinions-api/internal/domains/opinions/adapters/memory"
	opinionsobs "github.com/Apurer/opinions-api/internal/domains/opinions/adapters/observability"
	opinionsworkflows "github.com/Apurer/opinions-api/internal/domains/opinions/adapters/workflows"
	"github.com/Apurer/opinions-api/internal/domains/opinions/application"
	optypes "github.com/Apurer/opinions-api/internal/domains/opinions/application/types"
	pacttest "github.com/Apurer/opinions-api/test/pact"
)

func TestOpinionsProviderPact(t *testing.T) {
	gin.SetMode(gin.TestMode)

	app := newContractProviderApp(t)
	pactFile := filepath.ToSlash(pacttest.PactFile(t))
	if _, err := os.Stat(pactFile); errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pact file not found at %s - run the pact consumer tests first", pactFile)
	} else {
		require.NoError(t, err)
	}

	reset := func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
		app.reset()
		return nil, nil
	}
	verifier := pactprovider.NewVerifier()
	err := verifier.VerifyProvider(t, pactprovider.VerifyRequest{
		ProviderBaseURL: app.server.URL,
		Provider:        pacttest.ProviderName,
		PactFiles:       []string{pactFile},
		StateHandlers: models.StateHandlers{
			pacttest.StateOpinionsBaseline: reset,
			pacttest.StateReceptorMissing:  reset,
			pacttest.StateFolioHasOpinion: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
				app.reset()
				if setup {
					return nil, app.seedOpinion(pacttest.ExampleFolio)
				}
				return nil, nil
			},
		},
		BeforeEach: func() error {
			app.reset()
			return nil
		},
	})
	require.NoError(t, err)
}

// contractProviderApp swaps in a fresh in-memory backend on every reset.
type contractProviderApp struct {
	mu      sync.RWMutex
	service *application.Service
	handler http.Handler
	server  *httptest.Server
}

func newContractProviderApp(t testing.TB) *contractProviderApp {
	t.Helper()
	app := &contractProviderApp{}
	app.reset()
	app.server = httptest.NewServer(app)
	t.Cleanup(app.server.Close)
	return app
}

func (a *contractProviderApp) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.RLock()
	h := a.handler
	a.mu.RUnlock()
	h.ServeHTTP(w, r)
}

func (a *contractProviderApp) reset() {
	delivery := memory.NewDeliveryService(nil)
	service := application.NewService(memory.NewStore(), memory.NewLookupCatalog(nil), application.Remotes{
		Design:       delivery,
		Registration: delivery,
		CaseStatus:   memory.NewCaseStatusService(),
	}, application.WithIdempotencyStore(memory.NewIdempotencyStore()))
	decorated := opinionsobs.New(service)
	api := opinionsserver.NewOpinionAPI(decorated, opinionsworkflows.NewInlineOpinionWorkflows(decorated), nil)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.service = service
	a.handler = opinionsserver.NewRouter(api, opinionsserver.RouterOptions{})
}

func (a *contractProviderApp) seedOpinion(folio string) error {
	a.mu.RLock()
	service := a.service
	a.mu.RUnlock()
	_, err := service.RequestOpinions(context.Background(), optypes.RequestOpinionsInput{
		Folio:  folio,
		Detail: "Please review the attached draft",
		Receptors: []optypes.ReceptorInput{
			{Code: "DGJ", Name: "Direccion General Juridica", Internal: true, Mandatory: true},
		},
	})
	return err
}
