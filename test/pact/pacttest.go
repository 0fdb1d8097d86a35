//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const (
	ProviderName = "opinions-api"
	ConsumerName = "opinions-portal"

	// CaseStatusProviderName is the case-tracking service the opinions API notifies.
	CaseStatusProviderName = "case-status-api"

	StateOpinionsBaseline = "opinions baseline"
	StateFolioHasOpinion  = "an active opinion exists for folio F-PACT"
	StateReceptorMissing  = "no receptor with id 404"
	StateCaseExists       = "case F-PACT exists"
)

const (
	ExampleFolio            = "F-PACT"
	MissingReceptorID int64 = 404
)

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// PactFile returns the canonical pact file path for the opinions portal consumer.
func PactFile(t testing.TB) string {
	t.Helper()
	return filepath.Join(PactDir(t), ConsumerName+"-"+ProviderName+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

// ExampleRequestPayload is the opinion request the portal sends for ExampleFolio.
func ExampleRequestPayload() map[string]any {
	return map[string]any{
		"folioAsunto": ExampleFolio,
		"comentarios": "Please review the attached draft",
		"receptores": []map[string]any{
			{"clave": "DGJ", "nombre": "Direccion General Juridica", "esInterna": true, "esObligatoria": true},
		},
	}
}

// projectRoot walks up from this file to the workspace root.
func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
