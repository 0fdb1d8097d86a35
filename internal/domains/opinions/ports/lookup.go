package ports

import (
	"context"

	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
)

// LookupResolver maps catalogue names to ids and back.
type LookupResolver interface {
	ResolveID(ctx context.Context, kind domain.LookupKind, name string) (int64, error)
	ResolveName(ctx context.Context, kind domain.LookupKind, id int64) (string, error)
}
