package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
	"github.com/Apurer/opinions-api/internal/domains/opinions/ports"
)

var _ ports.LookupResolver = (*LookupResolver)(nil)

// LookupTables maps each catalogue to its table.
var LookupTables = map[domain.LookupKind]string{
	domain.LookupElementType:  "element_types",
	domain.LookupDocumentType: "document_types",
}

type lookupRow struct {
	ID   int64  `gorm:"column:id"`
	Name string `gorm:"column:name"`
}

// LookupResolver reads the element and document type catalogues.
type LookupResolver struct {
	db *gorm.DB
}

// NewLookupResolver wires a PostgreSQL-backed catalogue reader.
func NewLookupResolver(db *gorm.DB) *LookupResolver {
	return &LookupResolver{db: db}
}

// ResolveID finds the id of the named entry, ignoring case.
func (r *LookupResolver) ResolveID(ctx context.Context, kind domain.LookupKind, name string) (int64, error) {
	table, err := r.table(kind)
	if err != nil {
		return 0, err
	}
	var row lookupRow
	err = r.db.WithContext(ctx).Table(table).
		Where("LOWER(name) = LOWER(?)", strings.TrimSpace(name)).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ports.ErrNotFound
	}
	return row.ID, err
}

func (r *LookupResolver) ResolveName(ctx context.Context, kind domain.LookupKind, id int64) (string, error) {
	table, err := r.table(kind)
	if err != nil {
		return "", err
	}
	var row lookupRow
	err = r.db.WithContext(ctx).Table(table).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ports.ErrNotFound
	}
	return row.Name, err
}

func (r *LookupResolver) table(kind domain.LookupKind) (string, error) {
	if r == nil || r.db == nil {
		return "", errors.New("postgres lookup resolver not configured")
	}
	table, ok := LookupTables[kind]
	if !ok {
		return "", fmt.Errorf("unknown catalogue %q", kind)
	}
	return table, nil
}
