package migrations

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
)

// LookupEntry is one row of a reference catalogue as written in the seed file.
type LookupEntry struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

// LookupSeed models the on-disk catalogue seed file.
type LookupSeed struct {
	ElementTypes  []LookupEntry `yaml:"element_types"`
	DocumentTypes []LookupEntry `yaml:"document_types"`
}

// LoadLookupSeed reads and validates a catalogue seed file.
func LoadLookupSeed(path string) (LookupSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LookupSeed{}, fmt.Errorf("lookup seed: read %s: %w", path, err)
	}
	var seed LookupSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return LookupSeed{}, fmt.Errorf("lookup seed: parse %s: %w", path, err)
	}
	if err := seed.validate(); err != nil {
		return LookupSeed{}, fmt.Errorf("lookup seed: %w", err)
	}
	return seed, nil
}

func (s LookupSeed) validate() error {
	for kind, list := range map[string][]LookupEntry{"element_types": s.ElementTypes, "document_types": s.DocumentTypes} {
		ids := map[int64]struct{}{}
		for _, e := range list {
			if e.ID <= 0 || strings.TrimSpace(e.Name) == "" {
				return fmt.Errorf("%s: entries need a positive id and a name", kind)
			}
			if _, dup := ids[e.ID]; dup {
				return fmt.Errorf("%s: duplicate id %d", kind, e.ID)
			}
			ids[e.ID] = struct{}{}
		}
	}
	return nil
}

// Entries converts the seed into domain catalogue entries keyed by kind.
func (s LookupSeed) Entries() map[domain.LookupKind][]domain.LookupEntry {
	convert := func(list []LookupEntry) []domain.LookupEntry {
		out := make([]domain.LookupEntry, 0, len(list))
		for _, e := range list {
			out = append(out, domain.LookupEntry{ID: e.ID, Name: strings.TrimSpace(e.Name)})
		}
		return out
	}
	return map[domain.LookupKind][]domain.LookupEntry{
		domain.LookupElementType:  convert(s.ElementTypes),
		domain.LookupDocumentType: convert(s.DocumentTypes),
	}
}

// Seed upserts the catalogues; names of existing ids are overwritten.
func Seed(db *gorm.DB, seed LookupSeed) error {
	if db == nil {
		return nil
	}
	upsert := clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, e := range seed.ElementTypes {
			row := elementTypeRecord{ID: e.ID, Name: strings.TrimSpace(e.Name)}
			if err := tx.Clauses(upsert).Create(&row).Error; err != nil {
				return err
			}
		}
		for _, e := range seed.DocumentTypes {
			row := documentTypeRecord{ID: e.ID, Name: strings.TrimSpace(e.Name)}
			if err := tx.Clauses(upsert).Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
