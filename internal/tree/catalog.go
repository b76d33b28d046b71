package tree

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/journalforest/forest-backend/internal/models"
)

//go:embed catalog.toml
var defaultCatalogTOML string

// Threshold maps a minimum score to a rarity.
type Threshold struct {
	Rarity   models.Rarity `toml:"rarity"`
	MinScore float64       `toml:"min_score"`
}

// TreeType is one species and its possible display names.
type TreeType struct {
	Name         string   `toml:"name"`
	DisplayNames []string `toml:"display_names"`
}

// Catalog is the static configuration behind tree assignment.
type Catalog struct {
	MaxBonus      float64     `toml:"max_bonus"`
	LengthWeight  float64     `toml:"length_weight"`
	ThemeWeight   float64     `toml:"theme_weight"`
	EmotionWeight float64     `toml:"emotion_weight"`
	Thresholds    []Threshold `toml:"thresholds"` // highest first
	Types         []TreeType  `toml:"types"`
}

// DecodeCatalog reads a catalog from TOML and validates it.
func DecodeCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog
	if _, err := toml.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to decode tree catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCatalogFile reads a catalog override from disk.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tree catalog: %w", err)
	}
	defer f.Close()

	c, err := DecodeCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("reading tree catalog from %s: %w", path, err)
	}
	return c, nil
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	var c Catalog
	if _, err := toml.Decode(defaultCatalogTOML, &c); err != nil {
		panic(fmt.Sprintf("embedded tree catalog is invalid: %v", err))
	}
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("embedded tree catalog is invalid: %v", err))
	}
	return &c
}

// Validate checks that the catalog can produce a tree for any input.
func (c *Catalog) Validate() error {
	if len(c.Types) == 0 {
		return errors.New("tree catalog has no types")
	}
	for _, t := range c.Types {
		if t.Name == "" {
			return errors.New("tree catalog has a type with no name")
		}
		if len(t.DisplayNames) == 0 {
			return fmt.Errorf("tree type %q has no display names", t.Name)
		}
	}
	prev := 2.0
	for _, th := range c.Thresholds {
		switch th.Rarity {
		case models.RarityUncommon, models.RarityRare, models.RarityEpic, models.RarityLegendary:
		default:
			return fmt.Errorf("tree catalog threshold has invalid rarity %q", th.Rarity)
		}
		if th.MinScore >= prev {
			return errors.New("tree catalog thresholds must be sorted highest first")
		}
		prev = th.MinScore
	}
	if c.MaxBonus < 0 {
		return errors.New("tree catalog max_bonus must not be negative")
	}
	return nil
}
