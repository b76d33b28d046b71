// Package tree awards a deterministic tree to each journal entry.
package tree

import (
	"crypto/md5"
	"encoding/hex"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/journalforest/forest-backend/internal/models"
)

// Assigner maps entries to trees using a catalog. It holds no mutable state.
type Assigner struct {
	catalog *Catalog
}

// NewAssigner returns an Assigner backed by c, or the embedded catalog when c is nil.
func NewAssigner(c *Catalog) *Assigner {
	if c == nil {
		c = DefaultCatalog()
	}
	return &Assigner{catalog: c}
}

var defaultAssigner = NewAssigner(nil)

// Assign uses the embedded catalog.
func Assign(entryID int64, text string, themes, emotions []string) models.Tree {
	return defaultAssigner.Assign(entryID, text, themes, emotions)
}

// Assign returns the tree for an entry. The same inputs always give the same tree.
// The returned tree has EntryID set; SessionID and CreatedAt are left to the caller.
func (a *Assigner) Assign(entryID int64, text string, themes, emotions []string) models.Tree {
	seed := Seed(entryID, text)

	bonus := float64(utf8.RuneCountInString(text))*a.catalog.LengthWeight +
		float64(len(themes))*a.catalog.ThemeWeight +
		float64(len(emotions))*a.catalog.EmotionWeight
	bonus = math.Min(a.catalog.MaxBonus, bonus)
	score := float64(seed%1000)/1000 + bonus

	t := a.catalog.Types[seed%uint64(len(a.catalog.Types))]
	return models.Tree{
		EntryID:     entryID,
		Type:        t.Name,
		Rarity:      a.Rarity(score),
		DisplayName: t.DisplayNames[seed%uint64(len(t.DisplayNames))],
	}
}

// Rarity returns the rarity for a score.
func (a *Assigner) Rarity(score float64) models.Rarity {
	for _, th := range a.catalog.Thresholds {
		if score >= th.MinScore {
			return th.Rarity
		}
	}
	return models.RarityCommon
}

// Seed is the first 48 bits of MD5("{entryID}_{text}").
func Seed(entryID int64, text string) uint64 {
	sum := md5.Sum([]byte(strconv.FormatInt(entryID, 10) + "_" + text))
	// 12 hex digits always fit in a uint64.
	seed, _ := strconv.ParseUint(hex.EncodeToString(sum[:])[:12], 16, 64)
	return seed
}
