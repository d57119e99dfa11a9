// Package seed loads the shared bottle catalog from a YAML file for local
// mode and reloads it when the file changes.
package seed

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/bottleservice/bottleservice-server/internal/domain"
)

// bottleNamespace scopes ids derived for entries that do not set one.
var bottleNamespace = uuid.MustParse("2b0d7c43-5b8e-4c61-a5b4-8f8f3e2f6a11")

// ErrInvalidSeed is returned for a catalog file that parses but breaks a rule.
var ErrInvalidSeed = errors.New("invalid catalog seed")

type file struct {
	Bottles []entry `yaml:"bottles"`
}

type entry struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Brand       string  `yaml:"brand"`
	Category    string  `yaml:"category"`
	Subcategory string  `yaml:"subcategory"`
	ImageURL    string  `yaml:"image_url"`
	ABV         float64 `yaml:"abv"`
	VolumeML    int     `yaml:"volume_ml"`
}

// Load reads the catalog at path.
func Load(path string) ([]domain.Bottle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog seed: %w", err)
	}
	return Parse(data)
}

// Parse decodes a catalog document. Entries without an id get one derived
// from brand and name, so reloading the same file keeps shelf references valid.
func Parse(data []byte) ([]domain.Bottle, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog seed: %w", err)
	}

	now := time.Now().UTC()
	seen := make(map[string]int, len(f.Bottles))
	bottles := make([]domain.Bottle, 0, len(f.Bottles))

	for i, e := range f.Bottles {
		e.Name = strings.TrimSpace(e.Name)
		e.Category = strings.TrimSpace(e.Category)
		if e.Name == "" {
			return nil, fmt.Errorf("%w: entry %d has no name", ErrInvalidSeed, i+1)
		}
		if e.Category == "" {
			return nil, fmt.Errorf("%w: %q has no category", ErrInvalidSeed, e.Name)
		}
		if strings.EqualFold(e.Category, domain.CustomCategory) {
			return nil, fmt.Errorf("%w: %q uses the reserved category %q", ErrInvalidSeed, e.Name, domain.CustomCategory)
		}

		id := strings.TrimSpace(e.ID)
		if id == "" {
			id = uuid.NewSHA1(bottleNamespace, []byte(strings.ToLower(e.Brand+"|"+e.Name))).String()
		}
		if prev, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: entries %d and %d share id %s", ErrInvalidSeed, prev+1, i+1, id)
		}
		seen[id] = i

		volume := e.VolumeML
		if volume <= 0 {
			volume = domain.DefaultVolumeML
		}

		b := domain.Bottle{
			ID:          id,
			Name:        e.Name,
			Brand:       strings.TrimSpace(e.Brand),
			Category:    e.Category,
			Subcategory: strings.TrimSpace(e.Subcategory),
			ABV:         e.ABV,
			VolumeML:    volume,
			CreatedAt:   now,
		}
		if img := strings.TrimSpace(e.ImageURL); img != "" {
			b.ImageURL = &img
		}
		bottles = append(bottles, b)
	}
	return bottles, nil
}
