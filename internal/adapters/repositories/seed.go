package repositories

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"warehouse-allocation-service/internal/domain"

	"gopkg.in/yaml.v3"
)

// Capacities drawn for generated bins.
var GridCapacities = []int{5, 10, 15, 20, 50, 100, 200}

type layoutFile struct {
	Bins []domain.BinSpec `json:"bins" yaml:"bins"`
}

// Read a bin layout from a YAML (.yaml, .yml) or JSON file.
// The file holds a top-level "bins" list of {location_code, capacity}.
func LoadBinLayout(path string) ([]domain.BinSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load bin layout: read %q: %w", path, err)
	}

	var data layoutFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("load bin layout: parse yaml %q: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("load bin layout: parse json %q: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("load bin layout: unsupported file extension %q", filepath.Ext(path))
	}

	layout := make([]domain.BinSpec, 0, len(data.Bins))
	for i, b := range data.Bins {
		code := strings.TrimSpace(b.LocationCode)
		if code == "" {
			return nil, fmt.Errorf("load bin layout: entry %d: location_code cannot be empty", i+1)
		}
		if b.Capacity <= 0 {
			return nil, fmt.Errorf("load bin layout: entry %d (%s): capacity must be positive, got %d", i+1, code, b.Capacity)
		}
		layout = append(layout, domain.BinSpec{LocationCode: code, Capacity: b.Capacity})
	}

	return layout, nil
}

// GenerateBinGrid builds a warehouse grid of aisles x sections x levels with
// codes like "Aisle-01-Sect-02-Lvl-1". Capacities come from GridCapacities
// using a PRNG seeded with seed, so a seed always yields the same layout.
func GenerateBinGrid(aisles, sections, levels int, seed uint64) []domain.BinSpec {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	layout := make([]domain.BinSpec, 0, aisles*sections*levels)
	for a := 1; a <= aisles; a++ {
		for s := 1; s <= sections; s++ {
			for l := 1; l <= levels; l++ {
				layout = append(layout, domain.BinSpec{
					LocationCode: fmt.Sprintf("Aisle-%02d-Sect-%02d-Lvl-%d", a, s, l),
					Capacity:     GridCapacities[rng.IntN(len(GridCapacities))],
				})
			}
		}
	}
	return layout
}

// DefaultBinGrid is the 4 x 5 x 3 grid of the demo warehouse.
func DefaultBinGrid(seed uint64) []domain.BinSpec {
	return GenerateBinGrid(4, 5, 3, seed)
}
