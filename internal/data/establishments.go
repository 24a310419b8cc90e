package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EstablishmentSeed is one row of establishments.yaml. Grid fields are optional;
// an establishment without them is known but not placed.
type EstablishmentSeed struct {
	ID      string `yaml:"id"`
	Zone    string `yaml:"zone"`
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Icon    string `yaml:"icon"`
	GridRow *int   `yaml:"grid_row"`
	GridCol *int   `yaml:"grid_col"`
}

type establishmentSeedFile struct {
	Establishments []EstablishmentSeed `yaml:"establishments"`
}

// LoadEstablishmentSeeds reads establishments.yaml and checks every row against zones:
// known zone, position inside its grid, no two rows on one cell.
func LoadEstablishmentSeeds(path string, zones *ZoneTable) ([]EstablishmentSeed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read establishment seeds %s: %w", path, err)
	}
	var file establishmentSeedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse establishment seeds: %w", err)
	}

	ids := make(map[string]bool, len(file.Establishments))
	cells := make(map[string]string)
	for _, e := range file.Establishments {
		if e.ID == "" {
			return nil, fmt.Errorf("establishment without id")
		}
		if ids[e.ID] {
			return nil, fmt.Errorf("duplicate establishment %q", e.ID)
		}
		ids[e.ID] = true

		zone, err := zones.Get(e.Zone)
		if err != nil {
			return nil, fmt.Errorf("establishment %q: %w", e.ID, err)
		}
		if (e.GridRow == nil) != (e.GridCol == nil) {
			return nil, fmt.Errorf("establishment %q: grid_row and grid_col go together", e.ID)
		}
		if e.GridRow == nil {
			continue
		}
		r, c := *e.GridRow, *e.GridCol
		if r < 1 || c < 1 || r > zone.MaxRows || c > zone.MaxCols {
			return nil, fmt.Errorf("establishment %q: (%d,%d) outside %s grid %dx%d", e.ID, r, c, zone.ID, zone.MaxRows, zone.MaxCols)
		}
		key := fmt.Sprintf("%s:%d:%d", e.Zone, r, c)
		if other, taken := cells[key]; taken {
			return nil, fmt.Errorf("establishment %q: (%d,%d) already held by %q", e.ID, r, c, other)
		}
		cells[key] = e.ID
	}
	return file.Establishments, nil
}
