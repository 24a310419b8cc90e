package data

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/pattamap/server/internal/grid"
	"gopkg.in/yaml.v3"
)

// ErrUnknownZone is returned for zone ids not present in zones.yaml.
var ErrUnknownZone = errors.New("unknown zone")

// ZoneInfo holds the grid definition of one map zone, loaded from zones.yaml.
type ZoneInfo struct {
	ID      string  `yaml:"id" json:"id"`
	Name    string  `yaml:"name" json:"name"`
	MaxRows int     `yaml:"max_rows" json:"max_rows"`
	MaxCols int     `yaml:"max_cols" json:"max_cols"`
	StartX  float64 `yaml:"start_x" json:"start_x"`
	EndX    float64 `yaml:"end_x" json:"end_x"`
	StartY  float64 `yaml:"start_y" json:"start_y"`
	EndY    float64 `yaml:"end_y" json:"end_y"`
}

// Grid returns the zone's grid configuration.
func (z ZoneInfo) Grid() grid.Config {
	return grid.Config{
		MaxRows: z.MaxRows,
		MaxCols: z.MaxCols,
		StartX:  z.StartX,
		EndX:    z.EndX,
		StartY:  z.StartY,
		EndY:    z.EndY,
	}
}

type zoneListFile struct {
	Zones []ZoneInfo `yaml:"zones"`
}

// ZoneTable provides zone lookups by id. Read-only after load.
type ZoneTable struct {
	zones map[string]ZoneInfo
}

// LoadZones reads zone definitions from YAML.
func LoadZones(path string) (*ZoneTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zone list %s: %w", path, err)
	}
	return ParseZones(raw)
}

// ParseZones decodes and validates a zones.yaml document.
func ParseZones(raw []byte) (*ZoneTable, error) {
	var file zoneListFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse zone list: %w", err)
	}

	table := &ZoneTable{zones: make(map[string]ZoneInfo, len(file.Zones))}
	for _, z := range file.Zones {
		if z.ID == "" {
			return nil, fmt.Errorf("zone without id")
		}
		if _, dup := table.zones[z.ID]; dup {
			return nil, fmt.Errorf("duplicate zone %q", z.ID)
		}
		if z.MaxRows < 1 || z.MaxCols < 1 {
			return nil, fmt.Errorf("zone %q: grid must be at least 1x1, got %dx%d", z.ID, z.MaxRows, z.MaxCols)
		}
		if z.EndX <= z.StartX || z.EndY <= z.StartY {
			return nil, fmt.Errorf("zone %q: empty pixel bounds", z.ID)
		}
		table.zones[z.ID] = z
	}
	return table, nil
}

func (t *ZoneTable) Get(id string) (ZoneInfo, error) {
	z, ok := t.zones[id]
	if !ok {
		return ZoneInfo{}, fmt.Errorf("%w: %s", ErrUnknownZone, id)
	}
	return z, nil
}

func (t *ZoneTable) Count() int { return len(t.zones) }

// All returns zones sorted by id.
func (t *ZoneTable) All() []ZoneInfo {
	out := make([]ZoneInfo, 0, len(t.zones))
	for _, z := range t.zones {
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
