package treatment

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const sectorColumn = "sector"

// Row is one treatment table entry. Beyond the sector column the schema is
// owned by the study team; rows pass through to the prompt as-is.
type Row map[string]any

// Sector returns the row's sector tag, uppercased.
func (r Row) Sector() string {
	value, _ := r[sectorColumn].(string)
	return strings.ToUpper(strings.TrimSpace(value))
}

// LoadTable reads a treatment table: a yaml list of maps.
func LoadTable(path string) ([]Row, error) {
	data, readErr := os.ReadFile(filepath.Clean(path))
	if readErr != nil {
		return nil, fmt.Errorf("read treatment table %s: %w", path, readErr)
	}
	var rows []Row
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal treatment table %s: %w", path, err)
	}
	return rows, nil
}

// FilterSector keeps rows matching the sector prefix.
func FilterSector(rows []Row, sector string) []Row {
	sector = strings.ToUpper(strings.TrimSpace(sector))
	var filtered []Row
	for _, row := range rows {
		if row.Sector() == sector {
			filtered = append(filtered, row)
		}
	}
	return filtered
}
