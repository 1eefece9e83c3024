// Package catalog loads guided-tour flow catalogs from configuration files.
//
// Catalogs are authored in YAML or JSON; the format is chosen by file
// extension. Loaded catalogs are validated and then read-only.
package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/satground/tourflow/internal/models"
)

// Default returns an empty catalog: no global intro, no scenario flows.
func Default() models.Catalog {
	return models.Catalog{Scenarios: make(map[string]models.Flow)}
}

// Load reads and validates a catalog file. Files ending in .json are parsed
// as JSON; everything else is parsed as YAML.
func Load(path string) (models.Catalog, error) {
	slog.Debug("Loading flow catalog", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return models.Catalog{}, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}

	var cat models.Catalog
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &cat); err != nil {
			return models.Catalog{}, fmt.Errorf("failed to parse catalog JSON %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cat); err != nil {
			return models.Catalog{}, fmt.Errorf("failed to parse catalog YAML %s: %w", path, err)
		}
	}

	if cat.Scenarios == nil {
		cat.Scenarios = make(map[string]models.Flow)
	}

	if err := cat.Validate(); err != nil {
		return models.Catalog{}, fmt.Errorf("invalid catalog %s: %w", path, err)
	}

	warnDuplicateFlowIDs(cat, path)

	slog.Info("Flow catalog loaded", "path", path,
		"has_global_intro", cat.GlobalIntro != nil, "scenario_flows", len(cat.Scenarios))
	return cat, nil
}

// warnDuplicateFlowIDs logs when the same flow id appears more than once in
// the catalog. Duplicate ids are a configuration contract violation; which
// flow a lookup resolves to is undefined, so this only warns.
func warnDuplicateFlowIDs(cat models.Catalog, path string) {
	seen := make(map[string]bool)
	if cat.GlobalIntro != nil {
		seen[cat.GlobalIntro.ID] = true
	}
	for scenarioID, f := range cat.Scenarios {
		if seen[f.ID] {
			slog.Warn("Catalog contains duplicate flow id; lookup resolution is undefined",
				"path", path, "flow_id", f.ID, "scenario_id", scenarioID)
			continue
		}
		seen[f.ID] = true
	}
}
