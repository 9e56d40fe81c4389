package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"gamekit/core"
)

// LoadCatalog returns the catalog from CatalogFile when set, otherwise the inline one.
func (g *GameServicesConfig) LoadCatalog() (*core.Catalog, error) {
	if g.CatalogFile == "" {
		c := g.Catalog
		return &c, c.Validate()
	}
	return LoadCatalogFile(g.CatalogFile)
}

// LoadCatalogFile parses a YAML catalog:
//
//	leaderboards:
//	  - name: global
//	    id: lb.global
//	achievements:
//	  - name: first_win
//	    id: ach.first_win
func LoadCatalogFile(path string) (*core.Catalog, error) {
	data, err := os.ReadFile(path) // #nosec G304 - operator supplied path
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	var c core.Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return &c, nil
}
