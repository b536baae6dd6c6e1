package inference

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog holds the lookup tables the inference engine consults. The
// built-in defaults cover the common Juniper fleet; operators can ship
// their own YAML to extend them.
type Catalog struct {
	Platforms []PlatformRule    `yaml:"platforms" validate:"required,min=1,dive"`
	SFPRules  []SFPRule         `yaml:"sfp_rules" validate:"required,min=1,dive"`
	PrefixSFP map[string]string `yaml:"prefix_sfp" validate:"required,min=1"`
	Zones     []ZoneRule        `yaml:"zones" validate:"required,min=1,dive"`
}

type PlatformRule struct {
	Name string   `yaml:"name" validate:"required"`
	Tags []string `yaml:"tags" validate:"required,min=1"`
}

type SFPRule struct {
	Match string `yaml:"match" validate:"required"`
	Type  string `yaml:"type" validate:"required"`
}

type ZoneRule struct {
	Token       string `yaml:"token" validate:"required"`
	OffsetHours int    `yaml:"offset_hours"`
	Location    string `yaml:"location"`
}

var validate = validator.New()

// DefaultCatalog decodes the embedded defaults.
func DefaultCatalog() (*Catalog, error) {
	return decodeCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog override from disk; an empty path returns
// the embedded defaults.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	return decodeCatalog(data)
}

func decodeCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}
	return &c, nil
}
