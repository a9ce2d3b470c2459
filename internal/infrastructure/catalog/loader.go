package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/alem-hub/memory-palace/internal/domain/progression"
	"github.com/alem-hub/memory-palace/internal/domain/shared"
)

//go:embed defaults.yaml
var defaultDocument []byte

//go:embed schema.json
var schemaDocument []byte

// maxReportedErrors caps how many schema violations end up in the error text.
const maxReportedErrors = 3

// Document is the on-disk catalog layout.
type Document struct {
	Server          ServerInfo                          `yaml:"server" json:"server"`
	Defaults        Defaults                            `yaml:"defaults" json:"defaults"`
	ReviewIntervals []int                               `yaml:"review_intervals" json:"review_intervals"`
	Personalities   []progression.Personality           `yaml:"personalities" json:"personalities"`
	Achievements    []progression.AchievementDefinition `yaml:"achievements" json:"achievements"`
	Challenges      []progression.ChallengeTemplate     `yaml:"challenges" json:"challenges"`
	LearningPaths   []progression.LearningPathTemplate  `yaml:"learning_paths" json:"learning_paths"`
}

// ServerInfo is what get_server_info reports.
type ServerInfo struct {
	Name         string   `yaml:"name" json:"name"`
	Version      string   `yaml:"version" json:"version"`
	Description  string   `yaml:"description" json:"description"`
	Capabilities []string `yaml:"capabilities" json:"capabilities"`
}

// Defaults holds fallback values offered to new users.
type Defaults struct {
	RoomName        string   `yaml:"room_name" json:"room_name"`
	RoomDescription string   `yaml:"room_description" json:"room_description"`
	VisualAnchor    string   `yaml:"visual_anchor" json:"visual_anchor"`
	Suggestions     []string `yaml:"suggestions" json:"suggestions"`
}

// Load reads the catalog at path, or the embedded defaults when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(defaultDocument)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, shared.WrapError("catalog", "Load", shared.ErrInvalidFormat, shared.ErrCatalogInvalid.Message,
			fmt.Errorf("read %s: %w", path, err))
	}
	return Parse(data)
}

// MustDefault returns the embedded catalog. It panics if the embedded
// document does not validate, which only happens on a broken build.
func MustDefault() *Catalog {
	c, err := Parse(defaultDocument)
	if err != nil {
		panic(err)
	}
	return c
}

// Parse validates a YAML document against the catalog schema and builds a Catalog.
func Parse(data []byte) (*Catalog, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, invalid(fmt.Errorf("parse yaml: %w", err))
	}
	if raw == nil {
		return nil, invalid(fmt.Errorf("empty document"))
	}

	asJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, invalid(fmt.Errorf("convert to json: %w", err))
	}
	if err := validate(asJSON); err != nil {
		return nil, invalid(err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, invalid(fmt.Errorf("decode catalog: %w", err))
	}
	return newCatalog(doc)
}

func validate(doc []byte) error {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaDocument))
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var msgs []string
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	suffix := ""
	if len(msgs) > maxReportedErrors {
		suffix = fmt.Sprintf(" ... and %d more", len(msgs)-maxReportedErrors)
		msgs = msgs[:maxReportedErrors]
	}
	return fmt.Errorf("schema validation failed: %s%s", strings.Join(msgs, "; "), suffix)
}

func invalid(err error) error {
	return shared.WrapError("catalog", "Load", shared.ErrInvalidFormat, shared.ErrCatalogInvalid.Message, err)
}
