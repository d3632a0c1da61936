// Package stack holds the fixed three-service topology this app manages.
// The compose definition ships embedded in the binary and is materialized
// into the user's data directory on first run; its contents are opaque to
// the rest of the core except for the service list parsed here.
package stack

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/tokamak-network/trh-platform-desktop/internal/domain"
)

//go:embed compose.yaml
var composeYAML []byte

// ProjectName is the compose project every gateway invocation is scoped to.
const ProjectName = "trh-platform"

// BackendContainer is where dependency probing and installation happen.
const BackendContainer = "trh-backend"

// ComposeFileName is the on-disk name of the materialized definition.
const ComposeFileName = "docker-compose.yml"

// ContainerNames maps each compose service to its fixed container name.
var ContainerNames = map[string]string{
	"postgres": "trh-postgres",
	"backend":  "trh-backend",
	"frontend": "trh-frontend",
}

// Requirements returns the local ports the stack needs exclusively.
func Requirements() []domain.PortRequirement {
	return []domain.PortRequirement{
		{Port: 3000, Purpose: "web UI"},
		{Port: 8000, Purpose: "backend API"},
		{Port: 5433, Purpose: "database"},
	}
}

// ServiceCount is the number of containers a status query must report as
// running before the stack counts as up.
func ServiceCount() int {
	names, err := ServiceNames()
	if err != nil {
		return len(ContainerNames)
	}
	return len(names)
}

// ServiceNames parses the service list out of the embedded definition.
func ServiceNames() ([]string, error) {
	var doc struct {
		Services map[string]yaml.Node `yaml:"services"`
	}
	if err := yaml.Unmarshal(composeYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse embedded compose definition: %w", err)
	}
	names := make([]string, 0, len(doc.Services))
	for name := range doc.Services {
		names = append(names, name)
	}
	return names, nil
}

// Materialize writes the embedded compose definition into dir and returns
// its path. An existing file with identical contents is left untouched; a
// stale one from a previous release is overwritten.
func Materialize(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	path := filepath.Join(dir, ComposeFileName)
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, composeYAML) {
		return path, nil
	}
	if err := os.WriteFile(path, composeYAML, 0o644); err != nil {
		return "", fmt.Errorf("write compose definition: %w", err)
	}
	return path, nil
}
