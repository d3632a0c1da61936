package stack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequirements_ThreeFixedPorts(t *testing.T) {
	reqs := Requirements()
	require.Len(t, reqs, 3)

	byPort := map[int]string{}
	for _, r := range reqs {
		byPort[r.Port] = r.Purpose
	}
	assert.Equal(t, "web UI", byPort[3000])
	assert.Equal(t, "backend API", byPort[8000])
	assert.Equal(t, "database", byPort[5433])
}

func TestServiceNames(t *testing.T) {
	names, err := ServiceNames()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"postgres", "backend", "frontend"}, names)
	assert.Equal(t, 3, ServiceCount())
}

func TestMaterialize(t *testing.T) {
	dir := t.TempDir()

	path, err := Materialize(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ComposeFileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "trh-backend")

	// Re-materializing over identical contents is a no-op.
	again, err := Materialize(dir)
	require.NoError(t, err)
	assert.Equal(t, path, again)

	// A stale definition from an older release gets overwritten.
	require.NoError(t, os.WriteFile(path, []byte("services: {}\n"), 0o644))
	_, err = Materialize(dir)
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "trh-postgres")
}
