package docker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokamak-network/trh-platform-desktop/internal/domain"
)

func TestParseStatusRecords_OnePerLine(t *testing.T) {
	out := `{"Name":"trh-postgres","Service":"postgres","State":"running","Health":"healthy"}
{"Name":"trh-backend","Service":"backend","State":"running","Health":"healthy"}
{"Name":"trh-frontend","Service":"frontend","State":"running","Health":""}`

	records, err := parseStatusRecords(out)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "postgres", records[0].Service)
	assert.Equal(t, "running", records[2].State)
}

func TestParseStatusRecords_ArrayEncoding(t *testing.T) {
	out := `[{"Name":"trh-postgres","Service":"postgres","State":"running"},{"Name":"trh-backend","Service":"backend","State":"exited"}]`

	records, err := parseStatusRecords(out)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "exited", records[1].State)
}

func TestParseStatusRecords_SkipsBadLines(t *testing.T) {
	out := `{"Name":"trh-postgres","Service":"postgres","State":"running"}
not json at all
{"Name":"trh-backend","Service":"backend","State":"running"}`

	records, err := parseStatusRecords(out)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestParseStatusRecords_TotalFailure(t *testing.T) {
	_, err := parseStatusRecords("garbage\nmore garbage")
	assert.Error(t, err)
}

func TestParseStatusRecords_Empty(t *testing.T) {
	records, err := parseStatusRecords("   \n  ")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestClassifyUpError(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		kind   domain.ErrorKind
	}{
		{"port allocated", `Error response from daemon: driver failed programming external connectivity: Bind for 0.0.0.0:8000 failed: port is already allocated`, domain.ConflictError},
		{"address in use", "listen tcp 0.0.0.0:3000: bind: address already in use", domain.ConflictError},
		{"missing image", `Error response from daemon: No such image: tokamaknetwork/trh-backend:latest`, domain.EnvironmentError},
		{"manifest unknown", "manifest unknown: manifest tagged by latest is not found", domain.EnvironmentError},
		{"daemon gone", "Cannot connect to the Docker daemon at unix:///var/run/docker.sock. Is the docker daemon running?", domain.EnvironmentError},
		{"anything else", "some other compose failure", domain.TransientInfraError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyUpError(tt.stderr, 1)
			assert.Equal(t, tt.kind, domain.KindOf(err), "stderr: %s", tt.stderr)
		})
	}
}

func TestDownExitOK(t *testing.T) {
	assert.True(t, downExitOK(0))
	assert.True(t, downExitOK(-1), "terminated-by-signal must count as stopped")
	assert.False(t, downExitOK(1))
}

func TestSplitPullLine(t *testing.T) {
	services := map[string]bool{"backend": true, "postgres": true, "frontend": true}

	service, text := splitPullLine("backend Pulling", services)
	assert.Equal(t, "backend", service)
	assert.Equal(t, "Pulling", text)

	service, text = splitPullLine("postgres Pull complete", services)
	assert.Equal(t, "postgres", service)
	assert.Equal(t, "Pull complete", text)

	service, text = splitPullLine(" 5f70bf18a086: Downloading [=>   ]", services)
	assert.Empty(t, service)
	assert.NotEmpty(t, text)
}

func TestTail(t *testing.T) {
	assert.Equal(t, "the actual complaint", tail("warning\nnoise\nthe actual complaint\n\n"))
	assert.Equal(t, "", tail("  \n "))
}
