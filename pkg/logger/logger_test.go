package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupProdIsJSONAtInfo(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(EnvProd, &buf)

	log.Debug("hidden")
	log.Info("visible", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	require.Contains(t, out, "visible")

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &record))
	assert.Equal(t, "visible", record["msg"])
	assert.Equal(t, "value", record["key"])
}

func TestSetupStagingIsJSONAtDebug(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(EnvStaging, &buf)

	log.Debug("verbose")
	assert.Contains(t, buf.String(), "verbose")
	assert.Contains(t, buf.String(), `"level":"DEBUG"`)
}

func TestSetupDevIsTextAtDebug(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(EnvDev, &buf)

	log.Debug("starting up", "port", 8080)
	out := buf.String()
	assert.Contains(t, out, "starting up")
	assert.Contains(t, out, "port=8080")

	var record map[string]any
	assert.Error(t, json.Unmarshal([]byte(out), &record), "dev output is not JSON")
}

func TestSetupUnknownEnvFallsBackToDev(t *testing.T) {
	var buf bytes.Buffer
	log := Setup("something-else", &buf)
	log.Debug("fallback")
	assert.Contains(t, buf.String(), "fallback")
}

func TestInitIsIdempotent(t *testing.T) {
	var first, second bytes.Buffer

	a := Init(EnvProd, &first)
	b := Init(EnvDev, &second)

	require.NotNil(t, a)
	assert.Same(t, a, b, "second Init must return the already-installed logger")

	a.Info("only once")
	assert.Contains(t, first.String(), "only once")
	assert.Empty(t, second.String(), "second sink must never be installed")
}

func TestFileSink(t *testing.T) {
	path := t.TempDir() + "/logs/app.log"

	w, err := FileSink(path)
	require.NoError(t, err)
	defer w.Close()

	log := Setup(EnvProd, w)
	log.Info("persisted")

	again, err := FileSink(path)
	require.NoError(t, err)
	defer again.Close()
}
