package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib-77/rtcoord/pkg/coord"
	"github.com/ib-77/rtcoord/pkg/coord/readiness"
)

func TestDefault_MatchesFirmwareConstants(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 10, cfg.Queue.Capacity)
	assert.Equal(t, readiness.Bits(0b011), cfg.Bits.SystemReady())
	assert.Equal(t, readiness.Bits(0b111), cfg.Bits.AllReady())
	assert.Equal(t, cfg.Tasks[SensorReader].Priority, cfg.Tasks[NetworkManager].Priority)
	assert.Equal(t, coord.Forever, cfg.Mutex.WriterTimeout)
}

func TestParse_OverridesSingleFields(t *testing.T) {
	doc := []byte(`
cores: 4
queue:
  capacity: 3
mutex:
  processor_timeout: 250ms
bits:
  network: 4
tasks:
  NetworkManager:
    priority: 2
    core: 1
  "Task G":
    disabled: true
logging:
  level: debug
`)
	cfg, err := Parse(doc)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Cores)
	assert.Equal(t, 3, cfg.Queue.Capacity)
	assert.Equal(t, 100*time.Millisecond, cfg.Queue.SendTimeout, "untouched fields keep defaults")
	assert.Equal(t, 250*time.Millisecond, cfg.Mutex.ProcessorTimeout)
	assert.Equal(t, readiness.Bits(1<<4|1<<1), cfg.Bits.SystemReady())
	assert.Equal(t, "debug", cfg.Logging.Level)

	nm := cfg.Tasks[NetworkManager]
	assert.Equal(t, 2, nm.Priority)
	assert.Equal(t, 1, nm.Core)
	assert.Equal(t, 4096, nm.Stack)
	assert.Equal(t, 5*time.Second, nm.Period)
	assert.True(t, cfg.Tasks[ModelUnguarded].Disabled)
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown task":  "tasks:\n  Nope:\n    priority: 1\n",
		"unknown field": "queue:\n  length: 3\n",
		"capacity":      "queue:\n  capacity: 0\n",
		"bit clash":     "bits:\n  sensor: 0\n",
		"bit range":     "bits:\n  storage: 40\n",
		"negative":      "tasks:\n  \"Task E\":\n    period: -1s\n",
	}
	for name, doc := range cases {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestValidate_JoinsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Cores = 0
	cfg.Queue.Capacity = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Len(t, coord.GetErrors(err), 2)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rtcoord.yaml")
	require.NoError(t, os.WriteFile(path, []byte("queue:\n  capacity: 5\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Queue.Capacity)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestTaskNames_Sorted(t *testing.T) {
	names := Default().TaskNames()
	require.NotEmpty(t, names)
	assert.IsIncreasing(t, names)
}
