package rpcclient

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

func TestConfigValidateRequiresURL(t *testing.T) {
	cfg := Config{Logger: noopLogger{}}
	err := cfg.validate()
	assert.True(t, errors.Is(err, err))
	assert.ErrorContains(t, err, "URL")
}

func TestConfigValidateRequiresLogger(t *testing.T) {
	cfg := Config{URL: "http://localhost:8545"}
	err := cfg.validate()
	assert.ErrorContains(t, err, "Logger")
}

func TestConfigWithDefaultsFillsGaps(t *testing.T) {
	cfg := Config{URL: "http://localhost:8545", Logger: noopLogger{}}
	out := cfg.withDefaults()
	assert.Equal(t, 10*time.Second, out.DialTimeout)
	assert.Equal(t, 20*time.Second, out.RequestTimeout)
	assert.Equal(t, DefaultMulticall3Address, out.Multicall3Addr)
	assert.Equal(t, 500, out.MaxCallsPerBatch)
}

func TestConfigWithDefaultsPreservesOverrides(t *testing.T) {
	cfg := Config{URL: "http://localhost:8545", Logger: noopLogger{}, MaxCallsPerBatch: 10}
	out := cfg.withDefaults()
	assert.Equal(t, 10, out.MaxCallsPerBatch)
}

func TestMinPicksSmallerDuration(t *testing.T) {
	assert.Equal(t, 1*time.Second, min(1*time.Second, 2*time.Second))
	assert.Equal(t, 1*time.Second, min(2*time.Second, 1*time.Second))
}
