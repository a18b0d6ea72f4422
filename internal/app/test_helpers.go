package app

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/devdag/internal/hcl"
)

// SafeBuffer is a thread-safe buffer for capturing output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// SetupAppTest validates cfg and creates a new app instance for system
// testing. It returns the app with its command output and log buffers.
func SetupAppTest(t *testing.T, cfg Config, opts ...Option) (*App, *SafeBuffer, *SafeBuffer) {
	t.Helper()

	cfg.LogLevel = "debug"
	cfg.LogFormat = "json"
	if cfg.Color == "" {
		cfg.Color = ColorNever
	}
	appConfig, err := NewConfig(cfg)
	require.NoError(t, err)

	out, logBuffer := &SafeBuffer{}, &SafeBuffer{}
	testApp := NewApp(out, logBuffer, appConfig, hcl.NewLoader(), opts...)

	t.Cleanup(func() {
		if os.Getenv("DEVDAG_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, out, logBuffer
}
