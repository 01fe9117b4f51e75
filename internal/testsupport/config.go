package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"timelapse/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig returns a config rooted in a fresh temp directory. The API
// listener is disabled and environment overrides are cleared so the host
// environment cannot leak into tests.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()
	t.Setenv("TIMELAPSE_API_TOKEN", "")
	t.Setenv("REDIS_ADDR", "")

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StorageDir = filepath.Join(base, "jobs")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = ""

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithAPIBind sets the listener address, e.g. "127.0.0.1:0".
func WithAPIBind(bind string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIBind = bind
	}
}

// WithToken enables bearer authentication.
func WithToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithoutMetrics disables the /metrics endpoint and recorder.
func WithoutMetrics() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metrics.Enabled = false
	}
}

// WithFFmpegStub writes a shell script standing in for ffmpeg and points
// encoder.binary at it. The script answers -version and otherwise runs body.
func WithFFmpegStub(body string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		b.cfg.Encoder.Binary = WriteFFmpegStub(b.t, binDir, body)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StorageDir)
}
