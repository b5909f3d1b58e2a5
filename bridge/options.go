package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	hostbridge "github.com/wippyai/hostbridge"
	"github.com/wippyai/hostbridge/config"
	"github.com/wippyai/hostbridge/metrics"
	"github.com/wippyai/hostbridge/transcoder"
)

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge logger. The bridge tags it with its ID.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMetrics records bridge activity in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

// WithFormats replaces the format registry guests address by id.
func WithFormats(r *transcoder.FormatRegistry) Option {
	return func(b *Bridge) {
		if r != nil {
			b.formats = r
		}
	}
}

// WithStrictUTF8 rejects invalid host strings instead of replacing bytes.
func WithStrictUTF8(strict bool) Option {
	return func(b *Bridge) { b.strings.StrictUTF8 = strict }
}

// WithOrigin sets the surface origin pointer coordinates are relative to.
func WithOrigin(x, y int32) Option {
	return func(b *Bridge) { b.input.SetOrigin(x, y) }
}

// WithMemory binds a host-owned memory and allocator, for bridges that run
// without a wasm guest. Instantiate replaces both with the guest's.
func WithMemory(mem hostbridge.Memory, alloc hostbridge.Allocator) Option {
	return func(b *Bridge) {
		b.mem = mem
		b.alloc = alloc
	}
}

// WithRuntime makes Instantiate use rt instead of creating a runtime.
// The caller keeps ownership of rt; it must not already hold an "env" module.
func WithRuntime(rt wazero.Runtime) Option {
	return func(b *Bridge) { b.runtime = rt }
}

// WithMemoryLimit caps guest memory in pages for runtimes the bridge creates.
func WithMemoryLimit(pages uint32) Option {
	return func(b *Bridge) { b.memoryLimit = pages }
}

// WithWASI instantiates wasi_snapshot_preview1 alongside env, for guests
// built against WASI.
func WithWASI(enabled bool) Option {
	return func(b *Bridge) { b.wasi = enabled }
}

// OptionsFromConfig translates host configuration into bridge options.
// The formats file, if set, is loaded into a fresh registry.
func OptionsFromConfig(cfg *config.Config, logger *zap.Logger, reg *prometheus.Registry) ([]Option, error) {
	opts := []Option{
		WithLogger(logger),
		WithStrictUTF8(cfg.StrictUTF8),
		WithOrigin(cfg.OriginX, cfg.OriginY),
		WithMemoryLimit(cfg.MemoryLimit),
	}
	if cfg.FormatsFile != "" {
		formats := transcoder.NewFormatRegistry()
		if _, err := formats.LoadFile(cfg.FormatsFile); err != nil {
			return nil, err
		}
		opts = append(opts, WithFormats(formats))
	}
	if reg != nil {
		opts = append(opts, WithMetrics(metrics.New(reg)))
	}
	return opts, nil
}
