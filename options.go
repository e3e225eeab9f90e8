package unpackqa

import (
	"log/slog"

	"github.com/hupe1980/unpackqa/resource"
)

// DefaultTileSize is the default number of QA values expanded per tile.
// At 16 bits per value a tile needs 1 MiB of bit-plane memory.
const DefaultTileSize = 1 << 16

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	controller       *resource.Controller
	tileSize         int
	workers          int
	workersSet       bool
}

// Option configures an Unpacker.
type Option func(*options)

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := unpackqa.NewJSONLogger(slog.LevelDebug)
//	u, _ := unpackqa.New(products.Landsat8C2QAPixel, unpackqa.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
//	metrics := &unpackqa.BasicMetricsCollector{}
//	u, _ := unpackqa.New(product, unpackqa.WithMetricsCollector(metrics))
//	// ... use u ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithTileSize sets how many QA values are expanded per tile.
// Values <= 0 select DefaultTileSize.
func WithTileSize(n int) Option {
	return func(o *options) {
		o.tileSize = n
	}
}

// WithWorkers sets how many tiles are decoded concurrently.
// Values <= 1 decode tiles sequentially on the calling goroutine.
// An explicit count takes precedence over the resource controller's
// MaxWorkers.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
		o.workersSet = true
	}
}

// WithResourceController bounds tile memory with c. Its MaxWorkers sets the
// tile concurrency unless WithWorkers is given.
// The controller may be shared between Unpackers.
func WithResourceController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		tileSize:         DefaultTileSize,
		workers:          1,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.tileSize <= 0 {
		o.tileSize = DefaultTileSize
	}
	if o.workers <= 0 {
		o.workers = 1
	}
	if n := o.controller.MaxWorkers(); n > 0 && !o.workersSet {
		o.workers = n
	}
	return o
}
