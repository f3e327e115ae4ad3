package segindex

import (
	"log/slog"

	s3store "github.com/hupe1980/segindex/blobstore/s3"
	"github.com/hupe1980/segindex/codec"
	"github.com/hupe1980/segindex/internal/fs"
	"github.com/hupe1980/segindex/internal/resource"
)

type options struct {
	codec            codec.Codec
	metricsCollector MetricsCollector
	logger           *Logger
	engineVersion    int32
	localRoot        string
	resources        resource.Config
	fs               fs.FileSystem
	commitLog        *commitLog
}

type commitLog struct {
	client s3store.DDBClient
	table  string
}

// Option configures a Builder.
type Option func(*options)

// WithCodec configures the descriptor codec of written binlogs and index files.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &segindex.BasicMetricsCollector{}
//	b := segindex.New(segindex.WithMetricsCollector(metrics))
//	// ... build indexes ...
//	stats := metrics.GetStats()
//	fmt.Printf("Builds: %d, Avg latency: %dns\n", stats.BuildCount, stats.BuildAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := segindex.NewJSONLogger(slog.LevelInfo)
//	b := segindex.New(segindex.WithLogger(logger))
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

// WithEngineVersion sets the engine version stamped on indexes whose build
// request does not carry one. Zero means index.CurrentEngineVersion.
func WithEngineVersion(v int32) Option {
	return func(o *options) {
		o.engineVersion = v
	}
}

// WithLocalRoot sets the scratch directory for local caches. Each Builder
// uses a session subdirectory below it. Default: os.TempDir()/segindex.
func WithLocalRoot(dir string) Option {
	return func(o *options) {
		o.localRoot = dir
	}
}

// WithResourceConfig bounds concurrent transfers, transfer rate and build memory.
func WithResourceConfig(cfg resource.Config) Option {
	return func(o *options) {
		o.resources = cfg
	}
}

// WithFileSystem replaces the local scratch filesystem.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		if fsys == nil {
			fsys = fs.Default
		}
		o.fs = fsys
	}
}

// WithCommitLog routes the CURRENT pointer of index spaces through a
// DynamoDB commit log, making concurrent V2 uploads to one space safe.
//
// The table layout is documented on s3.DDBCommitStore.
func WithCommitLog(client s3store.DDBClient, table string) Option {
	return func(o *options) {
		if client == nil || table == "" {
			o.commitLog = nil
			return
		}
		o.commitLog = &commitLog{client: client, table: table}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            codec.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		fs:               fs.Default,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
