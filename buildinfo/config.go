package buildinfo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMissingParam is returned when a required parameter is absent at build time.
	ErrMissingParam = errors.New("buildinfo: missing required parameter")
	// ErrInvalidParam is returned when a recognized parameter cannot be parsed.
	ErrInvalidParam = errors.New("buildinfo: invalid parameter")
)

// Recognized config keys.
const (
	KeyIndexType     = "index_type"
	KeyMetricType    = "metric_type"
	KeyDim           = "dim"
	KeyNList         = "nlist"
	KeyMaxIter       = "max_iter"
	KeyEngineVersion = "index_engine_version"
	KeySliceSize     = "index_slice_size"
	KeyCompression   = "compression"
)

// Config is the typed view of a build's flat parameter map.
type Config struct {
	IndexType  string
	MetricType string
	Dim        int
	NList      int
	MaxIter    int

	EngineVersion    int32
	HasEngineVersion bool

	// SliceSizeMiB bounds serialized blob parts; 0 disables slicing.
	SliceSizeMiB int
	// Compression is one of "none", "lz4", "zstd" ("" means none).
	Compression string

	// Extra holds keys with no typed field.
	Extra map[string]string
}

// ParseConfig parses m. Every malformed key contributes an error wrapping ErrInvalidParam.
func ParseConfig(m map[string]string) (Config, error) {
	cfg := Config{Extra: make(map[string]string)}
	var errs []error

	intParam := func(key, v string, dst *int) {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 {
			errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalidParam, key, v))
			return
		}
		*dst = n
	}

	for k, v := range m {
		switch k {
		case KeyIndexType:
			cfg.IndexType = strings.TrimSpace(v)
		case KeyMetricType:
			cfg.MetricType = strings.ToUpper(strings.TrimSpace(v))
		case KeyDim:
			intParam(k, v, &cfg.Dim)
		case KeyNList:
			intParam(k, v, &cfg.NList)
		case KeyMaxIter:
			intParam(k, v, &cfg.MaxIter)
		case KeySliceSize:
			intParam(k, v, &cfg.SliceSizeMiB)
		case KeyEngineVersion:
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 32)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalidParam, k, v))
				continue
			}
			cfg.EngineVersion = int32(n)
			cfg.HasEngineVersion = true
		case KeyCompression:
			c := strings.ToLower(strings.TrimSpace(v))
			switch c {
			case "", "none", "lz4", "zstd":
				cfg.Compression = c
			default:
				errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalidParam, k, v))
			}
		default:
			cfg.Extra[k] = v
		}
	}
	return cfg, errors.Join(errs...)
}
