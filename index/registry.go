package index

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/segindex/buildinfo"
	"github.com/hupe1980/segindex/distance"
	"github.com/hupe1980/segindex/schema"
)

const (
	// MinimalEngineVersion is the oldest engine version whose artifacts are still built.
	MinimalEngineVersion int32 = 1
	// CurrentEngineVersion is the engine version of this build.
	CurrentEngineVersion int32 = 2
)

type variantKey struct {
	indexType string
	fieldType schema.DataType
	metric    distance.Metric
}

type variant struct {
	vector VectorConstructor
	scalar ScalarConstructor
}

var (
	registryMu sync.RWMutex
	registry   = map[variantKey]variant{}
)

// RegisterVector registers a vector index for every (field type, metric) pair.
//
// Variants should call this from an init() function.
func RegisterVector(indexType string, metrics []distance.Metric, fieldTypes []schema.DataType, ctor VectorConstructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, ft := range fieldTypes {
		for _, m := range metrics {
			registry[variantKey{strings.ToUpper(indexType), ft, m}] = variant{vector: ctor}
		}
	}
}

// RegisterScalar registers a scalar index for every field type.
//
// Variants should call this from an init() function.
func RegisterScalar(indexType string, fieldTypes []schema.DataType, ctor ScalarConstructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, ft := range fieldTypes {
		registry[variantKey{strings.ToUpper(indexType), ft, distance.MetricUnknown}] = variant{scalar: ctor}
	}
}

// Registered returns the registered index types in sorted order.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	seen := map[string]struct{}{}
	for k := range registry {
		seen[k.indexType] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Factory creates indexes from the registry.
type Factory struct {
	// EngineVersion is used when the config carries none. Zero means CurrentEngineVersion.
	EngineVersion int32
}

// NewCreateInfo derives a CreateInfo from a parsed config. Vector fields
// must carry a metric.
func NewCreateInfo(fieldType schema.DataType, fieldName string, dim int, cfg buildinfo.Config) (CreateInfo, error) {
	if cfg.IndexType == "" {
		return CreateInfo{}, fmt.Errorf("%w: %s", buildinfo.ErrMissingParam, buildinfo.KeyIndexType)
	}
	info := CreateInfo{
		FieldType:     fieldType,
		FieldName:     fieldName,
		IndexType:     strings.ToUpper(cfg.IndexType),
		EngineVersion: cfg.EngineVersion,
		Dim:           dim,
	}
	if info.Dim == 0 {
		info.Dim = cfg.Dim
	}
	if fieldType.IsVector() {
		if cfg.MetricType == "" {
			return CreateInfo{}, fmt.Errorf("%w: %s", buildinfo.ErrMissingParam, buildinfo.KeyMetricType)
		}
		m, err := distance.ParseMetric(cfg.MetricType)
		if err != nil {
			return CreateInfo{}, fmt.Errorf("%w: %s: %v", ErrUnsupported, buildinfo.KeyMetricType, err)
		}
		info.MetricType = m
	}
	return info, nil
}

// Resolve fills in the engine version of info and checks that a variant
// is registered, without creating it. The factory version is used when cfg
// carries none.
func (f Factory) Resolve(info CreateInfo, cfg buildinfo.Config) (CreateInfo, error) {
	info.IndexType = strings.ToUpper(strings.TrimSpace(info.IndexType))
	if !cfg.HasEngineVersion {
		info.EngineVersion = f.EngineVersion
		if info.EngineVersion == 0 {
			info.EngineVersion = CurrentEngineVersion
		}
	}
	if info.EngineVersion < MinimalEngineVersion || info.EngineVersion > CurrentEngineVersion {
		return info, fmt.Errorf("%w: engine version %d outside [%d, %d]",
			ErrUnsupported, info.EngineVersion, MinimalEngineVersion, CurrentEngineVersion)
	}
	if _, err := lookupVariant(info); err != nil {
		return info, err
	}
	return info, nil
}

// Create selects a variant and wraps it in a Base.
func (f Factory) Create(info CreateInfo, cfg buildinfo.Config, opts CreateOptions) (Index, error) {
	info, err := f.Resolve(info, cfg)
	if err != nil {
		return nil, err
	}
	v, err := lookupVariant(info)
	if err != nil {
		return nil, err
	}

	var core Core
	if v.vector != nil {
		core, err = v.vector(info, cfg)
	} else {
		core, err = v.scalar(info, cfg)
	}
	if err != nil {
		return nil, err
	}
	return NewBase(info, cfg, core, opts), nil
}

func lookupVariant(info CreateInfo) (variant, error) {
	key := variantKey{info.IndexType, info.FieldType, distance.MetricUnknown}
	if info.FieldType.IsVector() {
		key.metric = info.MetricType
	}
	registryMu.RLock()
	v, ok := registry[key]
	registryMu.RUnlock()
	if !ok {
		if info.FieldType.IsVector() {
			return variant{}, fmt.Errorf("%w: %s/%s on %s", ErrUnsupported, info.IndexType, info.MetricType, info.FieldType)
		}
		return variant{}, fmt.Errorf("%w: %s on %s", ErrUnsupported, info.IndexType, info.FieldType)
	}
	return v, nil
}
