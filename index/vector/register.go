package vector

import (
	"github.com/hupe1980/segindex/distance"
	"github.com/hupe1980/segindex/index"
	"github.com/hupe1980/segindex/schema"
)

// Index type names.
const (
	TypeFlat    = "FLAT"
	TypeIVFFlat = "IVF_FLAT"
	TypeBinFlat = "BIN_FLAT"
)

func init() {
	floatMetrics := []distance.Metric{distance.MetricL2, distance.MetricIP, distance.MetricCosine}
	floatTypes := []schema.DataType{schema.FloatVector, schema.Float16Vector}

	index.RegisterVector(TypeFlat, floatMetrics, floatTypes, newFlat)
	index.RegisterVector(TypeIVFFlat, floatMetrics, floatTypes, newIVFFlat)
	index.RegisterVector(TypeBinFlat,
		[]distance.Metric{distance.MetricHamming, distance.MetricJaccard},
		[]schema.DataType{schema.BinaryVector},
		newBinFlat)
}
