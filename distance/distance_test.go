package distance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetric(t *testing.T) {
	for _, name := range []string{"L2", "ip", " Cosine ", "HAMMING", "jaccard"} {
		m, err := ParseMetric(name)
		require.NoError(t, err, name)
		assert.NotEqual(t, MetricUnknown, m)
	}
	_, err := ParseMetric("MANHATTAN")
	assert.Error(t, err)
}

func TestFloatProviders(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}

	l2, err := Provider(MetricL2)
	require.NoError(t, err)
	assert.Equal(t, float32(2), l2(a, b))

	ip, err := Provider(MetricIP)
	require.NoError(t, err)
	assert.Equal(t, float32(-1), ip(a, a))

	cos, err := Provider(MetricCosine)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, cos(a, b), 1e-6)
	assert.InDelta(t, 0.0, cos(a, []float32{3, 0}), 1e-6)

	_, err = Provider(MetricHamming)
	assert.Error(t, err)
}

func TestBinaryProviders(t *testing.T) {
	a := []byte{0b1111_0000}
	b := []byte{0b1100_1100}

	h, err := ProviderBytes(MetricHamming)
	require.NoError(t, err)
	assert.Equal(t, float32(4), h(a, b))

	j, err := ProviderBytes(MetricJaccard)
	require.NoError(t, err)
	assert.InDelta(t, 1-2.0/6.0, j(a, b), 1e-6)

	assert.True(t, MetricJaccard.IsBinary())
	assert.False(t, MetricL2.IsBinary())
}
