package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC32CStreamingMatchesOneShot(t *testing.T) {
	data := []byte("segment 42 / field 101 / index_files")

	h := NewCRC32C()
	_, _ = h.Write(data[:10])
	_, _ = h.Write(data[10:])

	assert.Equal(t, CRC32C(data), h.Sum32())
	assert.Equal(t, CRC32C(data), Update(Update(0, data[:7]), data[7:]))
}

func TestCRC32CDetectsBitFlip(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	sum := CRC32C(data)
	data[3] ^= 0x10
	assert.NotEqual(t, sum, CRC32C(data))
}
