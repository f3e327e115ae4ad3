package space

import (
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/segindex/internal/conv"
	"github.com/hupe1980/segindex/internal/hash"
	"github.com/hupe1980/segindex/schema"
	"github.com/hupe1980/segindex/storage"
)

const (
	// fragmentMagic identifies column fragment files (ASCII: "COL0").
	fragmentMagic = 0x434F4C30

	fragmentVersion uint32 = 1

	// fragmentHeaderSize is the size of the fragment header in bytes.
	fragmentHeaderSize = 48
)

// fragmentHeader is the 48-byte header at the start of a fragment.
//
// All multi-byte fields are little-endian.
type fragmentHeader struct {
	Magic      uint32 // 0x434F4C30 ("COL0")
	Version    uint32
	DataType   uint32
	Dimension  uint32
	Rows       uint64
	DataLength uint64
	DataCRC    uint32 // CRC32C of the data section; [36:44) reserved
	Checksum   uint32 // CRC32C of bytes [0:44)
}

func (h *fragmentHeader) marshal() []byte {
	buf := make([]byte, fragmentHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.DataType)
	binary.LittleEndian.PutUint32(buf[12:16], h.Dimension)
	binary.LittleEndian.PutUint64(buf[16:24], h.Rows)
	binary.LittleEndian.PutUint64(buf[24:32], h.DataLength)
	binary.LittleEndian.PutUint32(buf[32:36], h.DataCRC)
	h.Checksum = hash.CRC32C(buf[:44])
	binary.LittleEndian.PutUint32(buf[44:48], h.Checksum)
	return buf
}

func (h *fragmentHeader) unmarshal(buf []byte) error {
	if len(buf) < fragmentHeaderSize {
		return fmt.Errorf("%w: fragment header truncated", ErrCorrupted)
	}
	h.Magic = binary.LittleEndian.Uint32(buf[0:4])
	h.Version = binary.LittleEndian.Uint32(buf[4:8])
	h.DataType = binary.LittleEndian.Uint32(buf[8:12])
	h.Dimension = binary.LittleEndian.Uint32(buf[12:16])
	h.Rows = binary.LittleEndian.Uint64(buf[16:24])
	h.DataLength = binary.LittleEndian.Uint64(buf[24:32])
	h.DataCRC = binary.LittleEndian.Uint32(buf[32:36])
	h.Checksum = binary.LittleEndian.Uint32(buf[44:48])

	if h.Checksum != hash.CRC32C(buf[:44]) {
		return fmt.Errorf("%w: fragment header checksum", ErrCorrupted)
	}
	if h.Magic != fragmentMagic {
		return fmt.Errorf("%w: invalid fragment magic %x", ErrCorrupted, h.Magic)
	}
	if h.Version > fragmentVersion {
		return fmt.Errorf("%w: unsupported fragment version %d", ErrCorrupted, h.Version)
	}
	return nil
}

// encodeFragment serializes one column fragment.
func encodeFragment(fd *storage.FieldData) ([]byte, error) {
	data, err := storage.EncodeRaw(fd)
	if err != nil {
		return nil, err
	}
	dim, err := conv.IntToUint32(fd.Dim)
	if err != nil {
		return nil, fmt.Errorf("space: fragment dim: %w", err)
	}
	h := fragmentHeader{
		Magic:      fragmentMagic,
		Version:    fragmentVersion,
		DataType:   uint32(fd.Type),
		Dimension:  dim,
		Rows:       uint64(fd.RowNum()),
		DataLength: uint64(len(data)),
		DataCRC:    hash.CRC32C(data),
	}
	out := make([]byte, 0, fragmentHeaderSize+len(data))
	out = append(out, h.marshal()...)
	return append(out, data...), nil
}

// decodeFragment validates and decodes a fragment.
func decodeFragment(buf []byte) (*storage.FieldData, error) {
	var h fragmentHeader
	if err := h.unmarshal(buf); err != nil {
		return nil, err
	}
	data := buf[fragmentHeaderSize:]
	if uint64(len(data)) != h.DataLength {
		return nil, fmt.Errorf("%w: fragment data is %d bytes, header says %d", ErrCorrupted, len(data), h.DataLength)
	}
	if hash.CRC32C(data) != h.DataCRC {
		return nil, fmt.Errorf("%w: fragment data checksum", ErrCorrupted)
	}
	fd, err := storage.DecodeRaw(schema.DataType(h.DataType), int(h.Dimension), data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if uint64(fd.RowNum()) != h.Rows {
		return nil, fmt.Errorf("%w: fragment has %d rows, header says %d", ErrCorrupted, fd.RowNum(), h.Rows)
	}
	return fd, nil
}
