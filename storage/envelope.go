package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/segindex/codec"
	"github.com/hupe1980/segindex/internal/conv"
	"github.com/hupe1980/segindex/internal/hash"
	"github.com/hupe1980/segindex/schema"
)

// Envelope layout (little-endian):
//
//	magic[4] | version u16 | kind u8 | compression u8 |
//	codecLen u8 | codec | descLen u32 | desc |
//	rawSize u64 | payloadLen u64 | payload | crc32c u32
//
// The checksum covers every preceding byte.
var envelopeMagic = [4]byte{'S', 'G', 'I', 'X'}

const envelopeVersion uint16 = 1

// Kind distinguishes envelope payloads.
type Kind uint8

const (
	KindInsertBinlog Kind = 1
	KindIndexFile    Kind = 2
)

// InsertDescriptor describes an insert binlog.
type InsertDescriptor struct {
	FieldDataMeta `msgpack:",inline"`
	DataType      schema.DataType `json:"data_type" msgpack:"data_type"`
	Dim           int             `json:"dim" msgpack:"dim"`
	Rows          int             `json:"rows" msgpack:"rows"`
}

// IndexDescriptor describes one uploaded index blob.
type IndexDescriptor struct {
	FieldDataMeta `msgpack:",inline"`
	BuildID       int64  `json:"build_id" msgpack:"build_id"`
	IndexVersion  int64  `json:"index_version" msgpack:"index_version"`
	Key           string `json:"key" msgpack:"key"`
}

func encodeEnvelope(kind Kind, desc any, payload []byte, c Compression, cd codec.Codec) ([]byte, error) {
	if cd == nil {
		cd = codec.Default
	}
	if len(cd.Name()) > 255 {
		return nil, fmt.Errorf("storage: codec name %q too long", cd.Name())
	}
	descBytes, err := cd.Marshal(desc)
	if err != nil {
		return nil, fmt.Errorf("storage: encode descriptor: %w", err)
	}
	stored, applied, err := compress(payload, c)
	if err != nil {
		return nil, fmt.Errorf("storage: compress payload: %w", err)
	}

	size := 4 + 2 + 1 + 1 + 1 + len(cd.Name()) + 4 + len(descBytes) + 8 + 8 + len(stored) + 4
	out := make([]byte, 0, size)
	out = append(out, envelopeMagic[:]...)
	out = binary.LittleEndian.AppendUint16(out, envelopeVersion)
	out = append(out, byte(kind), byte(applied), byte(len(cd.Name())))
	out = append(out, cd.Name()...)
	descLen, err := conv.Len32(descBytes)
	if err != nil {
		return nil, fmt.Errorf("storage: descriptor: %w", err)
	}
	out = binary.LittleEndian.AppendUint32(out, descLen)
	out = append(out, descBytes...)
	out = binary.LittleEndian.AppendUint64(out, uint64(len(payload)))
	out = binary.LittleEndian.AppendUint64(out, uint64(len(stored)))
	out = append(out, stored...)
	out = binary.LittleEndian.AppendUint32(out, hash.CRC32C(out))
	return out, nil
}

type envelopeReader struct {
	buf []byte
	err error
}

func (r *envelopeReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.buf) {
		r.err = corruptf("truncated envelope")
		return nil
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

func decodeEnvelope(data []byte, want Kind, desc any) ([]byte, error) {
	if len(data) < 4+2+3+4+16+4 {
		return nil, corruptf("envelope of %d bytes is too short", len(data))
	}
	body, sum := data[:len(data)-4], binary.LittleEndian.Uint32(data[len(data)-4:])
	if hash.CRC32C(body) != sum {
		return nil, corruptf("checksum mismatch")
	}

	r := &envelopeReader{buf: body}
	if magic := r.take(4); r.err == nil && [4]byte(magic) != envelopeMagic {
		return nil, corruptf("bad magic %q", magic)
	}
	hdr := r.take(2 + 3)
	if r.err != nil {
		return nil, r.err
	}
	if v := binary.LittleEndian.Uint16(hdr); v != envelopeVersion {
		return nil, corruptf("unsupported envelope version %d", v)
	}
	if Kind(hdr[2]) != want {
		return nil, corruptf("envelope kind %d, expected %d", hdr[2], want)
	}
	comp := Compression(hdr[3])
	codecName := string(r.take(int(hdr[4])))
	descLen := r.take(4)
	if r.err != nil {
		return nil, r.err
	}
	descBytes := r.take(int(binary.LittleEndian.Uint32(descLen)))
	sizes := r.take(16)
	if r.err != nil {
		return nil, r.err
	}
	rawSize := binary.LittleEndian.Uint64(sizes)
	storedLen := binary.LittleEndian.Uint64(sizes[8:])
	if storedLen != uint64(len(r.buf)) {
		return nil, corruptf("payload length %d does not match remaining %d bytes", storedLen, len(r.buf))
	}
	if limit := maxRawSize(comp, storedLen); rawSize > limit {
		return nil, corruptf("raw size %d exceeds %d for %d stored %s bytes", rawSize, limit, storedLen, comp)
	}
	n, err := conv.Uint64ToInt(rawSize)
	if err != nil {
		return nil, corruptf("raw size: %v", err)
	}

	cd, ok := codec.ByName(codecName)
	if !ok {
		return nil, corruptf("unknown codec %q", codecName)
	}
	if err := cd.Unmarshal(descBytes, desc); err != nil {
		return nil, corruptf("descriptor: %v", err)
	}
	return decompress(r.buf, comp, n)
}

// EncodeInsertData encodes fd as an insert binlog.
func EncodeInsertData(meta FieldDataMeta, fd *FieldData, c Compression, cd codec.Codec) ([]byte, error) {
	if err := fd.Validate(); err != nil {
		return nil, err
	}
	payload, err := EncodeRaw(fd)
	if err != nil {
		return nil, err
	}
	desc := InsertDescriptor{FieldDataMeta: meta, DataType: fd.Type, Dim: fd.Dim, Rows: fd.RowNum()}
	return encodeEnvelope(KindInsertBinlog, desc, payload, c, cd)
}

// DecodeInsertData decodes an insert binlog.
func DecodeInsertData(data []byte) (InsertDescriptor, *FieldData, error) {
	var desc InsertDescriptor
	payload, err := decodeEnvelope(data, KindInsertBinlog, &desc)
	if err != nil {
		return desc, nil, err
	}
	fd, err := DecodeRaw(desc.DataType, desc.Dim, payload)
	if err != nil {
		return desc, nil, corruptf("binlog payload: %v", err)
	}
	if fd.RowNum() != desc.Rows {
		return desc, nil, corruptf("binlog declares %d rows, payload has %d", desc.Rows, fd.RowNum())
	}
	return desc, fd, nil
}

// EncodeIndexFile wraps one index blob for upload.
func EncodeIndexFile(desc IndexDescriptor, payload []byte, c Compression, cd codec.Codec) ([]byte, error) {
	return encodeEnvelope(KindIndexFile, desc, payload, c, cd)
}

// DecodeIndexFile unwraps an uploaded index blob.
func DecodeIndexFile(data []byte) (IndexDescriptor, []byte, error) {
	var desc IndexDescriptor
	payload, err := decodeEnvelope(data, KindIndexFile, &desc)
	return desc, payload, err
}
