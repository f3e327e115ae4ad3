// Package hash provides the checksums used by segindex persistence formats.
//
// Every envelope written to a chunk store (binlogs, index files) and every
// columnar fragment header carries a CRC32-Castagnoli checksum. Go's crc32
// package uses SSE4.2 / ARM CRC instructions when available.
//
//	sum := hash.CRC32C(payload)
//
//	h := hash.NewCRC32C()
//	h.Write(header)
//	h.Write(payload)
//	sum := h.Sum32()
package hash
