package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/hupe1980/segindex/internal/conv"
	localfs "github.com/hupe1980/segindex/internal/fs"
	"github.com/hupe1980/segindex/internal/mmap"
	"github.com/hupe1980/segindex/schema"
)

// rawHeaderSize is the size of the cached raw data header: rows u32 | dim u32 | type u32.
const rawHeaderSize = 12

// CacheRawDataToDisk downloads vector binlogs and writes their rows to one
// local file under the build's scratch prefix. It returns the file path.
// The downloaded column is released on return; training reads the rows
// through OpenCachedRawData instead of from the heap.
func CacheRawDataToDisk(ctx context.Context, fmc *FileManagerContext, files []string) (string, error) {
	fd, err := LoadFieldData(ctx, fmc, files)
	if err != nil {
		return "", err
	}
	if !fd.Type.IsVector() {
		return "", fmt.Errorf("%w: raw data caching needs a vector field, got %s", ErrUnsupportedType, fd.Type)
	}

	if err := fmc.Resources.ReserveMemory(int64(len(fd.Vectors))); err != nil {
		return "", err
	}
	defer fmc.Resources.ReleaseMemory(int64(len(fd.Vectors)))

	rows, err := conv.IntToUint32(fd.RowNum())
	if err != nil {
		return "", fmt.Errorf("raw data rows: %w", err)
	}
	dim, err := conv.IntToUint32(fd.Dim)
	if err != nil {
		return "", fmt.Errorf("raw data dim: %w", err)
	}
	buf := make([]byte, rawHeaderSize, rawHeaderSize+len(fd.Vectors))
	binary.LittleEndian.PutUint32(buf[0:], rows)
	binary.LittleEndian.PutUint32(buf[4:], dim)
	binary.LittleEndian.PutUint32(buf[8:], uint32(fd.Type))
	buf = append(buf, fd.Vectors...)

	p := GenLocalRawDataPath(fmc.LocalRoot, fmc.IndexMeta.BuildID, fmc.IndexMeta.IndexVersion,
		fmc.FieldDataMeta.SegmentID, fmc.FieldDataMeta.FieldID)
	if err := localfs.WriteFileAtomic(fmc.FileSystem(), p, buf, 0o600); err != nil {
		return "", opError("cache", p, err)
	}
	return p, nil
}

// CachedRawData is a mapped raw data file. Data.Vectors aliases the mapping
// and is only valid until Close.
type CachedRawData struct {
	Data *FieldData
	m    *mmap.Mapping
}

// Close unmaps the file.
func (c *CachedRawData) Close() error { return c.m.Close() }

// OpenCachedRawData maps a file written by CacheRawDataToDisk. The rows are
// not copied, so consumers must not retain Data after Close.
func OpenCachedRawData(p string, logger *slog.Logger) (*CachedRawData, error) {
	m, err := mmap.Open(p)
	if err != nil {
		return nil, opError("read cache", p, err)
	}
	if err := m.Advise(mmap.AccessSequential); err != nil && logger != nil {
		logger.Debug("madvise failed", "path", p, "error", err)
	}

	data := m.Bytes()
	if len(data) < rawHeaderSize {
		_ = m.Close()
		return nil, corruptf("cached raw data %s is too short", p)
	}
	rows := int(binary.LittleEndian.Uint32(data[0:]))
	dim := int(binary.LittleEndian.Uint32(data[4:]))
	dt := schema.DataType(binary.LittleEndian.Uint32(data[8:]))
	rowBytes, ok := dt.VectorRowBytes(dim)
	if !ok || rows*rowBytes != len(data)-rawHeaderSize {
		_ = m.Close()
		return nil, corruptf("cached raw data %s: header does not match size", p)
	}
	return &CachedRawData{Data: NewVectors(dt, dim, data[rawHeaderSize:]), m: m}, nil
}

// RemoveLocalData removes a build's scratch directory. A missing directory is not an error.
func RemoveLocalData(fsys localfs.FileSystem, prefix string) error {
	if fsys == nil {
		fsys = localfs.Default
	}
	if _, err := fsys.Stat(prefix); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fsys.RemoveAll(prefix)
}

// LocalFileExists reports whether p exists on the local filesystem.
func LocalFileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
