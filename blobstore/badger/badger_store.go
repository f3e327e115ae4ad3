// Package badger provides an embedded BlobStore backed by BadgerDB.
//
// It serves storage_type "badger": a single-node chunk store that keeps
// binlogs, index files and space manifests in one key-value directory.
package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/hupe1980/segindex/blobstore"
)

// Options configures Open.
type Options struct {
	// Dir holds the database files. Required unless InMemory.
	Dir string
	// InMemory keeps all data in memory.
	InMemory bool
	// Logger receives badger's internal log lines. Nil discards them.
	Logger *slog.Logger
}

// Store implements blobstore.BlobStore on a BadgerDB instance.
type Store struct {
	db *badger.DB
}

// Open opens or creates the database.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("badger: Options.Dir is required for on-disk mode")
	}
	dir := opts.Dir
	if opts.InMemory {
		dir = ""
	}
	dbOpts := badger.DefaultOptions(dir).
		WithInMemory(opts.InMemory).
		WithLogger(slogAdapter{l: opts.Logger})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %s: %w", opts.Dir, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Open reads the whole value; blobs are served from memory.
func (s *Store) Open(_ context.Context, name string) (blobstore.Blob, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(name))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, blobstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &valueBlob{data: val}, nil
}

// Put writes the value in a single transaction.
func (s *Store) Put(_ context.Context, name string, data []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(name), bytes.Clone(data))
	})
}

// Create buffers writes and stores the value on Close.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	return &bufferedBlob{ctx: ctx, store: s, name: name}, nil
}

// Delete removes a key. Missing keys are ignored.
func (s *Store) Delete(_ context.Context, name string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(name))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

// List iterates keys with the given prefix.
func (s *Store) List(_ context.Context, prefix string) ([]string, error) {
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			names = append(names, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(names)
	return names, nil
}

type valueBlob struct {
	data []byte
}

func (b *valueBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	if off >= int64(len(b.data)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *valueBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	if off >= int64(len(b.data)) {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	end := min(off+length, int64(len(b.data)))
	return io.NopCloser(bytes.NewReader(b.data[off:end])), nil
}

func (b *valueBlob) Size() int64            { return int64(len(b.data)) }
func (b *valueBlob) Close() error           { return nil }
func (b *valueBlob) Bytes() ([]byte, error) { return b.data, nil }

type bufferedBlob struct {
	ctx   context.Context
	store *Store
	name  string
	buf   bytes.Buffer
	done  bool
}

func (w *bufferedBlob) Write(p []byte) (int, error) { return w.buf.Write(p) }
func (w *bufferedBlob) Sync() error                 { return nil }

func (w *bufferedBlob) Close() error {
	if w.done {
		return io.ErrClosedPipe
	}
	w.done = true
	return w.store.Put(w.ctx, w.name, w.buf.Bytes())
}

// slogAdapter routes badger's printf-style logging to slog.
type slogAdapter struct {
	l *slog.Logger
}

func (a slogAdapter) log(level slog.Level, format string, args ...any) {
	if a.l == nil {
		return
	}
	a.l.Log(context.Background(), level, fmt.Sprintf(format, args...), "component", "badger")
}

func (a slogAdapter) Errorf(f string, v ...any)   { a.log(slog.LevelError, f, v...) }
func (a slogAdapter) Warningf(f string, v ...any) { a.log(slog.LevelWarn, f, v...) }
func (a slogAdapter) Infof(f string, v ...any)    { a.log(slog.LevelInfo, f, v...) }
func (a slogAdapter) Debugf(f string, v ...any)   { a.log(slog.LevelDebug, f, v...) }
