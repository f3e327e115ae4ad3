// Package mmap provides read-only memory-mapped access to local files.
//
// Index builders that cache raw field data on local scratch storage read it
// back through a Mapping instead of copying it into the Go heap.
//
//	m, err := mmap.Open(path)
//	if err != nil { ... }
//	defer m.Close()
//	m.Advise(mmap.AccessSequential)
//	data := m.Bytes()
//
// Unix platforms use mmap(2)/madvise(2); Windows uses MapViewOfFile and
// ignores access hints.
package mmap
