// Package segindex builds vector and scalar indexes for database segments
// and persists the resulting artifacts.
//
// The entry points on Builder mirror a process boundary: every call returns
// a Status instead of an error, and every object handed to the caller is an
// opaque handle that must be released with the matching Delete call.
//
// # Quick Start
//
// Building from binlogs in a chunk store (V1):
//
//	b := segindex.New(segindex.WithLogger(segindex.NewTextLogger(slog.LevelInfo)))
//	info, _ := b.NewBuildIndexInfo(buildinfo.StorageConfig{StorageType: "minio", ...})
//	b.AppendFieldMetaInfo(info, collID, partID, segID, fieldID, schema.FloatVector)
//	b.AppendIndexMetaInfo(info, indexID, buildID, 1)
//	b.AppendBuildTypeParam(info, typeParams)   // dim
//	b.AppendBuildIndexParam(info, indexParams) // index_type, metric_type, ...
//	b.AppendInsertFilePath(info, "files/insert_log/...")
//	idx, st := b.CreateIndex(ctx, info)
//	if !st.OK() { ... }
//	set, st := b.SerializeIndexAndUpload(ctx, idx)
//	b.CleanLocalData(ctx, idx)
//	b.DeleteBinarySet(set)
//	b.DeleteIndex(idx)
//	b.DeleteBuildIndexInfo(info)
//
// Building from a columnar space (V2) replaces the insert files with
// AppendIndexStorageInfo and uses CreateIndexV2 and SerializeIndexAndUploadV2.
// The index space is opened with the data space's schema; a space that
// already exists under a different schema fails the build.
//
// # Index Variants
//
// Variants register themselves with the index factory when their package is
// imported; this package imports all built-in ones:
//
//   - FLAT, IVF_FLAT (float and float16 vectors; L2, IP, COSINE)
//   - BIN_FLAT (binary vectors; HAMMING, JACCARD)
//   - STL_SORT (numeric and string scalars)
//   - BITMAP (bool, integer and string scalars)
package segindex
