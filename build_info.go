package segindex

import (
	"context"

	"github.com/hupe1980/segindex/buildinfo"
	"github.com/hupe1980/segindex/schema"
)

// NewBuildIndexInfo starts a build request with a copy of cfg.
func (b *Builder) NewBuildIndexInfo(cfg buildinfo.StorageConfig) (BuildInfoHandle, Status) {
	var h BuildInfoHandle
	st := b.guard(context.Background(), "NewBuildIndexInfo", func() error {
		h = BuildInfoHandle(b.handles.put(kindBuildInfo, buildinfo.New(cfg)))
		return nil
	})
	return h, st
}

// DeleteBuildIndexInfo releases a build request.
func (b *Builder) DeleteBuildIndexInfo(h BuildInfoHandle) Status {
	return b.guard(context.Background(), "DeleteBuildIndexInfo", func() error {
		_, err := b.handles.remove(kindBuildInfo, uint64(h))
		return err
	})
}

func (b *Builder) withBuildInfo(op string, h BuildInfoHandle, fn func(*buildinfo.BuildInfo) error) Status {
	return b.guard(context.Background(), op, func() error {
		bi, err := lookup[*buildinfo.BuildInfo](b.handles, kindBuildInfo, uint64(h))
		if err != nil {
			return err
		}
		return fn(bi)
	})
}

// AppendBuildIndexParam merges a serialized IndexParams message into the
// request config. Later values win.
func (b *Builder) AppendBuildIndexParam(h BuildInfoHandle, params []byte) Status {
	return b.withBuildInfo("AppendBuildIndexParam", h, func(bi *buildinfo.BuildInfo) error {
		return bi.AppendIndexParams(params)
	})
}

// AppendBuildTypeParam merges a serialized TypeParams message into the
// request config. Later values win.
func (b *Builder) AppendBuildTypeParam(h BuildInfoHandle, params []byte) Status {
	return b.withBuildInfo("AppendBuildTypeParam", h, func(bi *buildinfo.BuildInfo) error {
		return bi.AppendTypeParams(params)
	})
}

// AppendFieldMetaInfo records the identity and type of the indexed field.
func (b *Builder) AppendFieldMetaInfo(h BuildInfoHandle, collectionID, partitionID, segmentID, fieldID int64, fieldType schema.DataType) Status {
	return b.withBuildInfo("AppendFieldMetaInfo", h, func(bi *buildinfo.BuildInfo) error {
		bi.AppendFieldMeta(collectionID, partitionID, segmentID, fieldID, fieldType)
		return nil
	})
}

// AppendFieldMetaInfoV2 additionally records the column name and dimension.
func (b *Builder) AppendFieldMetaInfoV2(h BuildInfoHandle, collectionID, partitionID, segmentID, fieldID int64, fieldName string, fieldType schema.DataType, dim int64) Status {
	return b.withBuildInfo("AppendFieldMetaInfoV2", h, func(bi *buildinfo.BuildInfo) error {
		bi.AppendFieldMetaV2(collectionID, partitionID, segmentID, fieldID, fieldType, fieldName, dim)
		return nil
	})
}

// AppendIndexMetaInfo records the index identity.
func (b *Builder) AppendIndexMetaInfo(h BuildInfoHandle, indexID, buildID, version int64) Status {
	return b.withBuildInfo("AppendIndexMetaInfo", h, func(bi *buildinfo.BuildInfo) error {
		bi.AppendIndexMeta(indexID, buildID, version)
		return nil
	})
}

// AppendInsertFilePath appends one input binlog.
func (b *Builder) AppendInsertFilePath(h BuildInfoHandle, path string) Status {
	return b.withBuildInfo("AppendInsertFilePath", h, func(bi *buildinfo.BuildInfo) error {
		bi.AppendInsertFile(path)
		return nil
	})
}

// AppendIndexEngineVersionToBuildInfo pins the engine version of the index.
func (b *Builder) AppendIndexEngineVersionToBuildInfo(h BuildInfoHandle, version int32) Status {
	return b.withBuildInfo("AppendIndexEngineVersionToBuildInfo", h, func(bi *buildinfo.BuildInfo) error {
		bi.AppendEngineVersion(version)
		return nil
	})
}

// AppendIndexStorageInfo records the data and index space paths of a V2 build.
func (b *Builder) AppendIndexStorageInfo(h BuildInfoHandle, dataStorePath, indexStorePath string, dataStoreVersion int64) Status {
	return b.withBuildInfo("AppendIndexStorageInfo", h, func(bi *buildinfo.BuildInfo) error {
		bi.AppendStorageInfo(dataStorePath, indexStorePath, dataStoreVersion)
		return nil
	})
}
