package storage

import (
	"path"
	"path/filepath"
	"strconv"
)

const (
	indexFilesDir = "index_files"
	rawDataDir    = "raw_datas"
	rawDataFile   = "raw_data"
)

func id(v int64) string { return strconv.FormatInt(v, 10) }

// GenIndexPathPrefix returns root/index_files/<build>/<version>/<partition>/<segment>.
func GenIndexPathPrefix(root string, buildID, indexVersion, partitionID, segmentID int64) string {
	return path.Join(root, indexFilesDir, id(buildID), id(indexVersion), id(partitionID), id(segmentID))
}

// GetIndexPathPrefixWithBuildID returns root/index_files/<build>.
func GetIndexPathPrefixWithBuildID(root string, buildID int64) string {
	return path.Join(root, indexFilesDir, id(buildID))
}

// GenFieldRawDataPathPrefix returns root/raw_datas/<segment>/<field>.
func GenFieldRawDataPathPrefix(root string, segmentID, fieldID int64) string {
	return path.Join(root, rawDataDir, id(segmentID), id(fieldID))
}

// GetSegmentRawDataPathPrefix returns root/raw_datas/<segment>.
func GetSegmentRawDataPathPrefix(root string, segmentID int64) string {
	return path.Join(root, rawDataDir, id(segmentID))
}

// GenLocalIndexPrefix returns the local scratch directory of one build.
func GenLocalIndexPrefix(localRoot string, buildID, indexVersion int64) string {
	return filepath.Join(localRoot, indexFilesDir, id(buildID), id(indexVersion))
}

// GenLocalRawDataPath returns the local file caching a field's raw data.
func GenLocalRawDataPath(localRoot string, buildID, indexVersion, segmentID, fieldID int64) string {
	return filepath.Join(GenLocalIndexPrefix(localRoot, buildID, indexVersion), rawDataDir, id(segmentID), id(fieldID), rawDataFile)
}
