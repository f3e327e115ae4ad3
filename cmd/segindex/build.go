package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/segindex"
)

func buildCmd() *cobra.Command {
	var (
		jobFile    string
		jsonOutput bool
		timeout    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Run the index build described by a job file",
		Long: `Create an index from the job's insert files (or, when the job has a v2
section, from its data space), build it and upload the artifacts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := loadJob(jobFile)
			if err != nil {
				return err
			}
			if err := job.validate(); err != nil {
				return fmt.Errorf("%s: %w", jobFile, err)
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			res, err := runBuild(ctx, job)
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			res.print(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringVarP(&jobFile, "file", "f", "job.yaml", "job file")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the result as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "abort the build after this duration")
	return cmd
}

type buildResult struct {
	IndexType string           `json:"index_type"`
	Target    string           `json:"target"`
	Blobs     map[string]int64 `json:"blobs"`
	Files     map[string]int64 `json:"files"`
	Duration  time.Duration    `json:"duration"`
}

func (r *buildResult) print(w io.Writer) {
	fmt.Fprintf(w, "Index type: %s\n", r.IndexType)
	fmt.Fprintf(w, "Target: %s\n", r.Target)
	fmt.Fprintf(w, "Duration: %v\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintln(w, "Blobs:")
	for _, k := range slices.Sorted(maps.Keys(r.Blobs)) {
		fmt.Fprintf(w, "  %s\t%d\n", k, r.Blobs[k])
	}
	fmt.Fprintln(w, "Files:")
	for _, k := range slices.Sorted(maps.Keys(r.Files)) {
		fmt.Fprintf(w, "  %s\t%d\n", k, r.Files[k])
	}
}

func runBuild(ctx context.Context, job *Job) (*buildResult, error) {
	start := time.Now()
	opts := []segindex.Option{
		segindex.WithLogger(newLogger()),
		segindex.WithResourceConfig(job.Resources),
	}
	if job.LocalRoot != "" {
		opts = append(opts, segindex.WithLocalRoot(job.LocalRoot))
	}
	b := segindex.New(opts...)
	defer b.Close()

	ft, err := job.FieldType()
	if err != nil {
		return nil, err
	}
	info, st := b.NewBuildIndexInfo(job.Storage)
	if err := st.Err(); err != nil {
		return nil, err
	}
	defer b.DeleteBuildIndexInfo(info)

	steps := []func() segindex.Status{
		func() segindex.Status { return b.AppendBuildTypeParam(info, encodeParams(job.TypeParams)) },
		func() segindex.Status { return b.AppendBuildIndexParam(info, encodeParams(job.IndexParams)) },
		func() segindex.Status {
			f := job.Field
			if job.V2 != nil {
				return b.AppendFieldMetaInfoV2(info, f.CollectionID, f.PartitionID, f.SegmentID, f.FieldID, f.Name, ft, f.Dim)
			}
			return b.AppendFieldMetaInfo(info, f.CollectionID, f.PartitionID, f.SegmentID, f.FieldID, ft)
		},
		func() segindex.Status {
			return b.AppendIndexMetaInfo(info, job.Index.IndexID, job.Index.BuildID, job.Index.Version)
		},
	}
	if job.Index.EngineVersion != 0 {
		steps = append(steps, func() segindex.Status {
			return b.AppendIndexEngineVersionToBuildInfo(info, job.Index.EngineVersion)
		})
	}
	for _, p := range job.InsertFiles {
		steps = append(steps, func() segindex.Status { return b.AppendInsertFilePath(info, p) })
	}
	if job.V2 != nil {
		steps = append(steps, func() segindex.Status {
			return b.AppendIndexStorageInfo(info, job.V2.DataStorePath, job.V2.IndexStorePath, job.V2.DataStoreVersion)
		})
	}
	for _, step := range steps {
		if err := step().Err(); err != nil {
			return nil, err
		}
	}

	create, upload, target := b.CreateIndex, b.SerializeIndexAndUpload, job.Storage.StorageType
	if job.V2 != nil {
		create, upload, target = b.CreateIndexV2, b.SerializeIndexAndUploadV2, job.V2.IndexStorePath
	}

	idx, st := create(ctx, info)
	if err := st.Err(); err != nil {
		return nil, err
	}
	defer b.DeleteIndex(idx)
	defer b.CleanLocalData(ctx, idx)

	set, st := upload(ctx, idx)
	if err := st.Err(); err != nil {
		return nil, err
	}
	defer b.DeleteBinarySet(set)

	res := &buildResult{
		IndexType: job.IndexParams["index_type"],
		Target:    target,
		Blobs:     make(map[string]int64),
	}
	keys, st := b.GetBinarySetKeys(set)
	if err := st.Err(); err != nil {
		return nil, err
	}
	for _, k := range keys {
		size, st := b.GetBinarySetValueSize(set, k)
		if err := st.Err(); err != nil {
			return nil, err
		}
		res.Blobs[k] = size
	}
	if res.Files, st = b.UploadedIndexFiles(idx); !st.OK() {
		return nil, st.Err()
	}
	res.Duration = time.Since(start)
	return res, nil
}
