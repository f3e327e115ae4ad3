package main

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/segindex/space"
	"github.com/hupe1980/segindex/storage"
)

func spaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "space",
		Short: "Inspect versioned spaces",
	}

	var jobFile string
	versions := &cobra.Command{
		Use:   "versions <path>",
		Short: "List the committed versions of a space",
		Long: `List every manifest version of the space at path. Paths with a file://
scheme are opened directly; other paths need --file to select the storage.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			var cm *storage.ChunkManager
			if jobFile != "" {
				job, err := loadJob(jobFile)
				if err != nil {
					return err
				}
				if cm, err = storage.NewChunkManager(ctx, job.Storage); err != nil {
					return err
				}
				defer cm.Close()
			}
			store, err := space.ResolveStore(cm, args[0])
			if err != nil {
				return err
			}
			manifests, err := space.Versions(ctx, store)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tCREATED\tCOLUMNS\tBLOBS")
			for _, m := range manifests {
				cols := slices.Sorted(maps.Keys(m.Columns))
				parts := make([]string, len(cols))
				for i, c := range cols {
					parts[i] = fmt.Sprintf("%s=%d", c, m.Rows(c))
				}
				fmt.Fprintf(w, "%d\t%s\t%v\t%d\n", m.Version, m.CreatedAt.Format(time.RFC3339), parts, len(m.Blobs))
			}
			return w.Flush()
		},
	}
	versions.Flags().StringVarP(&jobFile, "file", "f", "", "job file whose storage section locates the space")
	cmd.AddCommand(versions)
	return cmd
}
