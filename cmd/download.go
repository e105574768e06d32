package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	downloadDir         string
	downloadConcurrency int
)

// downloadCmd represents the download command
var downloadCmd = &cobra.Command{
	Use:   "download <demo-id>...",
	Short: "Download demo files",
	Long: `Download one or more demos by id, verifying each file against the hash
recorded by the api. Multiple demos are fetched concurrently.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadDir, "output", "O", ".", "directory to save demos into")
	downloadCmd.Flags().IntVar(&downloadConcurrency, "concurrency", 4, "number of concurrent downloads")
}

func runDownload(cmd *cobra.Command, args []string) error {
	ids := make([]uint32, 0, len(args))
	for _, arg := range args {
		id, err := parseDemoID(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(downloadConcurrency)

	for _, id := range ids {
		g.Go(func() error {
			demo, err := client.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("demo %d: %w", id, err)
			}

			target := filepath.Join(downloadDir, filepath.Base(demo.Name))
			file, err := os.Create(target)
			if err != nil {
				return fmt.Errorf("demo %d: %w", id, err)
			}

			if err := client.Save(ctx, demo, file); err != nil {
				file.Close()
				os.Remove(target)
				return fmt.Errorf("demo %d: %w", id, err)
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("demo %d: %w", id, err)
			}

			logger.Info().Uint32("demo", id).Str("file", target).Msg("demo saved")
			return nil
		})
	}

	return g.Wait()
}
