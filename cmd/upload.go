package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/demostf/go-client/demostf"
)

var (
	uploadName string
	uploadRed  string
	uploadBlue string
)

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a demo file",
	Long: `Upload a demo file to demos.tf. Requires an access key in the
configuration (server.key). The file is streamed, large demos are fine.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadName, "name", "", "demo name (defaults to the file name)")
	uploadCmd.Flags().StringVar(&uploadRed, "red", "RED", "red team name")
	uploadCmd.Flags().StringVar(&uploadBlue, "blue", "BLU", "blue team name")
}

func runUpload(cmd *cobra.Command, args []string) error {
	path := args[0]

	name := uploadName
	if name == "" {
		name = filepath.Base(path)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open demo file: %w", err)
	}
	defer file.Close()

	id, err := client.Upload(cmd.Context(), &demostf.UploadRequest{
		Name: name,
		Red:  uploadRed,
		Blue: uploadBlue,
		Body: file,
	})
	if err != nil {
		return err
	}

	logger.Info().Uint32("demo", id).Str("name", name).Msg("demo uploaded")
	fmt.Printf("uploaded as demo %d\n", id)
	return nil
}
