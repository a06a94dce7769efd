package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <workspaceId> <outputPath>",
	Short: "Export a workspace's metadata and commitment log",
	Long: `export writes a workspace's public audit trail — its metadata and
commitment log, never plaintext or key material — to outputPath as JSON.`,
	Args: cobra.ExactArgs(2),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	workspaceID, outputPath := args[0], args[1]

	resp, err := http.Get(httpBase(serverURL) + "/workspaces/" + workspaceID + "/export")
	if err != nil {
		return fmt.Errorf("export workspace: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("export workspace: server returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read export body: %w", err)
	}
	if err := os.WriteFile(outputPath, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outputPath, err)
	}

	fmt.Printf("exported workspace %s to %s\n", workspaceID, outputPath)
	return nil
}
