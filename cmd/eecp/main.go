// Command eecp is the CLI surface from spec.md §6: create a workspace,
// join one by id, list workspaces known to a server, and export a
// workspace's public audit trail (commitments and metadata — never
// plaintext or key material).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "eecp",
	Short: "EECP CLI - ephemeral encrypted collaboration workspaces",
	Long: `eecp creates and joins short-lived, server-blind collaborative text
workspaces. Temporal keys are derived locally from a shared workspace
secret; the server only ever sees ciphertext.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL(), "EECP server URL")

	// Commands are registered in their respective files:
	//   create.go: createCmd   join.go: joinCmd
	//   list.go:   listCmd     export.go: exportCmd
	//   serve.go:  serveCmd
}

// defaultServerURL builds ws://HOST:PORT from the HOST/PORT environment
// variables named by spec.md §6, defaulting to localhost:3000.
func defaultServerURL() string {
	host := os.Getenv("HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	return fmt.Sprintf("ws://%s:%s/ws", host, port)
}
