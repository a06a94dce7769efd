package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// workspaceSummary mirrors the JSON shape served by GET /workspaces. It is
// a local decoding target, not a shared type, since transport/ws keeps its
// own version unexported.
type workspaceSummary struct {
	ID                   string `json:"id"`
	State                string `json:"state"`
	CreatedAtMS          int64  `json:"createdAt"`
	ExpiresAtMS          int64  `json:"expiresAt"`
	ParticipantCount     int    `json:"participantCount"`
	CurrentTemporalKeyID string `json:"currentTemporalKeyId"`
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces known to the server",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	resp, err := http.Get(httpBase(serverURL) + "/workspaces")
	if err != nil {
		return fmt.Errorf("list workspaces: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("list workspaces: server returned %s", resp.Status)
	}

	var summaries []workspaceSummary
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		return fmt.Errorf("decode workspace list: %w", err)
	}

	if len(summaries) == 0 {
		fmt.Println("no workspaces")
		return nil
	}
	for _, s := range summaries {
		fmt.Printf("%-36s  %-10s  participants=%-3d  key=%-12s  expires=%s\n",
			s.ID, s.State, s.ParticipantCount, s.CurrentTemporalKeyID,
			time.UnixMilli(s.ExpiresAtMS).Format(time.RFC3339))
	}
	return nil
}
