package main

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eecp-project/eecp/crdt"
	"github.com/eecp-project/eecp/crypto/keys"
	"github.com/eecp-project/eecp/crypto/recipients"
	"github.com/eecp-project/eecp/transport/ws"
)

var (
	createDuration        int64
	createMaxParticipants int
	createAllowExtension  bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new workspace",
	Example: `  eecp create --duration 10 --max-participants 4
  eecp create --allow-extension --server ws://localhost:3000/ws`,
	RunE: runCreate,
}

func init() {
	rootCmd.AddCommand(createCmd)
	createCmd.Flags().Int64Var(&createDuration, "duration", 30, "workspace duration in minutes")
	createCmd.Flags().IntVar(&createMaxParticipants, "max-participants", 8, "maximum number of participants")
	createCmd.Flags().BoolVar(&createAllowExtension, "allow-extension", false, "allow extending the workspace's lifetime")
}

func runCreate(cmd *cobra.Command, args []string) error {
	identity, err := keys.Generate()
	if err != nil {
		return fmt.Errorf("generate identity key: %w", err)
	}

	client := ws.NewClient(serverURL, identity)
	created, err := client.CreateWorkspace(context.Background(), ws.CreateWorkspacePayload{
		DurationMinutes: createDuration,
		MaxParticipants: createMaxParticipants,
		AllowExtension:  createAllowExtension,
	})
	if err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}

	secret, err := recipients.DecryptForRecipient(
		recipients.EncryptedMessage{Entries: map[string]recipients.WrappedEntry{created.ParticipantID: created.WrappedSecret}},
		created.ParticipantID, identity,
	)
	if err != nil {
		return fmt.Errorf("unwrap workspace secret: %w", err)
	}

	fmt.Printf("workspace created: %s\n", created.Config.ID)
	fmt.Printf("share with participants:\n  eecp join %s --key %s --server %s\n",
		created.Config.ID, base64.RawURLEncoding.EncodeToString(secret), serverURL)

	session := &liveSession{
		client:        client,
		identity:      identity,
		secret:        secret,
		timeWindow:    created.Config.TimeWindow,
		createdAtMS:   created.Config.CreatedAtMS,
		workspaceID:   created.Config.ID,
		participantID: created.ParticipantID,
		doc:           crdt.NewDocument(),
	}
	return runInteractive(session)
}
