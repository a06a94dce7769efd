package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eecp-project/eecp/crdt"
	"github.com/eecp-project/eecp/crypto/keys"
	"github.com/eecp-project/eecp/crypto/recipients"
	"github.com/eecp-project/eecp/transport/ws"
)

var joinKey string

var joinCmd = &cobra.Command{
	Use:   "join <workspaceId>",
	Short: "Join an existing workspace",
	Args:  cobra.ExactArgs(1),
	Example: `  eecp join 5f8c... --key 5QzT9f...`,
	RunE: runJoin,
}

func init() {
	rootCmd.AddCommand(joinCmd)
	joinCmd.Flags().StringVar(&joinKey, "key", "", "base64url-encoded workspace secret from the creator's share command (required)")
	_ = joinCmd.MarkFlagRequired("key")
}

func runJoin(cmd *cobra.Command, args []string) error {
	workspaceID := args[0]

	outOfBandSecret, err := base64.RawURLEncoding.DecodeString(joinKey)
	if err != nil {
		return fmt.Errorf("decode --key: %w", err)
	}

	// A fresh identity keypair per join: nothing in the CLI surface persists
	// a long-lived identity, so the ephemeral key signs the auth challenge
	// and doubles as the ECIES recipient key for the secret the server wraps.
	identity, err := keys.Generate()
	if err != nil {
		return fmt.Errorf("generate identity key: %w", err)
	}

	client := ws.NewClient(serverURL, identity)
	joined, err := client.JoinWorkspace(context.Background(), workspaceID)
	if err != nil {
		return fmt.Errorf("join workspace: %w", err)
	}

	if err := verifyWrappedSecret(joined.WrappedSecret, client.ParticipantID(), identity, outOfBandSecret); err != nil {
		return err
	}

	cfg := joined.Metadata.Config
	fmt.Printf("joined workspace: %s\n", workspaceID)

	session := &liveSession{
		client:        client,
		identity:      identity,
		secret:        outOfBandSecret,
		timeWindow:    cfg.TimeWindow,
		createdAtMS:   cfg.CreatedAtMS,
		workspaceID:   workspaceID,
		participantID: client.ParticipantID(),
		doc:           crdt.NewDocument(),
	}
	return runInteractive(session)
}

// verifyWrappedSecret decrypts the server's ECIES-wrapped secret with the
// caller's identity key and checks it against the secret the participant
// already possesses out of band (from --key). The server-delivered copy is
// never trusted on its own: a mismatch is always fatal.
func verifyWrappedSecret(wrapped recipients.WrappedEntry, participantID string, identity *keys.KeyPair, outOfBandSecret []byte) error {
	serverSecret, err := recipients.DecryptForRecipient(
		recipients.EncryptedMessage{Entries: map[string]recipients.WrappedEntry{participantID: wrapped}},
		participantID, identity,
	)
	if err != nil {
		return fmt.Errorf("unwrap workspace secret: %w", err)
	}
	if !bytes.Equal(serverSecret, outOfBandSecret) {
		return fmt.Errorf("workspace secret mismatch: server-delivered secret does not match --key")
	}
	return nil
}
