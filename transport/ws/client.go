package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/eecp-project/eecp/auth"
	"github.com/eecp-project/eecp/crypto/keys"
	"github.com/eecp-project/eecp/eecperr"
)

// Client is the CLI-facing WebSocket binding: it drives the create-or-join
// handshake to completion and then exposes a background event stream plus
// a SubmitOperation call for everything that follows. Unlike a
// request/response transport, EECP's post-handshake traffic is a mix of
// client-submitted operations and server-pushed events (rotation,
// membership, expiry) that are not correlated by message id, so Events
// is a single ordered channel rather than a map of pending responses.
type Client struct {
	url     string
	keyPair *keys.KeyPair

	dialTimeout  time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration

	mu   sync.Mutex
	conn *websocket.Conn

	events chan MessageEnvelope

	workspaceID   string
	participantID string
}

// NewClient creates a client that will authenticate as kp's identity.
func NewClient(serverURL string, kp *keys.KeyPair) *Client {
	return &Client{
		url:          serverURL,
		keyPair:      kp,
		dialTimeout:  10 * time.Second,
		readTimeout:  60 * time.Second,
		writeTimeout: 30 * time.Second,
		events:       make(chan MessageEnvelope, 32),
	}
}

// WorkspaceID returns the workspace this client joined, valid only after
// CreateWorkspace or JoinWorkspace returns successfully.
func (c *Client) WorkspaceID() string { return c.workspaceID }

// ParticipantID returns the identity this client was admitted under.
func (c *Client) ParticipantID() string { return c.participantID }

// Events returns the channel of server-pushed envelopes (operation,
// key_rotated, participant_joined, participant_left, workspace_expired,
// error) received after the handshake completes. It is closed when the
// read loop exits.
func (c *Client) Events() <-chan MessageEnvelope { return c.events }

// CreateWorkspace dials the server, requests a new workspace, and runs the
// C5 challenge/response handshake. On success the read loop is started and
// the returned payload carries the creator's own wrapped copy of the
// workspace secret.
func (c *Client) CreateWorkspace(ctx context.Context, req CreateWorkspacePayload) (*WorkspaceCreatedPayload, error) {
	if err := c.dial(ctx, ""); err != nil {
		return nil, err
	}
	req.CreatorPublicKey = c.keyPair.PublicKeyBytes()
	if err := c.sendLocked(TypeCreateWorkspace, req); err != nil {
		return nil, err
	}

	var created WorkspaceCreatedPayload
	if err := c.handshake(&created); err != nil {
		return nil, err
	}
	c.workspaceID = created.Config.ID
	c.participantID = created.ParticipantID
	go c.readLoop()
	return &created, nil
}

// JoinWorkspace dials the server for an existing workspace and runs the
// same C5 handshake as CreateWorkspace.
func (c *Client) JoinWorkspace(ctx context.Context, workspaceID string) (*JoinAcceptedPayload, error) {
	if err := c.dial(ctx, workspaceID); err != nil {
		return nil, err
	}

	var joined JoinAcceptedPayload
	if err := c.handshake(&joined); err != nil {
		return nil, err
	}
	c.workspaceID = joined.Metadata.Config.ID
	c.participantID = findSelf(joined, c.keyPair.PublicKeyBytes())
	go c.readLoop()
	return &joined, nil
}

func (c *Client) dial(ctx context.Context, workspaceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}

	u := c.url
	if workspaceID != "" {
		parsed, err := url.Parse(c.url)
		if err != nil {
			return fmt.Errorf("ws client: parse server url: %w", err)
		}
		q := parsed.Query()
		q.Set("workspaceId", workspaceID)
		parsed.RawQuery = q.Encode()
		u = parsed.String()
	}

	dialer := &websocket.Dialer{HandshakeTimeout: c.dialTimeout}
	conn, resp, err := dialer.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("ws client: dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("ws client: dial failed: %w", err)
	}
	c.conn = conn
	return nil
}

// handshake answers the server's auth_challenge and decodes the final
// create/join acceptance payload into out.
func (c *Client) handshake(out any) error {
	var challengeEnv MessageEnvelope
	if err := c.readLockedJSON(&challengeEnv); err != nil {
		return fmt.Errorf("ws client: read auth_challenge: %w", err)
	}
	if challengeEnv.Type == TypeError {
		return decodeWireError(challengeEnv)
	}
	if challengeEnv.Type != TypeAuthChallenge {
		return fmt.Errorf("ws client: expected auth_challenge, got %q", challengeEnv.Type)
	}
	var challenge AuthChallengePayload
	if err := json.Unmarshal(challengeEnv.Payload, &challenge); err != nil {
		return fmt.Errorf("ws client: decode auth_challenge: %w", err)
	}

	sig, err := auth.SignChallenge(c.keyPair, challenge.Challenge)
	if err != nil {
		return fmt.Errorf("ws client: sign challenge: %w", err)
	}
	if err := c.sendLocked(TypeAuthResponse, AuthResponsePayload{
		Signature: sig,
		PublicKey: c.keyPair.PublicKeyBytes(),
	}); err != nil {
		return err
	}

	var acceptedEnv MessageEnvelope
	if err := c.readLockedJSON(&acceptedEnv); err != nil {
		return fmt.Errorf("ws client: read acceptance: %w", err)
	}
	if acceptedEnv.Type == TypeError {
		return decodeWireError(acceptedEnv)
	}
	if acceptedEnv.Type != TypeWorkspaceCreated && acceptedEnv.Type != TypeJoinAccepted {
		return fmt.Errorf("ws client: unexpected acceptance message %q", acceptedEnv.Type)
	}
	return json.Unmarshal(acceptedEnv.Payload, out)
}

// SubmitOperation sends a CRDT operation envelope to the server.
func (c *Client) SubmitOperation(op OperationPayload) error {
	return c.sendLocked(TypeOperation, op)
}

func (c *Client) sendLocked(typ MessageType, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env := MessageEnvelope{
		Type:          typ,
		WorkspaceID:   c.workspaceID,
		ParticipantID: c.participantID,
		Payload:       raw,
		TimestampMS:   time.Now().UnixMilli(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("ws client: not connected")
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(env)
}

func (c *Client) readLockedJSON(out *MessageEnvelope) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("ws client: not connected")
	}
	if err := conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return err
	}
	return conn.ReadJSON(out)
}

// readLoop delivers every post-handshake envelope to Events until the
// connection closes.
func (c *Client) readLoop() {
	defer close(c.events)
	for {
		var env MessageEnvelope
		if err := c.readLockedJSON(&env); err != nil {
			return
		}
		c.events <- env
	}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := c.conn.Close()
	c.conn = nil
	return err
}

func decodeWireError(env MessageEnvelope) error {
	var wire eecperr.Wire
	if err := json.Unmarshal(env.Payload, &wire); err != nil {
		return fmt.Errorf("ws client: server returned an undecodable error")
	}
	return fmt.Errorf("ws client: server error %s: %s", wire.Code, wire.Message)
}

// findSelf locates the caller's own participant id in a join_accepted
// payload by matching public key bytes, since join_accepted only echoes
// the full metadata rather than singling out the caller.
func findSelf(joined JoinAcceptedPayload, pub []byte) string {
	for id, p := range joined.Metadata.Participants {
		if string(p.PublicKey) == string(pub) {
			return id
		}
	}
	return ""
}
