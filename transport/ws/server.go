package ws

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/eecp-project/eecp/auth"
	"github.com/eecp-project/eecp/crypto/keys"
	"github.com/eecp-project/eecp/crypto/temporal"
	"github.com/eecp-project/eecp/eecperr"
	"github.com/eecp-project/eecp/internal/logger"
	"github.com/eecp-project/eecp/workspace"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 30 * time.Second

	broadcastPollInterval = 1 * time.Second
	joinHandshakeTimeout  = 10 * time.Second
)

// Server serves the EECP WebSocket protocol over a workspace.Manager.
// Every connection either creates a new workspace or joins an existing one
// named by the "workspaceId" query parameter, authenticates via C5, then
// enters a read loop that routes operation envelopes through the
// workspace and a broadcast loop that pushes server-originated events
// (rotation, membership, expiry) back to the connection.
type Server struct {
	manager  *workspace.Manager
	auth     *auth.Manager
	upgrader websocket.Upgrader
	log      logger.Logger
	now      func() int64

	mu    sync.RWMutex
	conns map[string]map[string]*websocket.Conn // workspaceID -> participantID -> conn

	departedMu sync.Mutex
	departed   map[string]map[string]bool // workspaceID -> participantID -> already notified

	stop chan struct{}
	wg   sync.WaitGroup

	defaultRotationInterval int64
	defaultGracePeriodMS    int64
	defaultDurationMinutes  int64
	defaultHardCapMinutes   int64
}

// NewServer creates a Server bound to manager. now supplies the current
// time in epoch milliseconds; pass nil to use time.Now.
func NewServer(manager *workspace.Manager, authManager *auth.Manager, now func() int64) *Server {
	if now == nil {
		now = func() int64 { return time.Now().UnixMilli() }
	}
	s := &Server{
		manager: manager,
		auth:    authManager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log:      logger.GetDefaultLogger(),
		now:      now,
		conns:    make(map[string]map[string]*websocket.Conn),
		departed: make(map[string]map[string]bool),
		stop:     make(chan struct{}),

		defaultRotationInterval: 5,
		defaultGracePeriodMS:    60_000,
		defaultDurationMinutes:  30,
		defaultHardCapMinutes:   480,
	}
	s.wg.Add(1)
	go s.broadcastLoop()
	return s
}

// SetRotationDefaults overrides the rotation interval (minutes, one of 5,
// 15, 30, 60), grace period (milliseconds), default session duration
// (minutes) and hard cap (minutes) applied to create requests that omit
// them. Call before serving traffic; it is not safe for concurrent use
// with CreateWorkspace.
func (s *Server) SetRotationDefaults(rotationIntervalMinutes, gracePeriodMS, defaultDurationMinutes, hardCapMinutes int64) {
	s.defaultRotationInterval = rotationIntervalMinutes
	s.defaultGracePeriodMS = gracePeriodMS
	s.defaultDurationMinutes = defaultDurationMinutes
	s.defaultHardCapMinutes = hardCapMinutes
}

// Close stops the broadcast loop and drops every tracked connection.
func (s *Server) Close() error {
	close(s.stop)
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, byParticipant := range s.conns {
		for _, conn := range byParticipant {
			_ = conn.Close()
		}
	}
	s.conns = make(map[string]map[string]*websocket.Conn)
	return nil
}

// Handler returns an http.Handler for the WebSocket upgrade endpoint.
// workspaceId is an optional query parameter: present, it names an
// existing workspace to join; absent, the connection's first envelope
// must be create_workspace.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, fmt.Sprintf("websocket upgrade failed: %v", err), http.StatusBadRequest)
			return
		}
		defer func() { _ = conn.Close() }()

		workspaceID := r.URL.Query().Get("workspaceId")
		s.handleConnection(r.Context(), conn, workspaceID)
	})
}

// Routes returns the full HTTP surface: the WebSocket upgrade endpoint plus
// the plain-JSON list/export endpoints used by the CLI's list and export
// commands.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.Handler())
	mux.HandleFunc("/workspaces", s.ListWorkspacesHandler())
	mux.HandleFunc("/workspaces/", s.ExportWorkspaceHandler())
	return mux
}

func (s *Server) handleConnection(ctx context.Context, conn *websocket.Conn, workspaceID string) {
	ws, participantID, err := s.handshake(conn, workspaceID)
	if err != nil {
		s.sendError(conn, workspaceID, "", err)
		return
	}
	defer s.untrackConnection(ws.ID(), participantID)
	s.trackConnection(ws.ID(), participantID, conn)

	s.broadcastParticipantEvent(ws.ID(), TypeParticipantJoined, ws.Snapshot().Participants[participantID])

	for {
		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return
		}

		var env MessageEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("websocket read error", logger.Error(err))
			}
			return
		}
		ws.Touch(participantID, s.now())

		switch env.Type {
		case TypeOperation:
			if err := s.handleOperation(conn, ws, env); errors.Is(err, eecperr.ErrUnauthorized) {
				// bad signature: drop the connection rather than keep serving it
				return
			}
		default:
			s.sendError(conn, ws.ID(), participantID, fmt.Errorf("unexpected message type %q: %w", env.Type, eecperr.ErrInvalidOperation))
		}
	}
}

// handshake runs the create-or-join + C5 challenge/response flow for one
// connection and returns the admitted workspace and participant id.
func (s *Server) handshake(conn *websocket.Conn, workspaceID string) (*workspace.Workspace, string, error) {
	var ws *workspace.Workspace
	var creatorPublicKey []byte

	if err := conn.SetReadDeadline(time.Now().Add(joinHandshakeTimeout)); err != nil {
		return nil, "", err
	}

	if workspaceID == "" {
		var env MessageEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			return nil, "", fmt.Errorf("handshake: read create_workspace: %w", err)
		}
		if env.Type != TypeCreateWorkspace {
			return nil, "", fmt.Errorf("handshake: expected create_workspace, got %q: %w", env.Type, eecperr.ErrInvalidOperation)
		}

		var payload CreateWorkspacePayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return nil, "", fmt.Errorf("handshake: decode create_workspace payload: %w", eecperr.ErrInvalidOperation)
		}

		cfg := s.newWorkspaceConfig(payload, s.now())
		secret := make([]byte, temporal.SecretLength)
		if _, err := rand.Read(secret); err != nil {
			return nil, "", fmt.Errorf("handshake: generate secret: %w", eecperr.ErrInternal)
		}

		created, err := s.manager.CreateWorkspace(cfg, secret)
		if err != nil {
			return nil, "", err
		}
		ws = created
		creatorPublicKey = payload.CreatorPublicKey
	} else {
		found, ok := s.manager.Get(workspaceID)
		if !ok {
			return nil, "", fmt.Errorf("handshake: workspace %s not found: %w", workspaceID, eecperr.ErrNotFound)
		}
		ws = found
	}

	challengeID, challengeValue, err := s.auth.Issue(time.Now())
	if err != nil {
		return nil, "", fmt.Errorf("handshake: issue challenge: %w", eecperr.ErrInternal)
	}
	if err := s.sendEnvelope(conn, ws.ID(), "", TypeAuthChallenge, AuthChallengePayload{Challenge: challengeValue}); err != nil {
		return nil, "", err
	}

	var env MessageEnvelope
	if err := conn.ReadJSON(&env); err != nil {
		return nil, "", fmt.Errorf("handshake: read auth_response: %w", err)
	}
	if env.Type != TypeAuthResponse {
		return nil, "", fmt.Errorf("handshake: expected auth_response, got %q: %w", env.Type, eecperr.ErrInvalidOperation)
	}

	var resp AuthResponsePayload
	if err := json.Unmarshal(env.Payload, &resp); err != nil {
		return nil, "", fmt.Errorf("handshake: decode auth_response payload: %w", eecperr.ErrInvalidOperation)
	}
	if creatorPublicKey != nil && string(creatorPublicKey) != string(resp.PublicKey) {
		return nil, "", fmt.Errorf("handshake: auth_response key does not match creatorPublicKey: %w", eecperr.ErrUnauthorized)
	}

	pub, err := keys.ParsePublicKey(resp.PublicKey)
	if err != nil {
		return nil, "", fmt.Errorf("handshake: malformed public key: %w", eecperr.ErrUnauthorized)
	}
	participantID, err := s.auth.Verify(challengeID, time.Now(), pub.ToECDSA(), resp.Signature)
	if err != nil {
		return nil, "", err
	}

	wrapped, metadata, err := ws.Admit(participantID, resp.PublicKey, s.now())
	if err != nil {
		return nil, "", err
	}

	if workspaceID == "" {
		err = s.sendEnvelope(conn, ws.ID(), participantID, TypeWorkspaceCreated, WorkspaceCreatedPayload{
			Config:        metadata.Config,
			ParticipantID: participantID,
			WrappedSecret: wrapped,
		})
	} else {
		err = s.sendEnvelope(conn, ws.ID(), participantID, TypeJoinAccepted, JoinAcceptedPayload{
			Metadata:      metadata,
			WrappedSecret: wrapped,
		})
	}
	if err != nil {
		return nil, "", err
	}

	return ws, participantID, nil
}

// handleOperation decodes and routes one operation envelope. It returns the
// routing error, if any, so the caller can decide whether the connection
// must be dropped (ErrUnauthorized) or may keep serving (ErrRateLimited and
// friends).
func (s *Server) handleOperation(conn *websocket.Conn, ws *workspace.Workspace, env MessageEnvelope) error {
	var payload OperationPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		wireErr := fmt.Errorf("decode operation payload: %w", eecperr.ErrInvalidOperation)
		s.sendError(conn, ws.ID(), env.ParticipantID, wireErr)
		return wireErr
	}

	if err := ws.SubmitOperation(payload.Operation, s.now()); err != nil {
		s.sendError(conn, ws.ID(), payload.Operation.ParticipantID, err)
		return err
	}

	s.broadcastOperation(ws.ID(), payload.Operation, payload.Operation.ParticipantID)
	return nil
}

func (s *Server) newWorkspaceConfig(p CreateWorkspacePayload, nowMS int64) workspace.WorkspaceConfig {
	maxParticipants := p.MaxParticipants
	if maxParticipants <= 0 {
		maxParticipants = 8
	}
	durationMinutes := p.DurationMinutes
	if durationMinutes <= 0 {
		durationMinutes = s.defaultDurationMinutes
	}
	hardCap := p.HardCapMinutes
	if hardCap <= 0 {
		hardCap = s.defaultHardCapMinutes
	}

	return workspace.WorkspaceConfig{
		ID:          uuid.NewString(),
		CreatedAtMS: nowMS,
		ExpiresAtMS: nowMS + durationMinutes*60_000,
		TimeWindow: temporal.TimeWindow{
			StartTimeMS:      nowMS,
			EndTimeMS:        nowMS + hardCap*60_000,
			RotationInterval: s.defaultRotationInterval,
			GracePeriodMS:    s.defaultGracePeriodMS,
		},
		MaxParticipants: maxParticipants,
		AllowExtension:  p.AllowExtension,
		HardCapMinutes:  hardCap,
	}
}
