package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/eecp-project/eecp/eecperr"
	"github.com/eecp-project/eecp/internal/logger"
	"github.com/eecp-project/eecp/workspace"
)

// sendEnvelope marshals payload and writes it to conn wrapped in an
// envelope of the given type.
func (s *Server) sendEnvelope(conn *websocket.Conn, workspaceID, participantID string, typ MessageType, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env := MessageEnvelope{
		Type:          typ,
		WorkspaceID:   workspaceID,
		ParticipantID: participantID,
		Payload:       raw,
		TimestampMS:   time.Now().UnixMilli(),
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(env)
}

func (s *Server) sendError(conn *websocket.Conn, workspaceID, participantID string, cause error) {
	if err := s.sendEnvelope(conn, workspaceID, participantID, TypeError, eecperr.ToWire(cause)); err != nil {
		s.log.Warn("failed to send error envelope", logger.Error(err))
	}
}

func (s *Server) trackConnection(workspaceID, participantID string, conn *websocket.Conn) {
	s.mu.Lock()
	byParticipant, ok := s.conns[workspaceID]
	if !ok {
		byParticipant = make(map[string]*websocket.Conn)
		s.conns[workspaceID] = byParticipant
	}
	byParticipant[participantID] = conn
	s.mu.Unlock()

	s.departedMu.Lock()
	if notified, ok := s.departed[workspaceID]; ok {
		delete(notified, participantID)
	}
	s.departedMu.Unlock()
}

func (s *Server) untrackConnection(workspaceID, participantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if byParticipant, ok := s.conns[workspaceID]; ok {
		delete(byParticipant, participantID)
		if len(byParticipant) == 0 {
			delete(s.conns, workspaceID)
		}
	}
}

// broadcastOperation relays a successfully routed operation to every other
// connected participant in the workspace.
func (s *Server) broadcastOperation(workspaceID string, op workspace.EncryptedOperation, fromParticipantID string) {
	s.forEachConnExcept(workspaceID, fromParticipantID, func(participantID string, conn *websocket.Conn) {
		if err := s.sendEnvelope(conn, workspaceID, participantID, TypeOperation, OperationPayload{Operation: op}); err != nil {
			s.log.Warn("failed to broadcast operation", logger.String("workspace", workspaceID), logger.Error(err))
		}
	})
}

func (s *Server) broadcastParticipantEvent(workspaceID string, typ MessageType, info workspace.ParticipantInfo) {
	payload := ParticipantEventPayload{ID: info.ID}
	if typ == TypeParticipantJoined {
		infoCopy := info
		payload.Participant = &infoCopy
	}
	s.forEachConnExcept(workspaceID, info.ID, func(participantID string, conn *websocket.Conn) {
		if err := s.sendEnvelope(conn, workspaceID, participantID, typ, payload); err != nil {
			s.log.Warn("failed to broadcast participant event", logger.String("workspace", workspaceID), logger.Error(err))
		}
	})
}

func (s *Server) forEachConnExcept(workspaceID, exceptParticipantID string, fn func(participantID string, conn *websocket.Conn)) {
	s.mu.RLock()
	byParticipant := s.conns[workspaceID]
	conns := make(map[string]*websocket.Conn, len(byParticipant))
	for id, c := range byParticipant {
		conns[id] = c
	}
	s.mu.RUnlock()

	for participantID, conn := range conns {
		if participantID == exceptParticipantID {
			continue
		}
		fn(participantID, conn)
	}
}

// broadcastLoop polls every tracked workspace for rotation, expiry and
// departure transitions and pushes the corresponding server-originated
// envelope to connected participants. It mirrors workspace.Manager's own
// ticker-driven scan, but at the transport layer, since the workspace
// package itself has no notion of connections to push to.
func (s *Server) broadcastLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(broadcastPollInterval)
	defer ticker.Stop()

	last := make(map[string]workspace.WorkspaceMetadata)

	for {
		select {
		case <-ticker.C:
			s.scanForBroadcasts(last)
		case <-s.stop:
			return
		}
	}
}

func (s *Server) scanForBroadcasts(last map[string]workspace.WorkspaceMetadata) {
	for _, meta := range s.manager.List() {
		prev, known := last[meta.Config.ID]
		last[meta.Config.ID] = meta
		if !known {
			continue
		}

		if meta.CurrentTemporalKeyID != prev.CurrentTemporalKeyID && meta.CurrentTemporalKeyID != "" {
			s.broadcastKeyRotated(meta)
		}
		if meta.State == workspace.StateExpired && prev.State != workspace.StateExpired {
			s.broadcastWorkspaceExpired(meta.Config.ID)
		}
		s.broadcastDepartures(meta)
	}
}

func (s *Server) broadcastKeyRotated(meta workspace.WorkspaceMetadata) {
	payload := KeyRotatedPayload{
		NewKeyID:               meta.CurrentTemporalKeyID,
		RotatedAtMS:            time.Now().UnixMilli(),
		PreviousKeyExpiresAtMS: meta.PreviousKeyExpiresAtMS,
	}
	s.forEachConnExcept(meta.Config.ID, "", func(participantID string, conn *websocket.Conn) {
		if err := s.sendEnvelope(conn, meta.Config.ID, participantID, TypeKeyRotated, payload); err != nil {
			s.log.Warn("failed to broadcast key rotation", logger.String("workspace", meta.Config.ID), logger.Error(err))
		}
	})
}

func (s *Server) broadcastWorkspaceExpired(workspaceID string) {
	ws, ok := s.manager.Get(workspaceID)
	if !ok {
		return
	}
	payload := WorkspaceExpiredPayload{Commitments: ws.Commitments()}
	s.forEachConnExcept(workspaceID, "", func(participantID string, conn *websocket.Conn) {
		if err := s.sendEnvelope(conn, workspaceID, participantID, TypeWorkspaceExpired, payload); err != nil {
			s.log.Warn("failed to broadcast workspace expiry", logger.String("workspace", workspaceID), logger.Error(err))
		}
	})
}

func (s *Server) broadcastDepartures(meta workspace.WorkspaceMetadata) {
	now := s.now()
	for id, p := range meta.Participants {
		if s.isConnectionLive(meta.Config.ID, id) || now-p.LastSeenAtMS <= workspace.DepartureTimeout {
			continue
		}
		if s.markDepartedNotified(meta.Config.ID, id) {
			s.broadcastParticipantEvent(meta.Config.ID, TypeParticipantLeft, p)
		}
	}
}

// markDepartedNotified records that participantID's departure has been
// broadcast, returning true the first time it is called for a given
// (workspaceID, participantID) pair so the event fires exactly once.
func (s *Server) markDepartedNotified(workspaceID, participantID string) bool {
	s.departedMu.Lock()
	defer s.departedMu.Unlock()
	notified, ok := s.departed[workspaceID]
	if !ok {
		notified = make(map[string]bool)
		s.departed[workspaceID] = notified
	}
	if notified[participantID] {
		return false
	}
	notified[participantID] = true
	return true
}

func (s *Server) isConnectionLive(workspaceID, participantID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byParticipant, ok := s.conns[workspaceID]
	if !ok {
		return false
	}
	_, ok = byParticipant[participantID]
	return ok
}
