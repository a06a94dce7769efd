package ws

import (
	"encoding/json"
	"net/http"

	"github.com/eecp-project/eecp/crypto/commitment"
	"github.com/eecp-project/eecp/eecperr"
	"github.com/eecp-project/eecp/workspace"
)

// workspaceSummary is the public, secret-free view of a workspace used by
// the list/export HTTP endpoints: everything in WorkspaceMetadata except
// any field that could leak toward key material (there are none today,
// since WorkspaceMetadata itself never carries the secret, but this type
// keeps the wire shape independent of WorkspaceMetadata's internal layout).
type workspaceSummary struct {
	ID                   string                               `json:"id"`
	State                workspace.State                      `json:"state"`
	CreatedAtMS          int64                                `json:"createdAt"`
	ExpiresAtMS          int64                                `json:"expiresAt"`
	ParticipantCount     int                                  `json:"participantCount"`
	CurrentTemporalKeyID string                               `json:"currentTemporalKeyId"`
	Participants         map[string]workspace.ParticipantInfo `json:"participants"`
}

func toSummary(meta workspace.WorkspaceMetadata) workspaceSummary {
	return workspaceSummary{
		ID:                   meta.Config.ID,
		State:                meta.State,
		CreatedAtMS:          meta.Config.CreatedAtMS,
		ExpiresAtMS:          meta.Config.ExpiresAtMS,
		ParticipantCount:     len(meta.Participants),
		CurrentTemporalKeyID: meta.CurrentTemporalKeyID,
		Participants:         meta.Participants,
	}
}

// ListWorkspacesHandler serves the `eecp list` command: every workspace
// the manager currently knows about, secret-free.
func (s *Server) ListWorkspacesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metas := s.manager.List()
		out := make([]workspaceSummary, 0, len(metas))
		for _, meta := range metas {
			out = append(out, toSummary(meta))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// exportPayload is the `eecp export` document: a workspace's metadata and
// commitment log. Neither field can ever carry plaintext or key material,
// so this is safe to write to a file regardless of who the caller is.
type exportPayload struct {
	Workspace   workspaceSummary         `json:"workspace"`
	Commitments []commitment.Commitment  `json:"commitments"`
}

// ExportWorkspaceHandler serves the `eecp export <workspaceId>` command.
// The workspace id is the last path segment, e.g. GET /workspaces/{id}/export.
func (s *Server) ExportWorkspaceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := pathSuffix(r.URL.Path, "/export")
		if id == "" {
			writeError(w, http.StatusBadRequest, eecperr.ErrInvalidOperation)
			return
		}

		ws, ok := s.manager.Get(id)
		if !ok {
			writeError(w, http.StatusNotFound, eecperr.ErrNotFound)
			return
		}

		payload := exportPayload{
			Workspace:   toSummary(ws.Snapshot()),
			Commitments: ws.Commitments(),
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

func pathSuffix(path, suffix string) string {
	const prefix = "/workspaces/"
	if len(path) <= len(prefix)+len(suffix) {
		return ""
	}
	if path[:len(prefix)] != prefix || path[len(path)-len(suffix):] != suffix {
		return ""
	}
	return path[len(prefix) : len(path)-len(suffix)]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, eecperr.ToWire(err))
}
