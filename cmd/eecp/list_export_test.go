package main

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/eecp-project/eecp/auth"
	"github.com/eecp-project/eecp/crypto/temporal"
	"github.com/eecp-project/eecp/transport/ws"
	"github.com/eecp-project/eecp/workspace"
)

func newTestAPIServer(t *testing.T) (*httptest.Server, func()) {
	t.Helper()
	manager := workspace.NewManager(workspace.DefaultRateLimitConfig(), nil)
	authMgr := auth.NewManager(auth.DefaultChallengeTTL)
	srv := ws.NewServer(manager, authMgr, nil)

	now := time.Now().UnixMilli()
	secret := make([]byte, temporal.SecretLength)
	_, err := manager.CreateWorkspace(workspace.WorkspaceConfig{
		ID:              "cli-test-workspace",
		CreatedAtMS:     now,
		ExpiresAtMS:     now + 30*60_000,
		TimeWindow:      temporal.TimeWindow{StartTimeMS: now, EndTimeMS: now + 480*60_000, RotationInterval: 5, GracePeriodMS: 60_000},
		MaxParticipants: 8,
		HardCapMinutes:  480,
	}, secret)
	require.NoError(t, err)

	httpSrv := httptest.NewServer(srv.Routes())
	cleanup := func() {
		httpSrv.Close()
		_ = srv.Close()
		_ = manager.Close()
	}
	return httpSrv, cleanup
}

func TestRunListPrintsKnownWorkspace(t *testing.T) {
	httpSrv, cleanup := newTestAPIServer(t)
	defer cleanup()

	prevServerURL := serverURL
	serverURL = strings.Replace(httpSrv.URL, "http://", "ws://", 1) + "/ws"
	defer func() { serverURL = prevServerURL }()

	require.NoError(t, runList(&cobra.Command{}, nil))
}

func TestRunExportWritesFile(t *testing.T) {
	httpSrv, cleanup := newTestAPIServer(t)
	defer cleanup()

	prevServerURL := serverURL
	serverURL = strings.Replace(httpSrv.URL, "http://", "ws://", 1) + "/ws"
	defer func() { serverURL = prevServerURL }()

	outPath := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, runExport(&cobra.Command{}, []string{"cli-test-workspace", outPath}))

	body, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Contains(t, string(body), "cli-test-workspace")
}

func TestRunExportUnknownWorkspaceFails(t *testing.T) {
	httpSrv, cleanup := newTestAPIServer(t)
	defer cleanup()

	prevServerURL := serverURL
	serverURL = strings.Replace(httpSrv.URL, "http://", "ws://", 1) + "/ws"
	defer func() { serverURL = prevServerURL }()

	err := runExport(&cobra.Command{}, []string{"does-not-exist", filepath.Join(t.TempDir(), "export.json")})
	require.Error(t, err)
}
