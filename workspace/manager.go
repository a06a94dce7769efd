package workspace

import (
	"fmt"
	"sync"
	"time"

	"github.com/eecp-project/eecp/internal/logger"
	"github.com/eecp-project/eecp/internal/metrics"
)

// RotationTickInterval is how often the manager scans every active
// workspace for a pending rotation or expiry transition.
const RotationTickInterval = 1 * time.Second

// CleanupTickInterval is how often the manager sweeps Expiring workspaces
// for finalization. This sweep is the sole authorized destroyer of a
// workspace's last remaining key material.
const CleanupTickInterval = 10 * time.Second

// Manager owns every live workspace on this server and drives their
// rotation scheduler and cleanup sweep from two background tickers,
// mirroring a single-process session manager's cleanup goroutine
// generalized across the fuller Created/Active/Expiring/Expired lifecycle.
type Manager struct {
	mu         sync.RWMutex
	workspaces map[string]*Workspace

	rotationTicker *time.Ticker
	cleanupTicker  *time.Ticker
	stop           chan struct{}
	wg             sync.WaitGroup

	rateLimit RateLimitConfig
	log       logger.Logger
	now       func() int64

	commitPersist CommitmentPersister
	opPersist     OperationPersister
}

// SetPersistence wires durable persistence hooks that every workspace
// created afterward will use; see Workspace.SetPersistence. Call before
// CreateWorkspace; it is not safe for concurrent use with CreateWorkspace.
func (m *Manager) SetPersistence(commitPersist CommitmentPersister, opPersist OperationPersister) {
	m.commitPersist = commitPersist
	m.opPersist = opPersist
}

// NewManager creates a manager and starts its background tickers. now
// supplies the current time in epoch milliseconds; pass a fixed function
// in tests for deterministic rotation/expiry behavior.
func NewManager(rateLimit RateLimitConfig, now func() int64) *Manager {
	if now == nil {
		now = func() int64 { return time.Now().UnixMilli() }
	}
	m := &Manager{
		workspaces:     make(map[string]*Workspace),
		rotationTicker: time.NewTicker(RotationTickInterval),
		cleanupTicker:  time.NewTicker(CleanupTickInterval),
		stop:           make(chan struct{}),
		rateLimit:      rateLimit,
		log:            logger.GetDefaultLogger(),
		now:            now,
	}
	m.wg.Add(1)
	go m.run()
	return m
}

// CreateWorkspace registers a new workspace in the Created state.
func (m *Manager) CreateWorkspace(cfg WorkspaceConfig, secret []byte) (*Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.workspaces[cfg.ID]; exists {
		return nil, fmt.Errorf("workspace: id %s already exists", cfg.ID)
	}

	ws, err := New(cfg, secret, m.rateLimit)
	if err != nil {
		return nil, err
	}
	if m.commitPersist != nil || m.opPersist != nil {
		ws.SetPersistence(m.commitPersist, m.opPersist)
	}
	m.workspaces[cfg.ID] = ws
	m.log.Info("workspace created", logger.String("workspace", cfg.ID))
	metrics.WorkspacesCreated.Inc()
	return ws, nil
}

// Get returns the workspace with the given id, if any.
func (m *Manager) Get(id string) (*Workspace, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ws, ok := m.workspaces[id]
	return ws, ok
}

// List returns a metadata snapshot of every known workspace, including
// Expired ones (commitments and membership history outlive the live
// session by design).
func (m *Manager) List() []WorkspaceMetadata {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]WorkspaceMetadata, 0, len(m.workspaces))
	for _, ws := range m.workspaces {
		out = append(out, ws.Snapshot())
	}
	return out
}

// Close stops the background tickers. Already-Expired workspaces are left
// in place; it does not retroactively destroy any key material.
func (m *Manager) Close() error {
	close(m.stop)
	m.wg.Wait()
	m.rotationTicker.Stop()
	m.cleanupTicker.Stop()
	return nil
}

func (m *Manager) run() {
	defer m.wg.Done()
	for {
		select {
		case <-m.rotationTicker.C:
			m.scanRotationAndExpiry()
		case <-m.cleanupTicker.C:
			m.scanCleanup()
		case <-m.stop:
			return
		}
	}
}

func (m *Manager) scanRotationAndExpiry() {
	now := m.now()
	for _, ws := range m.snapshotWorkspaces() {
		ws.MaybeRotate(now)
		if ws.MaybeExpire(now) {
			m.log.Info("workspace entered expiring state", logger.String("workspace", ws.ID()))
		}
	}
}

func (m *Manager) scanCleanup() {
	now := m.now()
	for _, ws := range m.snapshotWorkspaces() {
		if ws.MaybeFinalize(now) {
			m.log.Info("workspace finalized", logger.String("workspace", ws.ID()))
		}
	}
}

func (m *Manager) snapshotWorkspaces() []*Workspace {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Workspace, 0, len(m.workspaces))
	for _, ws := range m.workspaces {
		out = append(out, ws)
	}
	return out
}
