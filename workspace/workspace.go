package workspace

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/eecp-project/eecp/crypto/commitment"
	"github.com/eecp-project/eecp/crypto/keys"
	"github.com/eecp-project/eecp/crypto/recipients"
	"github.com/eecp-project/eecp/crypto/temporal"
	"github.com/eecp-project/eecp/crypto/timelock"
	"github.com/eecp-project/eecp/eecperr"
	"github.com/eecp-project/eecp/internal/logger"
	"github.com/eecp-project/eecp/internal/metrics"
	"golang.org/x/time/rate"
)

// Workspace is the single mutex-guarded owner of one collaboration
// session's mutable state: lifecycle, participant roster, rotation
// schedule, rate limiters and the ciphertext operation log. All mutation
// goes through its exported methods; external code only ever observes a
// WorkspaceMetadata snapshot.
//
// The workspace secret is held in memory only (never persisted, never
// logged) so this type can perform the two operations its contract
// requires of it: wrapping the secret to new participants (C3) at
// admission, and hashing destroyed keys into deletion commitments (C4) at
// rotation and expiry. It is zeroized the moment the workspace reaches
// Expired.
type Workspace struct {
	mu sync.Mutex

	config WorkspaceConfig
	state  State
	secret []byte

	participants map[string]ParticipantInfo
	limiters     map[string]*rate.Limiter

	currentKeyID           string
	previousKeyID          string
	previousKeyExpiresAtMS int64
	nextRotationAtMS       int64

	opLog   map[string]EncryptedOperation
	opOrder []string

	commitments *commitment.Log
	rateLimit   RateLimitConfig
	log         logger.Logger

	commitPersist CommitmentPersister
	opPersist     OperationPersister
}

// New creates a workspace in the Created state. secret must be exactly
// temporal.SecretLength bytes; ownership of the slice passes to the
// workspace, which zeroizes it on expiry.
func New(cfg WorkspaceConfig, secret []byte, rateLimit RateLimitConfig) (*Workspace, error) {
	if len(secret) != temporal.SecretLength {
		return nil, fmt.Errorf("workspace: secret must be %d bytes", temporal.SecretLength)
	}
	if cfg.MaxParticipants <= 0 {
		return nil, fmt.Errorf("workspace: maxParticipants must be > 0")
	}
	if rateLimit.RatePerSecond <= 0 || rateLimit.Burst <= 0 {
		rateLimit = DefaultRateLimitConfig()
	}

	return &Workspace{
		config:       cfg,
		state:        StateCreated,
		secret:       secret,
		participants: make(map[string]ParticipantInfo),
		limiters:     make(map[string]*rate.Limiter),
		opLog:        make(map[string]EncryptedOperation),
		commitments:  commitment.NewLog(),
		rateLimit:    rateLimit,
		log:          logger.GetDefaultLogger(),
	}, nil
}

// ID returns the workspace's identifier.
func (w *Workspace) ID() string { return w.config.ID }

// Admit authenticates a join: the caller is expected to have already
// verified the participant's signature over the join challenge (C5) and
// minted participantID. Admit enforces the remaining admission contract —
// capacity and lifecycle state — transitions Created -> Active on the
// first admission, and wraps the workspace secret to the joiner's public
// key (C3).
func (w *Workspace) Admit(participantID string, publicKey []byte, nowMS int64) (recipients.WrappedEntry, WorkspaceMetadata, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case StateCreated:
		// first participant becomes the creator and activates the workspace
	case StateActive:
		if len(w.participants) >= w.config.MaxParticipants {
			metrics.ParticipantsRejected.WithLabelValues("full").Inc()
			return recipients.WrappedEntry{}, WorkspaceMetadata{}, fmt.Errorf("workspace: at capacity: %w", eecperr.ErrCapacityExceeded)
		}
	default:
		metrics.ParticipantsRejected.WithLabelValues("invalid_state").Inc()
		return recipients.WrappedEntry{}, WorkspaceMetadata{}, fmt.Errorf("workspace: not accepting joins in state %s: %w", w.state, eecperr.ErrExpired)
	}
	if _, exists := w.participants[participantID]; exists {
		return recipients.WrappedEntry{}, WorkspaceMetadata{}, fmt.Errorf("workspace: participant already admitted: %w", eecperr.ErrInvalidOperation)
	}

	msg, err := recipients.EncryptForRecipients(w.secret, map[string][]byte{participantID: publicKey})
	if err != nil {
		return recipients.WrappedEntry{}, WorkspaceMetadata{}, fmt.Errorf("workspace: wrap secret: %w", eecperr.ErrInternal)
	}

	role := RoleEditor
	if w.state == StateCreated {
		role = RoleCreator
		w.state = StateActive
		w.currentKeyID = temporal.GetCurrentKeyID(w.config.CreatedAtMS, nowMS, w.config.TimeWindow.RotationInterval)
		w.nextRotationAtMS = nextRotationBoundary(w.config.CreatedAtMS, nowMS, w.config.TimeWindow.RotationInterval)
		metrics.WorkspacesActive.Inc()
	}

	w.participants[participantID] = ParticipantInfo{
		ID:           participantID,
		PublicKey:    publicKey,
		JoinedAtMS:   nowMS,
		Role:         role,
		LastSeenAtMS: nowMS,
	}
	w.limiters[participantID] = rate.NewLimiter(rate.Limit(w.rateLimit.RatePerSecond), w.rateLimit.Burst)

	w.log.Info("participant admitted", logger.String("workspace", w.config.ID), logger.String("participant", participantID), logger.String("role", string(role)))
	metrics.ParticipantsAdmitted.WithLabelValues(string(role)).Inc()
	metrics.CryptoOperations.WithLabelValues("wrap", "secp256k1-ecies").Inc()

	return msg.Entries[participantID], w.snapshotLocked(), nil
}

// SubmitOperation validates and routes one inbound encrypted operation.
// Signature failure returns ErrUnauthorized (caller should drop the
// connection); a rate-limit trip returns ErrRateLimited (caller must NOT
// drop the connection); a duplicate operation id is accepted idempotently.
// The server never inspects op.EncryptedContent's plaintext.
func (w *Workspace) SubmitOperation(op EncryptedOperation, nowMS int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, dup := w.opLog[op.ID]; dup {
		return nil
	}

	switch w.state {
	case StateExpiring, StateExpired:
		return fmt.Errorf("workspace: not accepting operations in state %s: %w", w.state, eecperr.ErrExpired)
	}

	participant, ok := w.participants[op.ParticipantID]
	if !ok {
		metrics.OperationsSubmitted.WithLabelValues(string(op.OperationType), "unauthorized").Inc()
		return fmt.Errorf("workspace: unknown participant %s: %w", op.ParticipantID, eecperr.ErrUnauthorized)
	}

	pub, err := keys.ParsePublicKey(participant.PublicKey)
	if err != nil {
		metrics.OperationsSubmitted.WithLabelValues(string(op.OperationType), "unauthorized").Inc()
		return fmt.Errorf("workspace: malformed registered public key: %w", eecperr.ErrUnauthorized)
	}
	if err := keys.VerifyWithPublicKey(pub.ToECDSA(), op.signingBytes(), op.Signature); err != nil {
		metrics.OperationsSubmitted.WithLabelValues(string(op.OperationType), "unauthorized").Inc()
		metrics.CryptoErrors.WithLabelValues("verify").Inc()
		return fmt.Errorf("workspace: signature verification failed: %w", eecperr.ErrUnauthorized)
	}

	lim := w.limiters[op.ParticipantID]
	if lim != nil && !lim.Allow() {
		metrics.OperationsSubmitted.WithLabelValues(string(op.OperationType), "rate_limited").Inc()
		metrics.OperationRateLimitRejections.Inc()
		return fmt.Errorf("workspace: rate limit exceeded for %s: %w", op.ParticipantID, eecperr.ErrRateLimited)
	}

	w.opLog[op.ID] = op
	w.opOrder = append(w.opOrder, op.ID)

	participant.LastSeenAtMS = nowMS
	w.participants[op.ParticipantID] = participant

	metrics.OperationsSubmitted.WithLabelValues(string(op.OperationType), "accepted").Inc()
	metrics.OperationEncryptedSize.Observe(float64(len(op.EncryptedContent.Ciphertext)))
	metrics.CryptoOperations.WithLabelValues("verify", "secp256k1").Inc()

	if w.opPersist != nil {
		if err := w.opPersist(context.Background(), w.config.ID, op); err != nil {
			w.log.Error("failed to persist operation", logger.String("workspace", w.config.ID), logger.String("op", op.ID), logger.Error(err))
		}
	}

	return nil
}

// OperationsSince returns every routed operation with TimestampMS > tsMS,
// ordered by (TimestampMS, ID), so a late joiner or reconnecting participant can
// catch up and replay them through its local CRDT (C6).
func (w *Workspace) OperationsSince(tsMS int64) []EncryptedOperation {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]EncryptedOperation, 0, len(w.opOrder))
	for _, id := range w.opOrder {
		op := w.opLog[id]
		if op.TimestampMS > tsMS {
			out = append(out, op)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TimestampMS != out[j].TimestampMS {
			return out[i].TimestampMS < out[j].TimestampMS
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Touch records that participantID's connection is alive at nowMS.
func (w *Workspace) Touch(participantID string, nowMS int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.participants[participantID]
	if !ok {
		return
	}
	p.LastSeenAtMS = nowMS
	w.participants[participantID] = p
}

// IsDeparted reports whether participantID's connection has been quiet for
// longer than DepartureTimeout. The participant's record is not removed;
// commitments bind to historical membership.
func (w *Workspace) IsDeparted(participantID string, nowMS int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.participants[participantID]
	if !ok {
		return true
	}
	return nowMS-p.LastSeenAtMS > DepartureTimeout
}

// RequestExtension accepts or rejects a request to push expiresAt out to
// newExpiresAtMS. Extension requires AllowExtension, at least one admitted
// participant, and newExpiresAtMS within the configured hard cap.
func (w *Workspace) RequestExtension(newExpiresAtMS int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.config.AllowExtension {
		return fmt.Errorf("workspace: extension not allowed: %w", eecperr.ErrInvalidOperation)
	}
	if len(w.participants) < 1 {
		return fmt.Errorf("workspace: no participants: %w", eecperr.ErrInvalidOperation)
	}
	hardCapMS := w.config.CreatedAtMS + w.config.HardCapMinutes*60_000
	if newExpiresAtMS > hardCapMS {
		return fmt.Errorf("workspace: extension exceeds hard cap: %w", eecperr.ErrInvalidOperation)
	}
	if newExpiresAtMS <= w.config.ExpiresAtMS {
		return fmt.Errorf("workspace: extension must move expiry forward: %w", eecperr.ErrInvalidOperation)
	}

	w.config.ExpiresAtMS = newExpiresAtMS
	return nil
}

// MaybeRotate advances the current key id if the rotation boundary for
// nowMS has passed, and destroys the previous key (publishing its deletion
// commitment) once its grace period has elapsed. It is idempotent and safe
// to call from a ticker that fires late: it always derives the correct
// key-N for nowMS rather than incrementing by one.
func (w *Workspace) MaybeRotate(nowMS int64) (rotated bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateActive {
		return false
	}

	newKeyID := temporal.GetCurrentKeyID(w.config.CreatedAtMS, nowMS, w.config.TimeWindow.RotationInterval)
	if newKeyID != w.currentKeyID {
		w.previousKeyID = w.currentKeyID
		w.previousKeyExpiresAtMS = nowMS + w.config.TimeWindow.GracePeriodMS
		w.currentKeyID = newKeyID
		w.nextRotationAtMS = nextRotationBoundary(w.config.CreatedAtMS, nowMS, w.config.TimeWindow.RotationInterval)
		rotated = true
		w.log.Info("temporal key rotated", logger.String("workspace", w.config.ID), logger.String("keyId", newKeyID))
		metrics.KeyRotations.Inc()
	}

	if w.previousKeyID != "" && nowMS >= w.previousKeyExpiresAtMS {
		w.destroyKeyLocked(w.previousKeyID, nowMS)
		w.previousKeyID = ""
		w.previousKeyExpiresAtMS = 0
	}

	return rotated
}

// MaybeExpire transitions Active -> Expiring once nowMS reaches the
// configured expiresAt.
func (w *Workspace) MaybeExpire(nowMS int64) (transitioned bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateActive && nowMS >= w.config.ExpiresAtMS {
		w.state = StateExpiring
		w.log.Info("workspace expiring", logger.String("workspace", w.config.ID))
		metrics.WorkspacesActive.Dec()
		return true
	}
	return false
}

// MaybeFinalize transitions Expiring -> Expired once the final grace
// period has elapsed, destroying every remaining temporal key (publishing
// a commitment for each) and discarding the ciphertext operation history.
func (w *Workspace) MaybeFinalize(nowMS int64) (transitioned bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateExpiring {
		return false
	}
	if nowMS < w.config.ExpiresAtMS+w.config.TimeWindow.GracePeriodMS {
		return false
	}

	if w.previousKeyID != "" {
		w.destroyKeyLocked(w.previousKeyID, nowMS)
		w.previousKeyID = ""
	}
	if w.currentKeyID != "" {
		w.destroyKeyLocked(w.currentKeyID, nowMS)
		w.currentKeyID = ""
	}

	for i := range w.secret {
		w.secret[i] = 0
	}
	w.opLog = make(map[string]EncryptedOperation)
	w.opOrder = nil

	w.state = StateExpired
	w.log.Info("workspace expired", logger.String("workspace", w.config.ID), logger.Int("commitments", len(w.commitments.All())))
	metrics.WorkspacesExpired.Inc()
	metrics.WorkspaceLifetime.Observe(float64(nowMS-w.config.CreatedAtMS) / 1000)
	return true
}

// destroyKeyLocked derives keyID's key material, publishes its deletion
// commitment, and zeroizes the derived buffer. Caller must hold w.mu.
func (w *Workspace) destroyKeyLocked(keyID string, nowMS int64) {
	key, err := temporal.DeriveKey(w.secret, w.config.TimeWindow, keyID)
	if err != nil {
		w.log.Error("failed to derive key for destruction", logger.String("workspace", w.config.ID), logger.String("keyId", keyID), logger.Error(err))
		return
	}
	c := commitment.Create(key, nowMS)
	w.commitments.Publish(c)
	timelock.DestroyKey(&key)
	metrics.CommitmentsPublished.Inc()

	if w.commitPersist != nil {
		if err := w.commitPersist(context.Background(), w.config.ID, c); err != nil {
			w.log.Error("failed to persist commitment", logger.String("workspace", w.config.ID), logger.String("keyId", keyID), logger.Error(err))
		}
	}
}

// Commitments returns every commitment published so far for this
// workspace, in publish order. Commitments outlive the destroyed keys they
// describe by design.
func (w *Workspace) Commitments() []commitment.Commitment {
	return w.commitments.All()
}

// Snapshot returns a read-only copy of the workspace's current metadata.
func (w *Workspace) Snapshot() WorkspaceMetadata {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Workspace) snapshotLocked() WorkspaceMetadata {
	participants := make(map[string]ParticipantInfo, len(w.participants))
	for id, p := range w.participants {
		participants[id] = p
	}
	return WorkspaceMetadata{
		Config:                 w.config,
		State:                  w.state,
		Participants:           participants,
		CurrentTemporalKeyID:   w.currentKeyID,
		PreviousTemporalKeyID:  w.previousKeyID,
		PreviousKeyExpiresAtMS: w.previousKeyExpiresAtMS,
		NextRotationAtMS:       w.nextRotationAtMS,
	}
}

func nextRotationBoundary(createdAtMS, nowMS, rotationIntervalMinutes int64) int64 {
	interval := rotationIntervalMinutes * 60_000
	if nowMS <= createdAtMS {
		return createdAtMS + interval
	}
	n := (nowMS - createdAtMS) / interval
	return createdAtMS + (n+1)*interval
}
