package workspace

import (
	"encoding/binary"

	"github.com/eecp-project/eecp/crdt"
	"github.com/eecp-project/eecp/crypto/keys"
	"github.com/eecp-project/eecp/crypto/timelock"
)

// EncryptedOperation is the server-visible wire form of a CRDT operation:
// everything except encryptedContent's plaintext is visible for routing,
// but the server never attempts to decrypt it.
type EncryptedOperation struct {
	ID               string
	WorkspaceID      string
	ParticipantID    string
	TimestampMS      int64
	Position         int
	OperationType    crdt.OpType
	EncryptedContent timelock.Payload
	Signature        []byte
}

// signingBytes builds the deterministic byte string a participant signs and
// the server verifies. It covers every field the server routes on, so a
// tampered envelope (wrong workspace, re-ordered timestamp, swapped type)
// fails signature verification rather than merely failing AEAD.
func (op EncryptedOperation) signingBytes() []byte {
	var buf []byte
	buf = append(buf, op.ID...)
	buf = append(buf, 0)
	buf = append(buf, op.WorkspaceID...)
	buf = append(buf, 0)
	buf = append(buf, op.ParticipantID...)
	buf = append(buf, 0)

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(op.TimestampMS))
	buf = append(buf, ts[:]...)

	var pos [8]byte
	binary.BigEndian.PutUint64(pos[:], uint64(int64(op.Position)))
	buf = append(buf, pos[:]...)

	buf = append(buf, op.OperationType...)
	buf = append(buf, 0)
	buf = append(buf, op.EncryptedContent.KeyID...)
	buf = append(buf, 0)
	buf = append(buf, op.EncryptedContent.Nonce...)
	buf = append(buf, op.EncryptedContent.Ciphertext...)
	return buf
}

// Sign produces the signature SubmitOperation verifies, over the same
// deterministic byte string signingBytes builds server-side. Callers
// assemble every other field of op first, then call Sign last.
func (op EncryptedOperation) Sign(kp *keys.KeyPair) ([]byte, error) {
	return kp.Sign(op.signingBytes())
}
