package crdt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTwoPartyEdit(t *testing.T) {
	// S1: A inserts "Hello" at 0; B inserts " World" at 5.
	a := NewDocument()
	b := NewDocument()

	opHello := Operation{ID: "a1", ParticipantID: "A", TimestampMS: 100, Type: OpInsert, Position: 0, Content: "Hello"}
	require.NoError(t, a.Apply(opHello))

	opWorld := Operation{ID: "b1", ParticipantID: "B", TimestampMS: 200, Type: OpInsert, Position: 5, Content: " World"}
	require.NoError(t, b.Apply(opWorld))

	// Exchange.
	a.Merge([]Operation{opWorld})
	b.Merge([]Operation{opHello})

	require.Equal(t, "Hello World", a.GetText())
	require.Equal(t, "Hello World", b.GetText())
}

func TestConcurrentSamePositionInsert(t *testing.T) {
	// S2: A inserts "X" at 0, B inserts "Y" at 0, concurrently.
	a := NewDocument()
	b := NewDocument()

	opX := Operation{ID: "opX", ParticipantID: "A", TimestampMS: 100, Type: OpInsert, Position: 0, Content: "X"}
	opY := Operation{ID: "opY", ParticipantID: "B", TimestampMS: 100, Type: OpInsert, Position: 0, Content: "Y"}

	require.NoError(t, a.Apply(opX))
	require.NoError(t, b.Apply(opY))

	a.Merge([]Operation{opY})
	b.Merge([]Operation{opX})

	textA := a.GetText()
	textB := b.GetText()

	require.Equal(t, textA, textB)
	require.Len(t, textA, 2)
	require.Contains(t, textA, "X")
	require.Contains(t, textA, "Y")
}

func TestPermutationInvariance(t *testing.T) {
	ops := []Operation{
		{ID: "1", TimestampMS: 10, Type: OpInsert, Position: 0, Content: "abc"},
		{ID: "2", TimestampMS: 20, Type: OpInsert, Position: 1, Content: "X"},
		{ID: "3", TimestampMS: 30, Type: OpDelete, Position: 0, Length: 1},
	}

	forward := NewDocument()
	forward.Merge(ops)

	reversed := NewDocument()
	reversed.Merge([]Operation{ops[2], ops[1], ops[0]})

	require.Equal(t, forward.GetText(), reversed.GetText())
}

func TestIdempotentApply(t *testing.T) {
	d := NewDocument()
	op := Operation{ID: "1", TimestampMS: 10, Type: OpInsert, Position: 0, Content: "hi"}

	require.NoError(t, d.Apply(op))
	require.NoError(t, d.Apply(op))

	require.Equal(t, "hi", d.GetText())
	require.Equal(t, 1, d.History().Len())
}

func TestDeleteClampedToAvailableLength(t *testing.T) {
	d := NewDocument()
	require.NoError(t, d.Apply(Operation{ID: "1", TimestampMS: 10, Type: OpInsert, Position: 0, Content: "hi"}))
	require.NoError(t, d.Apply(Operation{ID: "2", TimestampMS: 20, Type: OpDelete, Position: 0, Length: 100}))

	require.Equal(t, "", d.GetText())
}

func TestDeleteFromEmptyIsNoOp(t *testing.T) {
	d := NewDocument()
	require.NoError(t, d.Apply(Operation{ID: "1", TimestampMS: 10, Type: OpDelete, Position: 0, Length: 5}))
	require.Equal(t, "", d.GetText())
}

func TestValidateRejectsBadShapes(t *testing.T) {
	require.Error(t, Operation{Type: OpInsert, Content: ""}.Validate())
	require.Error(t, Operation{Type: OpDelete, Length: -1}.Validate())
	require.Error(t, Operation{Type: "move"}.Validate())
	require.NoError(t, Operation{Type: OpInsert, Content: "x"}.Validate())
	require.NoError(t, Operation{Type: OpDelete, Length: 0}.Validate())
}
