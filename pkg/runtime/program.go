package runtime

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/google/uuid"
)

// Program processes instructions addressed to its program id
type Program interface {
	// ProgramId is the address instructions use to reach the program
	ProgramId() ed25519.PublicKey

	// Process executes a single instruction. Any returned error aborts the
	// entire transaction.
	Process(inv *Invocation) error
}

// Event is a structured notification emitted by a program during execution.
// Events are delivered only after the transaction that emitted them commits.
type Event interface {
	EventName() string
}

// Result describes a committed transaction
type Result struct {
	// Id is a unique identifier assigned to the execution
	Id uuid.UUID

	// Signature is the fee payer's signature, which identifies the transaction
	Signature []byte

	FeePayer ed25519.PublicKey

	Slot       uint64
	ExecutedAt time.Time

	// Attempts is the number of executions needed to commit
	Attempts uint

	Events []Event
}

// EventHandler observes committed transactions. Handlers run synchronously
// after commit and can't fail the transaction.
type EventHandler func(ctx context.Context, result *Result)
