// Package transfer implements the priority-queued, bounded-concurrency
// scheduler described in §4.2: TransferRecord/Batch value types, a
// priority queue + worker pool, and the Coordinator that owns them.
package transfer

import (
	"time"

	"github.com/google/uuid"

	"github.com/geekfreaks/ingestengine/common"
)

// TransferRecord is the value type from §3. It is exclusively owned
// by the Coordinator; a worker holds only a borrowed reference for the
// duration of execution and must go back through the Coordinator to
// change status.
type TransferRecord struct {
	ID               uuid.UUID
	SourcePath       string
	TargetPath       string
	TotalBytes       int64
	TransferredBytes int64
	Priority         common.Priority
	Status           common.TransferStatus
	StartedAt        time.Time
	EndedAt          time.Time
	ErrorKind        common.ErrorKind
	ErrorMessage     string
	BatchID          *uuid.UUID
	RetriesRemaining int

	enqueuedAt time.Time
	fingerprint string
}

// snapshot returns a value copy safe to hand to callers outside the
// coordinator's lock.
func (r *TransferRecord) snapshot() TransferRecord {
	cp := *r
	return cp
}

// Batch is the grouping construct from §3: a named set of transfers
// whose aggregate status is derived from its members.
type Batch struct {
	ID          uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
	MemberIDs   map[uuid.UUID]struct{}
	Status      common.TransferStatus
}
