package service

import (
	"sync"
	"time"

	"github.com/vanessaachristy/mymedtrust-be/internal/domain"
)

// sagaStep names the two legs of every cross-store write, in execution
// order: store first, ledger second. The ledger leg is the slow,
// irreversible one; a failed ledger leg after a successful store leg is
// compensated by undoing the store leg, never the other way around.
type sagaStep string

const (
	stepStore      sagaStep = "store"
	stepLedger     sagaStep = "ledger"
	stepCompensate sagaStep = "compensate"
)

type sagaState string

const (
	sagaInFlight    sagaState = "in_flight"
	sagaCommitted   sagaState = "committed"
	sagaCompensated sagaState = "compensated"
	sagaStranded    sagaState = "stranded"
)

// sagaAttempt is one cross-store write attempt. The log keeps enough to
// know, after a crash or a partial failure, which side holds state that
// the other side does not acknowledge.
type sagaAttempt struct {
	RecordID  string
	Operation Operation
	Actor     domain.Address
	Patient   domain.Address
	StartedAt time.Time
	Steps     []sagaStep
	State     sagaState
	Detail    string
}

// sagaLog is the in-memory attempt log. Stranded attempts (one side
// applied, compensation failed) stay in the log until reconciliation
// clears them; committed and compensated attempts are dropped.
type sagaLog struct {
	mu       sync.Mutex
	inFlight map[string]*sagaAttempt
	stranded map[string]*sagaAttempt
}

func newSagaLog() *sagaLog {
	return &sagaLog{
		inFlight: make(map[string]*sagaAttempt),
		stranded: make(map[string]*sagaAttempt),
	}
}

func (l *sagaLog) begin(id string, op Operation, actor, patient domain.Address) *sagaAttempt {
	a := &sagaAttempt{
		RecordID:  id,
		Operation: op,
		Actor:     actor,
		Patient:   patient,
		StartedAt: time.Now(),
		State:     sagaInFlight,
	}
	l.mu.Lock()
	l.inFlight[id] = a
	l.mu.Unlock()
	return a
}

func (l *sagaLog) step(a *sagaAttempt, s sagaStep) {
	l.mu.Lock()
	a.Steps = append(a.Steps, s)
	l.mu.Unlock()
}

func (l *sagaLog) finish(a *sagaAttempt, state sagaState, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a.State = state
	a.Detail = detail
	delete(l.inFlight, a.RecordID)
	if state == sagaStranded {
		l.stranded[a.RecordID] = a
	}
}

// Stranded returns the attempts needing operator reconciliation.
func (l *sagaLog) Stranded() []sagaAttempt {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]sagaAttempt, 0, len(l.stranded))
	for _, a := range l.stranded {
		out = append(out, *a)
	}
	return out
}

// clear drops a stranded attempt once reconciliation has restored
// consistency for its record.
func (l *sagaLog) clear(id string) {
	l.mu.Lock()
	delete(l.stranded, id)
	l.mu.Unlock()
}
