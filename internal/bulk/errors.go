package bulk

import "fmt"

// RunError aborts a bulk run. Every pairing with id up to LastCommittedID has
// a persisted score, so the run can resume with StartAfter = LastCommittedID.
type RunError struct {
	RunID           string
	LastCommittedID int64
	// FailedPairingID is zero when the failure is not tied to one pairing.
	FailedPairingID int64
	Err             error
}

func (e *RunError) Error() string {
	if e.FailedPairingID != 0 {
		return fmt.Sprintf("bulk run %s aborted at pairing %d (last committed %d): %v",
			e.RunID, e.FailedPairingID, e.LastCommittedID, e.Err)
	}
	return fmt.Sprintf("bulk run %s aborted (last committed %d): %v", e.RunID, e.LastCommittedID, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// PersistenceError is a failed bulk write of one chunk.
type PersistenceError struct {
	FirstID int64
	LastID  int64
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist scores of pairings %d..%d: %v", e.FirstID, e.LastID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Failure records a pairing that could not be scored.
type Failure struct {
	PairingID int64
	Err       error
}
