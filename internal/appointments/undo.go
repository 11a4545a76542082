package appointments

import "time"

const (
	undoCapacity = 10
	undoWindow   = 30 * time.Second
)

// UndoEntry captures the full prior state of an appointment before a mutation.
type UndoEntry struct {
	AppointmentID string
	Snapshot      *Appointment
	Label         string
	CreatedAt     time.Time
}

// undoLog is a bounded stack of undo entries. Pushing past capacity drops the
// oldest entry. Entries are honored only within the undo window, checked at
// pop time.
type undoLog struct {
	entries []UndoEntry
}

func (l *undoLog) push(e UndoEntry) {
	l.entries = append(l.entries, e)
	if len(l.entries) > undoCapacity {
		l.entries = l.entries[len(l.entries)-undoCapacity:]
	}
}

// pop returns the most recent entry if it is still inside the undo window.
// Entries are stacked in time order, so an expired top means everything
// below it has expired too; the whole log is cleared in that case.
func (l *undoLog) pop(now time.Time) (UndoEntry, bool) {
	if len(l.entries) == 0 {
		return UndoEntry{}, false
	}
	top := l.entries[len(l.entries)-1]
	if now.Sub(top.CreatedAt) > undoWindow {
		l.entries = nil
		return UndoEntry{}, false
	}
	l.entries = l.entries[:len(l.entries)-1]
	return top, true
}

func (l *undoLog) len() int { return len(l.entries) }
