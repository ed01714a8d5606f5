package roomstore

import (
	"math"
	"time"

	"github.com/CrowdSynth/coordinator/internal/types"
)

// DropOutcome is the result of a single record_drop call.
type DropOutcome int

const (
	DropRegistered DropOutcome = iota
	DropTriggered
	DropAlreadyVoted
)

func (o DropOutcome) String() string {
	switch o {
	case DropTriggered:
		return "TRIGGERED"
	case DropAlreadyVoted:
		return "ALREADY_VOTED"
	default:
		return "REGISTERED"
	}
}

const (
	dropWindowTimeout = 10 * time.Second
	dropStaleAfter    = 5500 * time.Millisecond
)

// dropWindow tracks the in-flight collective drop vote for one room: the
// set of distinct connections that have voted since it opened.
type dropWindow struct {
	votes       map[types.ConnectionID]time.Time
	windowStart time.Time
}

func (w *dropWindow) isOpen() bool {
	return !w.windowStart.IsZero()
}

func (w *dropWindow) clear() {
	w.votes = make(map[types.ConnectionID]time.Time)
	w.windowStart = time.Time{}
}

// dropQuorum computes Q = max(1, ceil(participants/2)).
func dropQuorum(participants int) int {
	if participants <= 0 {
		return 1
	}
	q := int(math.Ceil(float64(participants) / 2.0))
	if q < 1 {
		q = 1
	}
	return q
}

// RecordDrop registers connectionID's drop vote for room and returns the
// outcome plus the current vote count and quorum needed, evaluated under
// the room lock per spec's windowed-quorum rules.
func (r *Room) RecordDrop(connectionID types.ConnectionID) (outcome DropOutcome, count, needed int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	w := r.dropWindow

	if w.isOpen() && now.Sub(w.windowStart) > dropStaleAfter {
		w.clear()
	}

	needed = dropQuorum(len(r.Participants))

	if w.isOpen() {
		if _, voted := w.votes[connectionID]; voted {
			return DropAlreadyVoted, len(w.votes), needed
		}
	} else {
		w.windowStart = now
	}

	w.votes[connectionID] = now
	count = len(w.votes)

	if count >= needed {
		w.clear()
		r.appendTimelineLocked("system", "drop triggered")
		return DropTriggered, count, needed
	}

	return DropRegistered, count, needed
}

// ExpireDropWindowIfStale clears the drop window if it is still open and
// belongs to the generation identified by windowStart, used by the
// gateway's 10-second expiry timer to avoid clearing a window that has
// since been superseded by a fresh vote.
func (r *Room) ExpireDropWindowIfStale(windowStart time.Time) (expired bool, needed int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := r.dropWindow
	needed = dropQuorum(len(r.Participants))
	if w.isOpen() && w.windowStart.Equal(windowStart) {
		w.clear()
		return true, needed
	}
	return false, needed
}

// DropWindowStart returns the current window's start time and whether a
// window is open, used by the gateway to key its 10-second expiry timer.
func (r *Room) DropWindowStart() (start time.Time, open bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropWindow.windowStart, r.dropWindow.isOpen()
}
