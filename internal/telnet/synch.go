package telnet

import "sync/atomic"

// urgentState is the three-value state of the Synch/urgent-data tracker.
type urgentState int32

const (
	urgentNone        urgentState = iota
	urgentPending                 // urgent data signalled, DM not yet seen
	urgentDMSeenFirst             // DM observed with no prior urgent signal; already synched
)

// UrgentTracker tracks the single outstanding Synch window a connection can
// be in, resolving the race between two events that can arrive in either
// order: the transport's urgent-data notification (SawUrgent) and the
// delimiting IAC DM byte (SawDataMark). While in urgentPending,
// Stream.ReadSome discards ordinary data bytes and suppresses processing
// signals other than DM, per RFC 854's Synch procedure. The state lives in
// a single atomic int, updated via CAS loops, so SawUrgent/SawDataMark/
// Discarding need no mutex even though they race across goroutines.
type UrgentTracker struct {
	state int32
	log   LogSink
}

// NewUrgentTracker returns a tracker in its idle state. log may be nil, in
// which case anomalies are dropped rather than reported.
func NewUrgentTracker(log LogSink) *UrgentTracker {
	return &UrgentTracker{log: log}
}

func (u *UrgentTracker) logf(line string) {
	if u.log != nil {
		u.log(line)
	}
}

// SawUrgent reports that the transport has signalled urgent data is
// arriving. NONE -> URGENT_PENDING opens the discard window.
// DM_SEEN_FIRST -> NONE treats a DM already observed as having synched this
// notification, rather than opening a new window. Called while already
// URGENT_PENDING, it logs an internal-error anomaly (a missing DM or a
// duplicate wait) and leaves the state unchanged.
func (u *UrgentTracker) SawUrgent() {
	for {
		cur := urgentState(atomic.LoadInt32(&u.state))
		switch cur {
		case urgentNone:
			if atomic.CompareAndSwapInt32(&u.state, int32(urgentNone), int32(urgentPending)) {
				return
			}
		case urgentDMSeenFirst:
			if atomic.CompareAndSwapInt32(&u.state, int32(urgentDMSeenFirst), int32(urgentNone)) {
				return
			}
		case urgentPending:
			u.logf("ERROR: urgent_tracker: saw_urgent while already URGENT_PENDING (missing DM or duplicate wait)")
			return
		}
	}
}

// SawDataMark reports that the delimiting IAC DM byte has been processed.
// URGENT_PENDING -> NONE closes the discard window. NONE -> DM_SEEN_FIRST
// records that DM arrived before any urgent notification did, so a later
// SawUrgent treats the pair as already-synched instead of opening a new
// window. Called while already DM_SEEN_FIRST, it logs a benign
// duplicate-DM anomaly and leaves the state unchanged.
func (u *UrgentTracker) SawDataMark() {
	for {
		cur := urgentState(atomic.LoadInt32(&u.state))
		switch cur {
		case urgentPending:
			if atomic.CompareAndSwapInt32(&u.state, int32(urgentPending), int32(urgentNone)) {
				return
			}
		case urgentNone:
			if atomic.CompareAndSwapInt32(&u.state, int32(urgentNone), int32(urgentDMSeenFirst)) {
				return
			}
		case urgentDMSeenFirst:
			u.logf("WARN: urgent_tracker: duplicate data_mark observed, ignoring")
			return
		}
	}
}

// Discarding reports whether ordinary data bytes and non-DM signals should
// currently be suppressed.
func (u *UrgentTracker) Discarding() bool {
	return urgentState(atomic.LoadInt32(&u.state)) == urgentPending
}
