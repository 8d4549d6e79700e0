package telnet

import "testing"

func TestUrgentTrackerSawUrgentFromNoneOpensWindow(t *testing.T) {
	u := NewUrgentTracker(nil)
	u.SawUrgent()
	if !u.Discarding() {
		t.Fatalf("SawUrgent from NONE did not open the discard window")
	}
}

func TestUrgentTrackerSawDataMarkFromPendingClosesWindow(t *testing.T) {
	u := NewUrgentTracker(nil)
	u.SawUrgent()
	u.SawDataMark()
	if u.Discarding() {
		t.Fatalf("SawDataMark from URGENT_PENDING did not close the discard window")
	}
}

func TestUrgentTrackerDataMarkBeforeUrgentIsAlreadySynched(t *testing.T) {
	u := NewUrgentTracker(nil)
	u.SawDataMark() // NONE -> DM_SEEN_FIRST: DM arrived with no prior urgent notice
	if u.Discarding() {
		t.Fatalf("SawDataMark from NONE should not open a discard window")
	}
	u.SawUrgent() // DM_SEEN_FIRST -> NONE: treat as already-synched, not a new window
	if u.Discarding() {
		t.Fatalf("SawUrgent following an already-observed DM opened a discard window, want already-synched")
	}
}

func TestUrgentTrackerDuplicateSawUrgentLogsAnomaly(t *testing.T) {
	var logged string
	u := NewUrgentTracker(func(line string) { logged = line })
	u.SawUrgent()
	u.SawUrgent()
	if !u.Discarding() {
		t.Fatalf("duplicate SawUrgent left the tracker out of URGENT_PENDING")
	}
	if logged == "" {
		t.Fatalf("duplicate SawUrgent while URGENT_PENDING did not log an anomaly")
	}
}

func TestUrgentTrackerDuplicateSawDataMarkLogsAnomaly(t *testing.T) {
	var logged string
	u := NewUrgentTracker(func(line string) { logged = line })
	u.SawDataMark() // NONE -> DM_SEEN_FIRST
	u.SawDataMark() // DM_SEEN_FIRST -> DM_SEEN_FIRST, logged as benign
	if logged == "" {
		t.Fatalf("duplicate SawDataMark while DM_SEEN_FIRST did not log an anomaly")
	}
}
