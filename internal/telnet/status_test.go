package telnet

import "testing"

func TestStatusISReplyListsEnabledOptions(t *testing.T) {
	reg := defaultRegistry()
	status := NewStatusTable()
	status.axis(OptBinary, Local).State = StateYes
	status.axis(OptSuppressGA, Remote).State = StateYes

	raw := statusISReply(reg, status)
	if raw[0] != byte(IAC) || raw[1] != byte(SB) || raw[2] != byte(OptStatus) || raw[3] != statusIS {
		t.Fatalf("statusISReply header = %v, want IAC SB STATUS IS", raw[:4])
	}
	if raw[len(raw)-2] != byte(IAC) || raw[len(raw)-1] != byte(SE) {
		t.Fatalf("statusISReply trailer = %v, want IAC SE", raw[len(raw)-2:])
	}

	contains := func(cmd Command, id OptionID) bool {
		for i := 4; i+1 < len(raw); i++ {
			if raw[i] == byte(cmd) && raw[i+1] == byte(id) {
				return true
			}
		}
		return false
	}
	if !contains(WILL, OptBinary) {
		t.Fatalf("statusISReply missing WILL BINARY: %v", raw)
	}
	if !contains(DO, OptSuppressGA) {
		t.Fatalf("statusISReply missing DO SUPPRESS-GO-AHEAD: %v", raw)
	}
	if contains(WONT, OptBinary) || contains(DONT, OptBinary) {
		t.Fatalf("statusISReply should list only enabled axes, not disabled ones: %v", raw)
	}
	if contains(WONT, OptSuppressGA) || contains(DONT, OptSuppressGA) {
		t.Fatalf("statusISReply should list only enabled axes, not disabled ones: %v", raw)
	}
	if contains(WILL, OptStatus) || contains(WONT, OptStatus) || contains(DO, OptStatus) || contains(DONT, OptStatus) {
		t.Fatalf("statusISReply must exclude STATUS itself: %v", raw)
	}
}

func TestAppendStuffedDoublesIACAndSE(t *testing.T) {
	got := appendStuffed(nil, 0x01, byte(IAC), byte(SE), 0x02)
	want := []byte{0x01, byte(IAC), byte(IAC), byte(SE), byte(SE), 0x02}
	if string(got) != string(want) {
		t.Fatalf("appendStuffed = %v, want %v", got, want)
	}
}
