package telnet

// DirState is one of the four RFC 1143 Q-Method states for a single
// negotiation axis. Combined with the queue bit (Opposite) this yields the
// six reachable semantic states: NO, YES, WANT_YES/EMPTY,
// WANT_YES/OPPOSITE, WANT_NO/EMPTY, WANT_NO/OPPOSITE.
type DirState byte

const (
	StateNo DirState = iota
	StateYes
	StateWantNo
	StateWantYes
)

func (s DirState) String() string {
	switch s {
	case StateNo:
		return "NO"
	case StateYes:
		return "YES"
	case StateWantNo:
		return "WANT_NO"
	case StateWantYes:
		return "WANT_YES"
	default:
		return "?"
	}
}

// AxisStatus is the Q-Method state of one (option, direction) pair: the FSM
// state plus its one-bit opposite-request queue. Opposite is always false
// whenever State is NO or YES.
type AxisStatus struct {
	State    DirState
	Opposite bool
}

// Enabled reports whether this axis has converged to YES.
func (a AxisStatus) Enabled() bool { return a.State == StateYes }

// OptionStatus is the pair of axis statuses — local and remote — tracked for
// one option id.
type OptionStatus struct {
	Local  AxisStatus
	Remote AxisStatus
}

// StatusTable is the fixed-size, per-connection table of OptionStatus records
// one table per FSM instance, indexed by option id.
type StatusTable struct {
	entries [256]OptionStatus
}

// NewStatusTable returns a table with every option at its default record
// ({NO, NO, false, false}).
func NewStatusTable() *StatusTable {
	return &StatusTable{}
}

// Get returns a copy of the status record for id.
func (t *StatusTable) Get(id OptionID) OptionStatus {
	return t.entries[id]
}

func (t *StatusTable) axis(id OptionID, dir Direction) *AxisStatus {
	if dir == Local {
		return &t.entries[id].Local
	}
	return &t.entries[id].Remote
}

// QOutcome describes what the caller (the byte-level FSM / the stream) must
// do as a result of a Q-Method transition: at most one outbound negotiation
// byte sequence, and/or a handler invocation — never more than one outbound
// message per inbound event.
type QOutcome struct {
	Emit       bool // an outbound negotiation message must be written
	EmitEnable bool // true: WILL/DO: false: WONT/DONT (meaningful only if Emit)

	InvokeEnableHandler  bool
	InvokeDisableHandler bool

	// Logged is set when this transition is worth a log line: redundant
	// negotiation, RFC-1143-invalid-but-accepted recovery, etc. Ordinary
	// idempotent no-ops leave this false.
	Logged  bool
	LogText string
}

func noOutcome() QOutcome { return QOutcome{} }

func logged(text string) QOutcome { return QOutcome{Logged: true, LogText: text} }

// emitMessage returns the outbound negotiation command for (dir, enable):
// WILL/WONT for the local axis, DO/DONT for the remote axis.
func emitMessage(dir Direction, enable bool) Command {
	if dir == Local {
		if enable {
			return WILL
		}
		return WONT
	}
	if enable {
		return DO
	}
	return DONT
}

// RequestOption handles a user-initiated request to enable direction dir of
// option id.
func (t *StatusTable) RequestOption(id OptionID, dir Direction) QOutcome {
	a := t.axis(id, dir)
	switch a.State {
	case StateYes:
		return logged("request_option: " + id.String() + " " + dir.String() + " already YES")
	case StateWantYes:
		if a.Opposite {
			a.Opposite = false
		}
		return noOutcome()
	case StateWantNo:
		if !a.Opposite {
			a.Opposite = true
		}
		return noOutcome()
	case StateNo:
		a.State = StateWantYes
		a.Opposite = false
		return QOutcome{Emit: true, EmitEnable: true}
	}
	return noOutcome()
}

// DisableOption handles a user-initiated request to disable direction dir of
// option id, symmetric to RequestOption.
func (t *StatusTable) DisableOption(id OptionID, dir Direction) QOutcome {
	a := t.axis(id, dir)
	switch a.State {
	case StateNo:
		return noOutcome()
	case StateWantNo:
		if a.Opposite {
			a.Opposite = false
		}
		return noOutcome()
	case StateWantYes:
		if !a.Opposite {
			a.Opposite = true
		}
		return noOutcome()
	case StateYes:
		a.State = StateWantNo
		a.Opposite = false
		return QOutcome{Emit: true, EmitEnable: false, InvokeDisableHandler: true}
	}
	return noOutcome()
}

// PeerEnable handles an inbound WILL (dir=Remote) or DO (dir=Local) for a
// *registered* option. supported reports whether the option is supported in
// this direction, consulted only from the NO state.
func (t *StatusTable) PeerEnable(id OptionID, dir Direction, supported bool) QOutcome {
	a := t.axis(id, dir)
	switch a.State {
	case StateYes:
		return logged("peer enable: " + id.String() + " " + dir.String() + " already YES, ignored")
	case StateWantYes:
		if !a.Opposite {
			a.State = StateYes
			return QOutcome{InvokeEnableHandler: true}
		}
		a.State = StateWantNo
		a.Opposite = false
		return QOutcome{Emit: true, EmitEnable: false}
	case StateWantNo:
		if !a.Opposite {
			// Invalid per RFC 1143 (peer answering a request we didn't send
			// and haven't queued an opposite for); accept gracefully to
			// converge rather than desyncing permanently.
			a.State = StateYes
			return QOutcome{InvokeEnableHandler: true, Logged: true,
				LogText: "peer enable: " + id.String() + " " + dir.String() + " received in WANT_NO/EMPTY, accepting to converge"}
		}
		a.Opposite = false
		a.State = StateYes
		return QOutcome{InvokeEnableHandler: true}
	case StateNo:
		if supported {
			a.State = StateYes
			return QOutcome{Emit: true, EmitEnable: true, InvokeEnableHandler: true}
		}
		return QOutcome{Emit: true, EmitEnable: false}
	}
	return noOutcome()
}

// PeerDisable handles an inbound WONT (dir=Remote) or DONT (dir=Local),
// symmetric to PeerEnable.
func (t *StatusTable) PeerDisable(id OptionID, dir Direction) QOutcome {
	a := t.axis(id, dir)
	switch a.State {
	case StateNo:
		return logged("peer disable: " + id.String() + " " + dir.String() + " already NO, ignored")
	case StateWantNo:
		if !a.Opposite {
			a.State = StateNo
			return QOutcome{InvokeDisableHandler: true}
		}
		a.State = StateWantYes
		a.Opposite = false
		return QOutcome{Emit: true, EmitEnable: true}
	case StateWantYes:
		if !a.Opposite {
			a.State = StateNo
			return QOutcome{InvokeDisableHandler: true, Logged: true,
				LogText: "peer disable: " + id.String() + " " + dir.String() + " received in WANT_YES/EMPTY, accepting to converge"}
		}
		a.Opposite = false
		a.State = StateNo
		return QOutcome{InvokeDisableHandler: true}
	case StateYes:
		a.State = StateNo
		return QOutcome{Emit: true, EmitEnable: false, InvokeDisableHandler: true}
	}
	return noOutcome()
}

// RefuseUnregistered always answers WONT/DONT for a peer enable request on an
// option this table has no descriptor for; it never mutates the table (the
// axis is left at its default NO): an unregistered option always gets
// refused when the peer asks to enable it.
func RefuseUnregistered(dir Direction) QOutcome {
	return QOutcome{Emit: true, EmitEnable: false}
}
