package telnet

// ProtoState is one of the seven states of the byte-level protocol state
// machine, modeled after a classic stateData/stateIAC/stateWill/stateWont/
// stateDo/stateDont/stateSB/stateSBData/stateSBIAC switch, collapsed to a
// smaller state set and extended with HAS_CR for CR/LF canonicalization.
type ProtoState int

const (
	StateNormal ProtoState = iota
	StateHasCR
	StateHasIAC
	StateOptionNeg
	StateSubnegOpt
	StateSubneg
	StateSubnegIAC
)

// ResponseKind tags the one optional outbound action a single Feed call can
// produce.
type ResponseKind int

const (
	RespNegotiation ResponseKind = iota
	RespRaw
	RespCompletion
)

// NegotiationMsg is an outbound WILL/WONT/DO/DONT to write.
type NegotiationMsg struct {
	Dir    Direction
	Enable bool
	Opt    OptionID
}

// Response is the optional action FSM.Feed asks its caller to perform, in
// addition to (or instead of) forwarding a data byte. At most one of
// Negotiation/Raw/Completion is meaningful, selected by Kind; Completion may
// additionally carry a Negotiation to write first: a tagged completion
// optionally paired with a negotiation response to emit first.
type Response struct {
	Kind ResponseKind

	Negotiation  NegotiationMsg
	HasPreceding bool // Kind == RespCompletion and Negotiation must be written first

	Raw []byte

	Completion *HandlerCompletion
	Payload    []byte // captured subnegotiation payload, valid when Completion != nil
}

// FeedResult is what one call to FSM.Feed produces for a single input byte.
type FeedResult struct {
	// Forward is true when ForwardByte should be delivered to the
	// application as ordinary data. ForwardByte is usually the byte passed
	// to Feed, except when HAS_CR resolves a bare CR: the CR itself is what
	// gets forwarded, and the byte that follows it is handed back via Replay
	// for reclassification.
	Forward     bool
	ForwardByte byte

	// Replay is non-nil when the byte that was fed this call still needs to
	// go through the state machine again — the caller must feed it back in
	// before reading a fresh byte from the transport.
	Replay *byte

	// Err is non-nil for either a processing Signal (recoverable, carries
	// NVT semantics) or a *ProtocolError (also recoverable unless its Class
	// is ClassInternal). Feed never panics on malformed input.
	Err error

	// Response is non-nil when this byte produced an outbound action.
	Response *Response
}

// FSM is the byte-level Telnet protocol state machine: one instance per
// connection, single-strand (every Feed call must come from the same
// goroutine — see Stream).
type FSM struct {
	state ProtoState

	curCommand Command // buffered across HAS_IAC -> OPTION_NEG

	subnegOpt OptionID
	subnegBuf []byte
	subnegMax int // 0 = unlimited

	registry *OptionRegistry
	status   *StatusTable
	handlers *HandlerRegistry
	cfg      *Config
}

// NewFSM builds an FSM over the given registry, status table, handler
// registry and configuration. All four are expected to live exactly as long
// as the FSM (normally: owned by a single Stream).
func NewFSM(registry *OptionRegistry, status *StatusTable, handlers *HandlerRegistry, cfg *Config) *FSM {
	return &FSM{
		registry: registry,
		status:   status,
		handlers: handlers,
		cfg:      cfg,
	}
}

func (f *FSM) binaryRemoteEnabled() bool {
	return f.status.Get(OptBinary).Remote.Enabled()
}

// Feed consumes one inbound byte and reports what the caller should do with
// it.
func (f *FSM) Feed(b byte) FeedResult {
	switch f.state {
	case StateNormal:
		return f.feedNormal(b)
	case StateHasCR:
		return f.feedHasCR(b)
	case StateHasIAC:
		return f.feedHasIAC(b)
	case StateOptionNeg:
		return f.feedOptionNeg(b)
	case StateSubnegOpt:
		return f.feedSubnegOpt(b)
	case StateSubneg:
		return f.feedSubneg(b)
	case StateSubnegIAC:
		return f.feedSubnegIAC(b)
	default:
		return FeedResult{Err: newProtocolError(ErrInternalError, "telnet: FSM in unknown state")}
	}
}

func (f *FSM) feedNormal(b byte) FeedResult {
	switch {
	case b == byte(IAC):
		f.state = StateHasIAC
		return FeedResult{}
	case b == 0x0D && !f.binaryRemoteEnabled():
		f.state = StateHasCR
		return FeedResult{}
	case b == 0x00 && !f.binaryRemoteEnabled():
		return FeedResult{}
	default:
		return FeedResult{Forward: true, ForwardByte: b}
	}
}

func (f *FSM) feedHasCR(b byte) FeedResult {
	f.state = StateNormal
	switch b {
	case 0x0A:
		return FeedResult{Forward: true, ForwardByte: b, Err: newSignal(SigEndOfLine)}
	case 0x00:
		return FeedResult{Forward: true, ForwardByte: 0x0D, Err: newSignal(SigCarriageReturn)}
	case byte(IAC):
		f.state = StateHasIAC
		f.cfg.logf("WARN: protocol_violation: IAC immediately after bare CR")
		return FeedResult{Forward: true, ForwardByte: 0x0D, Err: newSignal(SigCarriageReturn)}
	default:
		// The CR was standalone data, not the start of a CRLF/CR-NUL
		// sequence. Forward the CR itself and hand b back for replay so it
		// gets classified fresh in StateNormal (it may itself be IAC, CR,
		// or NUL).
		f.cfg.logf("WARN: protocol_violation: bare CR not followed by LF or NUL")
		replay := b
		return FeedResult{Forward: true, ForwardByte: 0x0D, Replay: &replay, Err: newSignal(SigCarriageReturn)}
	}
}

func (f *FSM) feedHasIAC(b byte) FeedResult {
	cmd := Command(b)
	switch {
	case cmd == IAC:
		f.state = StateNormal
		return FeedResult{Forward: true, ForwardByte: byte(IAC)}
	case cmd.IsNegotiation():
		f.curCommand = cmd
		f.state = StateOptionNeg
		return FeedResult{}
	case cmd == SB:
		f.state = StateSubnegOpt
		return FeedResult{}
	case cmd == SE:
		f.state = StateNormal
		f.cfg.logf("WARN: invalid_subnegotiation: SE received outside a subnegotiation")
		return FeedResult{Err: newProtocolError(ErrInvalidSubnegotiation, "telnet: SE outside subnegotiation")}
	case cmd == DM:
		f.state = StateNormal
		return FeedResult{Err: newSignal(SigDataMark)}
	case cmd == GA:
		f.state = StateNormal
		if f.status.Get(OptSuppressGA).Remote.Enabled() {
			f.cfg.logf("WARN: ignored_go_ahead: GA received with SUPPRESS-GO-AHEAD remote enabled")
			return FeedResult{}
		}
		return FeedResult{Err: newSignal(SigGoAhead)}
	case cmd == AYT:
		f.state = StateNormal
		return FeedResult{Response: &Response{Kind: RespRaw, Raw: []byte(f.cfg.aytReply())}}
	case cmd == EOR:
		f.state = StateNormal
		if f.status.Get(OptEndOfRecord).Remote.Enabled() {
			return FeedResult{Err: newSignal(SigEndOfRecord)}
		}
		return FeedResult{}
	case cmd == NOP:
		f.state = StateNormal
		return FeedResult{}
	case cmd == EC:
		f.state = StateNormal
		return FeedResult{Err: newSignal(SigEraseCharacter)}
	case cmd == EL:
		f.state = StateNormal
		return FeedResult{Err: newSignal(SigEraseLine)}
	case cmd == AO:
		f.state = StateNormal
		return FeedResult{Err: newSignal(SigAbortOutput)}
	case cmd == IP:
		f.state = StateNormal
		return FeedResult{Err: newSignal(SigInterruptProcess)}
	case cmd == BRK:
		f.state = StateNormal
		return FeedResult{Err: newSignal(SigTelnetBreak)}
	default:
		f.state = StateNormal
		f.cfg.logf("WARN: invalid_command: unrecognized command byte after IAC")
		return FeedResult{Err: newProtocolError(ErrInvalidCommand, "telnet: unrecognized command after IAC")}
	}
}

// feedOptionNeg resolves a buffered WILL/WONT/DO/DONT against the option id
// b, dispatching to the Q-Method.
func (f *FSM) feedOptionNeg(b byte) FeedResult {
	f.state = StateNormal
	id := OptionID(b)
	desc, ok := f.registry.Get(id)

	var dir Direction
	var outcome QOutcome

	switch f.curCommand {
	case WILL:
		dir = Remote
		if !ok {
			if supported, handled := f.askUnknown(id, dir); handled {
				outcome = f.status.PeerEnable(id, dir, supported)
			} else {
				outcome = RefuseUnregistered(dir)
			}
		} else {
			outcome = f.status.PeerEnable(id, dir, desc.RemoteSupported())
		}
	case DO:
		dir = Local
		if !ok {
			if supported, handled := f.askUnknown(id, dir); handled {
				outcome = f.status.PeerEnable(id, dir, supported)
			} else {
				outcome = RefuseUnregistered(dir)
			}
		} else {
			outcome = f.status.PeerEnable(id, dir, desc.LocalSupported())
		}
	case WONT:
		dir = Remote
		if !ok {
			return FeedResult{}
		}
		outcome = f.status.PeerDisable(id, dir)
	case DONT:
		dir = Local
		if !ok {
			return FeedResult{}
		}
		outcome = f.status.PeerDisable(id, dir)
	default:
		return FeedResult{Err: newProtocolError(ErrInternalError, "telnet: OPTION_NEG with non-negotiation command buffered")}
	}

	if outcome.Logged {
		f.cfg.logf("INFO: " + outcome.LogText)
	}

	return FeedResult{Response: f.buildNegotiationResponse(id, dir, outcome)}
}

// askUnknown consults cfg.UnknownOption for an option with no descriptor. If
// the handler accepts it, a permissive descriptor is memoized so later
// lookups (e.g. subnegotiation) see it as registered.
func (f *FSM) askUnknown(id OptionID, dir Direction) (supported bool, handled bool) {
	if f.cfg.UnknownOption == nil {
		return false, false
	}
	supported = f.cfg.UnknownOption(id, dir)
	if supported {
		f.registry.Upsert(OptionDescriptor{
			ID:              id,
			Name:            id.String(),
			LocalSupported:  AlwaysSupported,
			RemoteSupported: AlwaysSupported,
		})
	}
	return supported, true
}

func (f *FSM) buildNegotiationResponse(id OptionID, dir Direction, outcome QOutcome) *Response {
	invoke := outcome.InvokeEnableHandler || outcome.InvokeDisableHandler
	switch {
	case !outcome.Emit && !invoke:
		return nil
	case outcome.Emit && !invoke:
		return &Response{Kind: RespNegotiation, Negotiation: NegotiationMsg{Dir: dir, Enable: outcome.EmitEnable, Opt: id}}
	default:
		kind := CompletionEnablement
		if outcome.InvokeDisableHandler {
			kind = CompletionDisablement
		}
		r := &Response{
			Kind:       RespCompletion,
			Completion: &HandlerCompletion{Kind: kind, Opt: id, Dir: dir},
		}
		if outcome.Emit {
			r.HasPreceding = true
			r.Negotiation = NegotiationMsg{Dir: dir, Enable: outcome.EmitEnable, Opt: id}
		}
		return r
	}
}

func (f *FSM) feedSubnegOpt(b byte) FeedResult {
	id := OptionID(b)
	desc, ok := f.registry.Get(id)
	if !ok {
		f.registry.Upsert(defaultDescriptor(id))
		f.cfg.logf("WARN: invalid_subnegotiation: SB for unregistered option " + id.String())
	} else if !desc.SupportsSubnegotiation {
		f.cfg.logf("WARN: invalid_subnegotiation: SB for option without subnegotiation support: " + id.String())
	} else {
		st := f.status.Get(id)
		if !st.Local.Enabled() && !st.Remote.Enabled() {
			f.cfg.logf("WARN: invalid_subnegotiation: SB for option not currently enabled in either direction: " + id.String())
		}
	}

	f.subnegOpt = id
	f.subnegBuf = f.subnegBuf[:0]
	if d, ok := f.registry.Get(id); ok {
		f.subnegMax = d.maxSize()
	} else {
		f.subnegMax = defaultMaxSubnegotiationSize
	}
	f.state = StateSubneg
	return FeedResult{}
}

func (f *FSM) feedSubneg(b byte) FeedResult {
	if b == byte(IAC) {
		f.state = StateSubnegIAC
		return FeedResult{}
	}
	if f.subnegMax > 0 && len(f.subnegBuf) >= f.subnegMax {
		f.state = StateNormal
		f.cfg.logf("WARN: subnegotiation_overflow: payload exceeded " + f.subnegOpt.String() + "'s limit")
		return FeedResult{Err: newProtocolError(ErrSubnegotiationOverflow, "telnet: subnegotiation payload exceeded its limit")}
	}
	f.subnegBuf = append(f.subnegBuf, b)
	return FeedResult{}
}

func (f *FSM) feedSubnegIAC(b byte) FeedResult {
	switch b {
	case byte(IAC):
		f.state = StateSubneg
		if f.subnegMax > 0 && len(f.subnegBuf) >= f.subnegMax {
			f.state = StateNormal
			f.cfg.logf("WARN: subnegotiation_overflow: payload exceeded " + f.subnegOpt.String() + "'s limit")
			return FeedResult{Err: newProtocolError(ErrSubnegotiationOverflow, "telnet: subnegotiation payload exceeded its limit")}
		}
		f.subnegBuf = append(f.subnegBuf, byte(IAC))
		return FeedResult{}
	case byte(SE):
		f.state = StateNormal
		return FeedResult{Response: f.finalizeSubnegotiation()}
	default:
		f.state = StateSubneg
		f.cfg.logf("WARN: invalid_command: IAC in subnegotiation followed by neither IAC nor SE")
		f.subnegBuf = append(f.subnegBuf, byte(IAC), b)
		return FeedResult{Err: newProtocolError(ErrInvalidCommand, "telnet: stray IAC inside subnegotiation")}
	}
}

func (f *FSM) finalizeSubnegotiation() *Response {
	payload := append([]byte(nil), f.subnegBuf...)
	id := f.subnegOpt

	if id == OptStatus {
		return f.handleStatusSubnegotiation(payload)
	}

	hs := f.handlers.get(id)
	if hs == nil || hs.OnSubnegotiate == nil {
		return nil
	}
	return &Response{
		Kind:       RespCompletion,
		Completion: &HandlerCompletion{Kind: CompletionSubnegotiation, Opt: id},
		Payload:    payload,
	}
}
