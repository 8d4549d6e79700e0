package telnet

// RFC 859 STATUS subnegotiation opcodes.
const (
	statusIS   byte = 0
	statusSEND byte = 1
)

// appendStuffed appends each of bs to buf, doubling any byte equal to 0xFF
// (IAC) or 0xF0 (SE) so the result stays delimiter-clean inside a
// subnegotiation payload.
func appendStuffed(buf []byte, bs ...byte) []byte {
	for _, b := range bs {
		buf = append(buf, b)
		if b == byte(IAC) || b == byte(SE) {
			buf = append(buf, b)
		}
	}
	return buf
}

// statusISReply builds the full `IAC SB STATUS IS ... IAC SE` message
// reporting this side's view of every registered option's negotiated state,
// per RFC 859: one WILL entry for every option enabled on the local axis and
// one DO entry for every option enabled on the remote axis, nothing for axes
// that are off. STATUS itself is never listed.
func statusISReply(registry *OptionRegistry, status *StatusTable) []byte {
	buf := []byte{byte(IAC), byte(SB), byte(OptStatus), statusIS}
	for _, id := range registry.IDs() {
		if id == OptStatus {
			continue
		}
		st := status.Get(id)
		if st.Local.Enabled() {
			buf = appendStuffed(buf, byte(WILL), byte(id))
		}
		if st.Remote.Enabled() {
			buf = appendStuffed(buf, byte(DO), byte(id))
		}
	}
	buf = append(buf, byte(IAC), byte(SE))
	return buf
}

// handleStatusSubnegotiation implements the FSM's internal STATUS handling:
// SEND asks us to report our state, IS reports the peer's.
func (f *FSM) handleStatusSubnegotiation(payload []byte) *Response {
	if len(payload) == 0 {
		f.cfg.logf("WARN: invalid_subnegotiation: empty STATUS payload")
		return nil
	}

	switch payload[0] {
	case statusSEND:
		if !f.status.Get(OptStatus).Local.Enabled() {
			f.cfg.logf("WARN: option_not_available: STATUS SEND received, STATUS not locally enabled")
			return nil
		}
		return &Response{Kind: RespRaw, Raw: statusISReply(f.registry, f.status)}

	case statusIS:
		if !f.status.Get(OptStatus).Remote.Enabled() {
			f.cfg.logf("WARN: option_not_available: STATUS IS received, STATUS not remotely enabled")
			return nil
		}
		if hs := f.handlers.get(OptStatus); hs != nil && hs.OnSubnegotiate != nil {
			return &Response{
				Kind:       RespCompletion,
				Completion: &HandlerCompletion{Kind: CompletionSubnegotiation, Opt: OptStatus},
				Payload:    payload,
			}
		}
		return nil

	default:
		f.cfg.logf("WARN: invalid_subnegotiation: unrecognized STATUS opcode")
		return nil
	}
}
