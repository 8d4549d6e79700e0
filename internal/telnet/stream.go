package telnet

import (
	"bufio"
	"io"
	"sync"
)

// Stream is the layered Telnet stream: NVT framing and option negotiation
// wrapped around a raw Transport. One Stream owns its FSM, StatusTable and
// HandlerRegistry exclusively (single-strand: ReadSome must only ever be
// called from one goroutine at a time; writes take a mutex so a second
// goroutine may still write while a read is blocked — the read loop runs on
// the connection's own goroutine while Write is called from wherever the
// application needs to push data).
//
// Each WriteSome/WriteRaw/WriteCommand/WriteSubnegotiation/SendSynch call
// takes the write mutex for just that one call. There is no internal output
// queue, so two goroutines calling these concurrently interleave at whatever
// granularity they each issue writes in — a caller that needs a larger
// message to land atomically on the wire must build it and call one of these
// once, rather than relying on the Stream to batch partial writes together.
type Stream struct {
	transport Transport
	rbuf      *bufio.Reader
	replay    *byte // one byte fed back by the FSM for reclassification, consumed before the next transport read

	fsm      *FSM
	status   *StatusTable
	registry *OptionRegistry
	handlers *HandlerRegistry
	cfg      *Config
	urgent   *UrgentTracker

	writeMu  sync.Mutex
	writeErr error
}

// NewStream wraps transport in a Stream. A nil cfg uses NewConfig's defaults.
func NewStream(transport Transport, cfg *Config) *Stream {
	if cfg == nil {
		cfg = NewConfig()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = defaultRegistry()
	}
	status := NewStatusTable()
	handlers := NewHandlerRegistry()

	return &Stream{
		transport: transport,
		rbuf:      bufio.NewReader(transport),
		status:    status,
		registry:  registry,
		handlers:  handlers,
		cfg:       cfg,
		fsm:       NewFSM(registry, status, handlers, cfg),
		urgent:    NewUrgentTracker(cfg.logf),
	}
}

// LowestLayer returns the raw transport this Stream runs over.
func (s *Stream) LowestLayer() Transport { return s.transport }

// Close closes the underlying transport, if it supports closing.
func (s *Stream) Close() error {
	if c, ok := s.transport.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ReadSome fills p with NVT application data, running the byte-level state
// machine one input byte at a time. It returns early, with n < len(p),
// whenever a processing signal that isn't handled internally is encountered
// (the signal completes the read) or a protocol error occurs (the error
// aborts it); both are reported through err and can be inspected with
// AsSignal / AsProtocolError. With a nil err it returns once p is full, or
// once at least one byte has been delivered and no already-received input
// is left to process; it never returns 0 bytes with a nil err except when
// len(p) == 0.
func (s *Stream) ReadSome(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n := 0
	for {
		var b byte
		if s.replay != nil {
			b = *s.replay
			s.replay = nil
		} else {
			rb, err := s.rbuf.ReadByte()
			if err != nil {
				return n, err
			}
			b = rb
		}

		fr := s.fsm.Feed(b)

		if fr.Response != nil {
			if werr := s.handleResponse(fr.Response); werr != nil {
				return n, werr
			}
		}

		if fr.Forward && !s.urgent.Discarding() {
			if n < len(p) {
				p[n] = fr.ForwardByte
				n++
			}
		}

		if fr.Replay != nil {
			s.replay = fr.Replay
		}

		if fr.Err == nil {
			if n >= len(p) || (n > 0 && s.replay == nil && s.rbuf.Buffered() == 0) {
				return n, nil
			}
			continue
		}

		if sig, ok := AsSignal(fr.Err); ok {
			if s.urgent.Discarding() && sig.Code != SigDataMark {
				// Inside a Synch window every signal but DM is dropped, like data.
				continue
			}
			switch sig.Code {
			case SigCarriageReturn:
				// The CR byte itself was already appended via ForwardByte;
				// nothing further to do but keep reading.
			case SigEraseCharacter:
				if n > 0 {
					n--
				} else {
					return n, sig
				}
			case SigEraseLine:
				if n > 0 {
					n = 0
				} else {
					return n, sig
				}
			case SigAbortOutput:
				if werr := s.SendSynch(); werr != nil {
					return n, werr
				}
				return n, sig
			case SigDataMark:
				s.urgent.SawDataMark()
			default:
				return n, sig
			}
			if n >= len(p) || (n > 0 && s.replay == nil && s.rbuf.Buffered() == 0) {
				return n, nil
			}
			continue
		}

		if perr, ok := AsProtocolError(fr.Err); ok {
			return n, perr
		}
		return n, fr.Err
	}
}

// NotifyUrgent opens the Synch discard window: ordinary data read from this
// point on is dropped (commands and negotiation are still honored) until the
// delimiting IAC DM is read. An embedder with access to the raw socket calls
// this when it detects the TCP urgent pointer; Stream has no portable way to
// detect it on its own.
func (s *Stream) NotifyUrgent() { s.urgent.SawUrgent() }

func (s *Stream) rawWrite(p []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.rawWriteLocked(p)
}

// rawWriteLocked performs the write assuming writeMu is already held.
func (s *Stream) rawWriteLocked(p []byte) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	if _, err := s.transport.Write(p); err != nil {
		s.writeErr = err
		return err
	}
	return nil
}

// WriteSome writes p as NVT application data: IAC bytes are doubled, and
// unless BINARY is enabled on the local axis, bare LF becomes CRLF and bare
// CR becomes CR NUL.
func (s *Stream) WriteSome(p []byte) (int, error) {
	binary := s.status.Get(OptBinary).Local.Enabled()
	buf := make([]byte, 0, len(p))
	for _, b := range p {
		switch {
		case b == byte(IAC):
			buf = append(buf, byte(IAC), byte(IAC))
		case b == 0x0A && !binary:
			buf = append(buf, 0x0D, 0x0A)
		case b == 0x0D && !binary:
			buf = append(buf, 0x0D, 0x00)
		default:
			buf = append(buf, b)
		}
	}
	if err := s.rawWrite(buf); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteRaw writes p to the transport unmodified: no IAC doubling, no CR/LF
// canonicalization. Used for pre-built wire sequences such as a STATUS reply.
func (s *Stream) WriteRaw(p []byte) error { return s.rawWrite(p) }

// WriteCommand writes a single IAC-prefixed command with no option byte
// (NOP, AYT, BRK, ...).
func (s *Stream) WriteCommand(cmd Command) error {
	return s.rawWrite([]byte{byte(IAC), byte(cmd)})
}

func (s *Stream) writeNegotiation(dir Direction, enable bool, id OptionID) error {
	cmd := emitMessage(dir, enable)
	return s.rawWrite([]byte{byte(IAC), byte(cmd), byte(id)})
}

// WriteNegotiation writes `IAC WILL|WONT|DO|DONT id` as given, without
// consulting or updating the Q-Method state; RequestOption and DisableOption
// are the tracked entry points.
func (s *Stream) WriteNegotiation(dir Direction, enable bool, id OptionID) error {
	return s.writeNegotiation(dir, enable, id)
}

// WriteSubnegotiation writes `IAC SB id payload... IAC SE`, doubling any 0xFF
// byte inside payload.
func (s *Stream) WriteSubnegotiation(id OptionID, payload []byte) error {
	buf := []byte{byte(IAC), byte(SB), byte(id)}
	for _, b := range payload {
		buf = append(buf, b)
		if b == byte(IAC) {
			buf = append(buf, b)
		}
	}
	buf = append(buf, byte(IAC), byte(SE))
	return s.rawWrite(buf)
}

// SendSynch writes the Telnet Synch: three NUL bytes with the middle one
// marked as urgent data (via UrgentWriter, if the transport supports it; all
// three land in-band otherwise), followed by IAC DM. The explicit
// three-byte scheme hedges against differing urgent-pointer semantics
// across transport implementations.
func (s *Stream) SendSynch() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if uw, ok := s.transport.(UrgentWriter); ok {
		if err := s.rawWriteLocked([]byte{0x00}); err != nil {
			return err
		}
		if _, err := uw.WriteUrgent([]byte{0x00}); err != nil {
			s.writeErr = err
			return err
		}
		if err := s.rawWriteLocked([]byte{0x00}); err != nil {
			return err
		}
	} else if err := s.rawWriteLocked([]byte{0x00, 0x00, 0x00}); err != nil {
		return err
	}

	return s.rawWriteLocked([]byte{byte(IAC), byte(DM)})
}

// RequestOption asks the peer to enable option id in direction dir. A no-op
// request (the axis is already where it needs to be) returns nil without
// writing anything.
func (s *Stream) RequestOption(id OptionID, dir Direction) error {
	outcome := s.status.RequestOption(id, dir)
	return s.applyOutcome(id, dir, outcome, nil)
}

// DisableOption asks the peer to disable option id in direction dir.
func (s *Stream) DisableOption(id OptionID, dir Direction) error {
	outcome := s.status.DisableOption(id, dir)
	return s.applyOutcome(id, dir, outcome, nil)
}

// RegisterOptionHandlers installs the handler set for id, replacing any
// previous registration.
func (s *Stream) RegisterOptionHandlers(id OptionID, set HandlerSet) {
	s.handlers.Register(id, set)
}

// UnregisterOptionHandlers removes the handler set for id, if any.
func (s *Stream) UnregisterOptionHandlers(id OptionID) {
	s.handlers.Unregister(id)
}

// Registry exposes the option descriptor registry this Stream negotiates
// against, so callers can register descriptors before traffic starts.
func (s *Stream) Registry() *OptionRegistry { return s.registry }

// Status returns a snapshot of the negotiated state of id.
func (s *Stream) Status(id OptionID) OptionStatus { return s.status.Get(id) }

func (s *Stream) applyOutcome(id OptionID, dir Direction, outcome QOutcome, payload []byte) error {
	if outcome.Logged {
		s.cfg.logf("INFO: " + outcome.LogText)
	}
	if outcome.InvokeDisableHandler {
		if err := s.invokeHandler(CompletionDisablement, id, dir, payload); err != nil {
			return err
		}
	}
	if outcome.Emit {
		if err := s.writeNegotiation(dir, outcome.EmitEnable, id); err != nil {
			return err
		}
	}
	if outcome.InvokeEnableHandler {
		if err := s.invokeHandler(CompletionEnablement, id, dir, payload); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stream) handleResponse(r *Response) error {
	switch r.Kind {
	case RespNegotiation:
		return s.writeNegotiation(r.Negotiation.Dir, r.Negotiation.Enable, r.Negotiation.Opt)
	case RespRaw:
		return s.WriteRaw(r.Raw)
	case RespCompletion:
		c := r.Completion
		if c.Kind == CompletionDisablement {
			if err := s.invokeHandler(c.Kind, c.Opt, c.Dir, r.Payload); err != nil {
				return err
			}
			if r.HasPreceding {
				return s.writeNegotiation(r.Negotiation.Dir, r.Negotiation.Enable, r.Negotiation.Opt)
			}
			return nil
		}
		if r.HasPreceding {
			if err := s.writeNegotiation(r.Negotiation.Dir, r.Negotiation.Enable, r.Negotiation.Opt); err != nil {
				return err
			}
		}
		return s.invokeHandler(c.Kind, c.Opt, c.Dir, r.Payload)
	}
	return nil
}

func (s *Stream) invokeHandler(kind CompletionKind, id OptionID, dir Direction, payload []byte) error {
	hs := s.handlers.get(id)
	switch kind {
	case CompletionEnablement:
		if hs != nil && hs.OnEnable != nil {
			if err := hs.OnEnable(s, id, dir); err != nil {
				s.cfg.logf("WARN: enable handler for " + id.String() + " returned: " + err.Error())
				return err
			}
		}
	case CompletionDisablement:
		if hs != nil && hs.OnDisable != nil {
			if err := hs.OnDisable(s, id, dir); err != nil {
				s.cfg.logf("WARN: disable handler for " + id.String() + " returned: " + err.Error())
				return err
			}
		}
	case CompletionSubnegotiation:
		if hs != nil && hs.OnSubnegotiate != nil {
			if err := hs.OnSubnegotiate(s, id, payload); err != nil {
				s.cfg.logf("WARN: subnegotiation handler for " + id.String() + " returned: " + err.Error())
				return err
			}
		} else {
			return newProtocolError(ErrUserHandlerNotFound, "telnet: no subnegotiation handler registered for "+id.String())
		}
	}
	return nil
}
