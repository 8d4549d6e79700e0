package telnet

// ErrorClass groups protocol errors into a portable error-condition grouping.
type ErrorClass int

const (
	ClassProtocol ErrorClass = iota
	ClassResource
	ClassInternal
)

// ProtocolError is one of the taxonomy of errors the byte-level state machine
// and the layered stream can report. It is recoverable unless its Class is
// ClassInternal.
type ProtocolError struct {
	Code    ProtocolErrorCode
	Message string
}

func (e *ProtocolError) Error() string { return e.Message }

// Class reports which portable error-condition grouping this error maps to.
func (e *ProtocolError) Class() ErrorClass {
	switch e.Code {
	case ErrSubnegotiationOverflow:
		return ClassResource
	case ErrInternalError:
		return ClassInternal
	default:
		return ClassProtocol
	}
}

// ProtocolErrorCode enumerates the protocol error taxonomy.
type ProtocolErrorCode int

const (
	ErrProtocolViolation ProtocolErrorCode = iota
	ErrInternalError
	ErrInvalidCommand
	ErrInvalidNegotiation
	ErrOptionNotAvailable
	ErrInvalidSubnegotiation
	ErrSubnegotiationOverflow
	ErrIgnoredGoAhead
	ErrUserHandlerForbidden
	ErrUserHandlerNotFound
	ErrNegotiationQueueError
)

var protocolErrorNames = map[ProtocolErrorCode]string{
	ErrProtocolViolation:      "protocol_violation",
	ErrInternalError:          "internal_error",
	ErrInvalidCommand:         "invalid_command",
	ErrInvalidNegotiation:     "invalid_negotiation",
	ErrOptionNotAvailable:     "option_not_available",
	ErrInvalidSubnegotiation:  "invalid_subnegotiation",
	ErrSubnegotiationOverflow: "subnegotiation_overflow",
	ErrIgnoredGoAhead:         "ignored_go_ahead",
	ErrUserHandlerForbidden:   "user_handler_forbidden",
	ErrUserHandlerNotFound:    "user_handler_not_found",
	ErrNegotiationQueueError:  "negotiation_queue_error",
}

func (c ProtocolErrorCode) String() string { return protocolErrorNames[c] }

// newProtocolError builds a *ProtocolError with its canonical message.
func newProtocolError(code ProtocolErrorCode, message string) *ProtocolError {
	return &ProtocolError{Code: code, Message: message}
}

// Signal is one of the in-band Telnet processing signals the byte-level state
// machine surfaces to the application: not exceptional, a side-channel for
// NVT semantics.
type Signal struct {
	Code    SignalCode
	Message string
}

func (s *Signal) Error() string { return s.Message }

// SignalCode enumerates the processing-signal taxonomy.
type SignalCode int

const (
	SigEndOfLine SignalCode = iota
	SigCarriageReturn
	SigEndOfRecord
	SigGoAhead
	SigEraseCharacter
	SigEraseLine
	SigAbortOutput
	SigInterruptProcess
	SigTelnetBreak
	SigDataMark
)

var signalNames = map[SignalCode]string{
	SigEndOfLine:        "end_of_line",
	SigCarriageReturn:   "carriage_return",
	SigEndOfRecord:      "end_of_record",
	SigGoAhead:          "go_ahead",
	SigEraseCharacter:   "erase_character",
	SigEraseLine:        "erase_line",
	SigAbortOutput:      "abort_output",
	SigInterruptProcess: "interrupt_process",
	SigTelnetBreak:      "telnet_break",
	SigDataMark:         "data_mark",
}

func (c SignalCode) String() string { return signalNames[c] }

func newSignal(code SignalCode) *Signal {
	return &Signal{Code: code, Message: code.String()}
}

// AsSignal reports whether err (as returned from the FSM or the stream) is a
// processing signal, and if so, which one.
func AsSignal(err error) (*Signal, bool) {
	s, ok := err.(*Signal)
	return s, ok
}

// AsProtocolError reports whether err is one of the protocol error taxonomy.
func AsProtocolError(err error) (*ProtocolError, bool) {
	p, ok := err.(*ProtocolError)
	return p, ok
}
