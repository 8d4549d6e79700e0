package telnetd

import (
	"fmt"
	"log"
	"net"

	"github.com/nullstream/telnetd/internal/telnet"
)

// Session is one connected peer: a telnet.Stream plus the bits of state the
// demo negotiates (window size, terminal type) and reports through List. One
// Session is created per accepted connection and lives until it disconnects.
type Session struct {
	ID     int
	Remote string

	stream *telnet.Stream

	Width, Height int
	TerminalType  string
}

// NewSession wraps conn in a Session. cfg seeds the option registry and
// logging sink every Session on this listener shares.
func NewSession(conn net.Conn, cfg *telnet.Config) *Session {
	s := &Session{
		Remote: conn.RemoteAddr().String(),
		stream: telnet.NewStream(conn, cfg),
	}
	registerTelopts(s)
	return s
}

// SendLine writes msg terminated by a newline, translated to CRLF by
// Stream.WriteSome unless BINARY is negotiated.
func (s *Session) SendLine(msg string) error {
	_, err := s.stream.WriteSome([]byte(msg + "\n"))
	return err
}

// Run negotiates the demo's option set and then echoes input lines back to
// the peer until a transport read or write fails (the connection closed, for
// instance). Protocol errors are logged and the loop carries on.
// It is the Session's entire application behavior — a stand-in for
// whatever a real embedder would do with a negotiated, framed byte stream.
func (s *Session) Run() {
	defer s.stream.Close()

	if err := s.stream.RequestOption(telnet.OptSuppressGA, telnet.Local); err != nil {
		log.Printf("WARN: session %d: request SUPPRESS-GO-AHEAD: %v", s.ID, err)
	}
	if err := s.stream.RequestOption(telnet.OptBinary, telnet.Local); err != nil {
		log.Printf("WARN: session %d: request BINARY: %v", s.ID, err)
	}
	if err := s.stream.RequestOption(telnet.OptNAWS, telnet.Remote); err != nil {
		log.Printf("WARN: session %d: request NAWS: %v", s.ID, err)
	}
	if err := s.stream.RequestOption(telnet.OptTerminalType, telnet.Remote); err != nil {
		log.Printf("WARN: session %d: request TERMINAL-TYPE: %v", s.ID, err)
	}

	if err := s.SendLine(fmt.Sprintf("connected as session %d", s.ID)); err != nil {
		log.Printf("WARN: session %d: greeting write failed: %v", s.ID, err)
		return
	}

	line := make([]byte, 0, 256)
	buf := make([]byte, 256)
	for {
		n, err := s.stream.ReadSome(buf)
		line = append(line, buf[:n]...)

		if err != nil {
			if sig, ok := telnet.AsSignal(err); ok {
				s.handleSignal(sig, &line)
				continue
			}
			if _, ok := telnet.AsProtocolError(err); ok {
				log.Printf("INFO: session %d: %v", s.ID, err)
				continue
			}
			log.Printf("INFO: session %d closed: %v", s.ID, err)
			return
		}
	}
}

func (s *Session) handleSignal(sig *telnet.Signal, line *[]byte) {
	switch sig.Code {
	case telnet.SigEndOfLine:
		echo := append([]byte(nil), *line...)
		*line = (*line)[:0]
		if _, err := s.stream.WriteSome(echo); err != nil {
			log.Printf("WARN: session %d: echo write failed: %v", s.ID, err)
		}
	case telnet.SigInterruptProcess, telnet.SigTelnetBreak:
		*line = (*line)[:0]
	default:
		log.Printf("INFO: session %d: signal %v", s.ID, sig.Code)
	}
}
