package telnetd

import (
	"log"

	"github.com/nullstream/telnetd/internal/telnet"
)

// RFC 1091 TERMINAL-TYPE subnegotiation opcodes.
const (
	ttypeIS   byte = 0
	ttypeSEND byte = 1
)

// registerTelopts installs NAWS and TERMINAL-TYPE handlers on s's stream:
// NAWS reports a 4-byte width/height pair, TERMINAL-TYPE's subnegotiation
// carries an IS/SEND opcode followed by the terminal name string.
func registerTelopts(s *Session) {
	s.stream.RegisterOptionHandlers(telnet.OptNAWS, telnet.HandlerSet{
		OnSubnegotiate: func(st *telnet.Stream, id telnet.OptionID, payload []byte) error {
			if len(payload) < 4 {
				log.Printf("WARN: session %d: short NAWS payload (%d bytes)", s.ID, len(payload))
				return nil
			}
			s.Width = int(payload[0])<<8 | int(payload[1])
			s.Height = int(payload[2])<<8 | int(payload[3])
			return nil
		},
	})

	s.stream.RegisterOptionHandlers(telnet.OptTerminalType, telnet.HandlerSet{
		OnEnable: func(st *telnet.Stream, id telnet.OptionID, dir telnet.Direction) error {
			if dir != telnet.Remote {
				return nil
			}
			return st.WriteSubnegotiation(telnet.OptTerminalType, []byte{ttypeSEND})
		},
		OnSubnegotiate: func(st *telnet.Stream, id telnet.OptionID, payload []byte) error {
			if len(payload) < 1 || payload[0] != ttypeIS {
				return nil
			}
			term := string(payload[1:])
			if len(term) > 64 {
				term = term[:64]
			}
			s.TerminalType = term
			return nil
		},
	})
}
