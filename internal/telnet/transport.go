package telnet

import "io"

// Transport is the byte pipe a Stream runs over: ordinary blocking reads and
// writes. A net.Conn satisfies this directly, which is the only transport
// the reference daemon (cmd/telnetd) uses.
type Transport interface {
	io.Reader
	io.Writer
}

// UrgentWriter is an optional capability a Transport may implement to send
// the middle NUL of the Synch's three NUL bytes as genuine TCP urgent data
// (the out-of-band byte RFC 854's Synch procedure describes). Go's net
// package exposes no portable way to set the urgent pointer, so Stream writes
// all three NULs in-band when the transport doesn't implement this. The
// trailing IAC DM is always written in-band, and still delimits the boundary
// for any peer that interprets Synch purely in-band, which is the common
// case.
type UrgentWriter interface {
	WriteUrgent(p []byte) (int, error)
}
