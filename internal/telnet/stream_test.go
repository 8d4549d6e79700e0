package telnet

import (
	"io"
	"net"
	"testing"
	"time"
)

func quietConfig() *Config {
	cfg := NewConfig()
	cfg.Log = func(string) {}
	return cfg
}

func TestStreamWriteSomeEscapesIACAndCRLF(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	s := NewStream(server, quietConfig())

	go func() {
		if _, err := s.WriteSome([]byte{0xFF, 'A', '\n'}); err != nil {
			t.Errorf("WriteSome: %v", err)
		}
	}()

	buf := make([]byte, 16)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("client.Read: %v", err)
	}
	want := []byte{0xFF, 0xFF, 'A', 0x0D, 0x0A}
	if string(buf[:n]) != string(want) {
		t.Fatalf("wire bytes = %v, want %v", buf[:n], want)
	}
}

func TestStreamReadSomeDescramblesIACAndCRLF(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	s := NewStream(server, quietConfig())

	go func() {
		client.Write([]byte{0xFF, 0xFF, 'h', 'i', 0x0D, 0x0A})
	}()

	buf := make([]byte, 16)
	done := make(chan struct{})
	var n int
	var rerr error
	go func() {
		n, rerr = s.ReadSome(buf)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("ReadSome did not return")
	}

	want := []byte{0xFF, 'h', 'i', 0x0A}
	if string(buf[:n]) != string(want) {
		t.Fatalf("ReadSome data = %v, want %v", buf[:n], want)
	}
	sig, ok := AsSignal(rerr)
	if !ok || sig.Code != SigEndOfLine {
		t.Fatalf("ReadSome err = %v, want SigEndOfLine", rerr)
	}
}

func TestStreamAYTRepliesOnTheWire(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	s := NewStream(server, quietConfig())
	go func() { s.ReadSome(make([]byte, 16)) }()

	readDone := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := client.Read(buf)
		readDone <- buf[:n]
	}()

	if _, err := client.Write([]byte{byte(IAC), byte(AYT)}); err != nil {
		t.Fatalf("client.Write: %v", err)
	}

	select {
	case reply := <-readDone:
		if len(reply) == 0 {
			t.Fatalf("AYT reply was empty")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no AYT reply observed on the wire")
	}
}

func TestStreamBinaryHandshakeConverges(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	sA := NewStream(server, quietConfig())
	sB := NewStream(client, quietConfig())

	go func() { sA.ReadSome(make([]byte, 16)) }()
	go func() { sB.ReadSome(make([]byte, 16)) }()

	if err := sA.RequestOption(OptBinary, Local); err != nil {
		t.Fatalf("RequestOption: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sA.Status(OptBinary).Local.Enabled() && sB.Status(OptBinary).Remote.Enabled() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("BINARY handshake did not converge: sA=%+v sB=%+v", sA.Status(OptBinary), sB.Status(OptBinary))
}

// TestStreamAbortOutputSendsSynchAndPropagatesSignal covers the AO scenario:
// a read over "A B IAC AO C" forwards A and B, completes with the
// abort_output signal after send_synch writes three NUL bytes (in-band,
// since net.Pipe implements no UrgentWriter) followed by IAC DM, and a
// subsequent read yields the byte that followed AO on the wire.
func TestStreamAbortOutputSendsSynchAndPropagatesSignal(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	s := NewStream(server, quietConfig())

	go func() {
		client.Write([]byte{'A', 'B', byte(IAC), byte(AO), 'C'})
	}()

	wireDone := make(chan []byte, 1)
	go func() {
		wbuf := make([]byte, 5)
		if _, err := io.ReadFull(client, wbuf); err != nil {
			return
		}
		wireDone <- wbuf
	}()

	buf := make([]byte, 8)
	done := make(chan struct{})
	var n int
	var rerr error
	go func() {
		n, rerr = s.ReadSome(buf)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("ReadSome did not return after AO")
	}

	if n != 2 || string(buf[:n]) != "AB" {
		t.Fatalf("ReadSome data = %q (n=%d), want \"AB\" n=2", buf[:n], n)
	}
	sig, ok := AsSignal(rerr)
	if !ok || sig.Code != SigAbortOutput {
		t.Fatalf("ReadSome err = %v, want SigAbortOutput", rerr)
	}

	select {
	case wire := <-wireDone:
		want := []byte{0x00, 0x00, 0x00, byte(IAC), byte(DM)}
		if string(wire) != string(want) {
			t.Fatalf("send_synch wire bytes = %v, want %v", wire, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no send_synch bytes observed on the wire")
	}

	buf2 := make([]byte, 8)
	n2, err2 := s.ReadSome(buf2)
	if err2 != nil || string(buf2[:n2]) != "C" {
		t.Fatalf("ReadSome after AO = %q, err %v, want \"C\", nil", buf2[:n2], err2)
	}
}

// TestUrgentWindowSuppressesDataUntilDataMark covers Property 5: after
// NotifyUrgent, no data byte reaches the caller until the delimiting DM is
// processed, and the DM byte ends the suppression exactly at that point.
func TestUrgentWindowSuppressesDataUntilDataMark(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	s := NewStream(server, quietConfig())
	s.NotifyUrgent()

	go func() {
		client.Write([]byte{'X', 'Y', byte(IAC), byte(DM), 'Z'})
	}()

	buf := make([]byte, 1)
	done := make(chan struct{})
	var n int
	var rerr error
	go func() {
		n, rerr = s.ReadSome(buf)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("ReadSome did not return")
	}

	if rerr != nil {
		t.Fatalf("ReadSome returned %v, want nil (X and Y discarded under the hood)", rerr)
	}
	if n != 1 || buf[0] != 'Z' {
		t.Fatalf("ReadSome = %q (n=%d), want \"Z\" n=1", buf[:n], n)
	}
	if s.urgent.Discarding() {
		t.Fatalf("urgent tracker still discarding after its delimiting DM byte")
	}
}

func TestStreamSubnegotiationHandlerInvoked(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	cfg := quietConfig()
	cfg.Registry.Upsert(OptionDescriptor{
		ID: OptTerminalType, Name: "TERMINAL-TYPE",
		LocalSupported: AlwaysSupported, RemoteSupported: AlwaysSupported,
		SupportsSubnegotiation: true,
	})

	s := NewStream(server, cfg)
	s.Status(OptTerminalType) // sanity: does not panic on a freshly registered option

	got := make(chan []byte, 1)
	s.RegisterOptionHandlers(OptTerminalType, HandlerSet{
		OnSubnegotiate: func(st *Stream, id OptionID, payload []byte) error {
			got <- append([]byte(nil), payload...)
			return nil
		},
	})
	s.status.axis(OptTerminalType, Remote).State = StateYes

	go func() {
		client.Write([]byte{byte(IAC), byte(SB), byte(OptTerminalType), 0x00, 'V', 'T', byte(IAC), byte(SE)})
	}()
	go func() { s.ReadSome(make([]byte, 16)) }()

	select {
	case payload := <-got:
		want := []byte{0x00, 'V', 'T'}
		if string(payload) != string(want) {
			t.Fatalf("subnegotiation payload = %v, want %v", payload, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("subnegotiation handler was not invoked")
	}
}
