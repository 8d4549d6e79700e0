// Command telnetd is a reference daemon over internal/telnet: it accepts
// connections, negotiates BINARY/SUPPRESS-GO-AHEAD/NAWS/TERMINAL-TYPE, and
// echoes lines back. It exists to exercise the engine end to end.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"

	"github.com/nullstream/telnetd/internal/telnet"
	"github.com/nullstream/telnetd/internal/telnetd"
)

func main() {
	configPath := flag.String("config", "telnetd.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	registry := telnetd.NewRegistry()
	engineCfg := telnet.NewConfig()
	engineCfg.Registry.Upsert(telnet.OptionDescriptor{
		ID: telnet.OptNAWS, Name: "NAWS",
		LocalSupported: telnet.NeverSupported, RemoteSupported: telnet.AlwaysSupported,
		SupportsSubnegotiation: true,
	})
	engineCfg.Registry.Upsert(telnet.OptionDescriptor{
		ID: telnet.OptTerminalType, Name: "TERMINAL-TYPE",
		LocalSupported: telnet.NeverSupported, RemoteSupported: telnet.AlwaysSupported,
		SupportsSubnegotiation: true,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", addr, err)
	}
	defer ln.Close()

	log.Printf("telnetd listening on %s", addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Printf("Accept error: %v", err)
			continue
		}

		session := telnetd.NewSession(conn, engineCfg)
		id := registry.Add(session)
		log.Printf("session %d connected from %s", id, session.Remote)

		go func() {
			defer registry.Remove(id)
			session.Run()
			log.Printf("session %d disconnected", id)
		}()
	}
}
