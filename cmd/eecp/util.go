package main

import "strings"

// httpBase turns the client-facing WebSocket URL (ws://host:port/ws) into
// the base URL for the plain-JSON list/export endpoints the same server
// hosts alongside it (http://host:port).
func httpBase(wsURL string) string {
	base := strings.TrimSuffix(wsURL, "/ws")
	base = strings.Replace(base, "wss://", "https://", 1)
	base = strings.Replace(base, "ws://", "http://", 1)
	return base
}
