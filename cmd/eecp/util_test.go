package main

import "testing"

func TestHTTPBase(t *testing.T) {
	cases := map[string]string{
		"ws://localhost:3000/ws":  "http://localhost:3000",
		"wss://example.com/ws":    "https://example.com",
		"ws://host:3000":          "http://host:3000",
	}
	for in, want := range cases {
		if got := httpBase(in); got != want {
			t.Errorf("httpBase(%q) = %q, want %q", in, got, want)
		}
	}
}
