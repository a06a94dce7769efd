package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/eecp-project/eecp/transport/ws"
)

// runInteractive starts the event loop that applies server-relayed
// operations to the local document and prints membership/rotation
// notices, then reads lines from stdin and appends each as an insert at
// the end of the current text. ":quit" ends the session.
func runInteractive(session *liveSession) error {
	fmt.Printf("workspace %s — type text to append, \":quit\" to leave\n", session.workspaceID)

	go func() {
		for env := range session.client.Events() {
			switch env.Type {
			case ws.TypeOperation:
				if err := session.decryptAndApply(env); err != nil {
					fmt.Fprintf(os.Stderr, "[warn] %v\n", err)
					continue
				}
				fmt.Printf("\n[doc] %s\n> ", session.doc.GetText())
			case ws.TypeKeyRotated:
				fmt.Printf("\n[rotated]\n> ")
			case ws.TypeParticipantJoined:
				fmt.Printf("\n[participant joined]\n> ")
			case ws.TypeParticipantLeft:
				fmt.Printf("\n[participant left]\n> ")
			case ws.TypeWorkspaceExpired:
				fmt.Printf("\n[workspace expired]\n")
				return
			case ws.TypeError:
				fmt.Fprintf(os.Stderr, "\n[server error] %s\n> ", string(env.Payload))
			}
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := scanner.Text()
		if line == ":quit" {
			break
		}
		if line == "" {
			fmt.Print("> ")
			continue
		}
		if err := session.Insert(len([]rune(session.doc.GetText())), line); err != nil {
			fmt.Fprintf(os.Stderr, "[error] %v\n", err)
		}
		fmt.Print("> ")
	}
	return session.client.Close()
}
