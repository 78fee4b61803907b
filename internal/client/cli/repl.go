package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Upload(ctx context.Context, args []string) error
	Pause() error
	Resume() error
	Skip() error
	Status() error
	History(ctx context.Context, args []string) error
}

const helpText = `Available commands:
  upload [-compress] [-quality q] [-title t] [-desc d] [-project p] [-company id] [-tags a,b] <files...>
  pause            stop before the next file
  resume           continue a paused batch
  skip             abort the transfer in progress
  status           show the current batch
  history [n]      show finished uploads, "history clear" to wipe them
  exit | quit      leave the program`

// runREPL starts a simple read–eval–print loop for the mediadrop CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a' with the remaining tokens.
// Unknown commands are reported back to the user. The loop exits on scanner
// EOF, context cancellation, or when the user types "exit" or "quit".
//
// Errors returned by command handlers are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("mediadrop %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help", "?":
			printlnFn(helpText)

		case "upload", "up":
			err = a.Upload(ctx, args)

		case "pause":
			err = a.Pause()

		case "resume":
			err = a.Resume()

		case "skip":
			err = a.Skip()

		case "status", "st":
			err = a.Status()

		case "history", "h":
			err = a.History(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
