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
type execIface interface {
	Claim(ctx context.Context, kit string) error
	List(ctx context.Context) error
	Admin(ctx context.Context, args []string) error
}

// runREPL reads commands until EOF, "exit" or "quit":
//
//	help                 show available commands
//	claim <kit>          claim a kit
//	l | list             list kits and their status
//	admin <verb> ...     run an admin command, e.g. "admin info starter"
//
// Handler errors are printed by the handlers; the loop keeps going.
func runREPL(ctx context.Context, a execIface, scanner *bufio.Scanner) {
	for {
		printlnFn("kits> ")
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd := strings.ToLower(parts[0])

		switch cmd {
		case "help":
			printlnFn("Available commands: claim <kit>, (l)ist, admin <command> [args...], exit")

		case "claim":
			if len(parts) != 2 {
				printlnFn("Usage: claim <kit>")
				continue
			}
			_ = a.Claim(ctx, parts[1])

		case "l", "list":
			_ = a.List(ctx)

		case "admin":
			if len(parts) < 2 {
				printlnFn("Usage: admin <command> [args...]")
				continue
			}
			_ = a.Admin(ctx, parts[1:])

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if ctx.Err() != nil {
			return
		}
	}
}
