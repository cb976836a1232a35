package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/kitkeeper/internal/server/admin"
	"golang.org/x/term"
)

// printlnFn is a test seam for operator-facing output.
var printlnFn = fmt.Println

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

type executor interface {
	Execute(ctx context.Context, s admin.Sender, args []string) (string, error)
	Verbs() []string
}

// Run reads admin commands from in until EOF, "stop" or ctx is done. The
// prompt is only printed when stdin is a terminal.
func Run(ctx context.Context, ex executor, in io.Reader) {
	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = isTerminal(int(f.Fd()))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	runREPL(ctx, ex, lines, interactive)
}

// runREPL dispatches each line to the admin service as the console sender.
//
//	help          list commands
//	stop | exit   leave the console (the server keeps running)
//	<verb> ...    any admin verb, e.g. "setcooldown starter 1h"
func runREPL(ctx context.Context, ex executor, lines <-chan string, prompt bool) {
	for {
		if prompt {
			printlnFn("kits> ")
		}
		var line string
		select {
		case <-ctx.Done():
			return
		case l, ok := <-lines:
			if !ok {
				return
			}
			line = l
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch strings.ToLower(parts[0]) {
		case "help":
			printlnFn("Commands:")
			for _, v := range ex.Verbs() {
				printlnFn("  " + v)
			}
			printlnFn("  stop")

		case "stop", "exit", "quit":
			printlnFn("Console closed")
			return

		default:
			out, err := ex.Execute(ctx, admin.Console, parts)
			if err != nil {
				printlnFn("Error:", err)
				continue
			}
			printlnFn(out)
		}
	}
}
