package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/kitkeeper/internal/client/client"
	"github.com/dmitrijs2005/kitkeeper/internal/client/config"
	pb "github.com/dmitrijs2005/kitkeeper/internal/proto"
)

// ErrUsage is returned for command lines the client cannot parse.
var ErrUsage = errors.New("usage")

type kitClient interface {
	Claim(ctx context.Context, kit string) (pb.ClaimResponse, error)
	ListKits(ctx context.Context) ([]pb.KitStatus, error)
	Admin(ctx context.Context, args []string) (string, error)
	Close() error
}

type App struct {
	config *config.Config
	client kitClient
	stdin  io.Reader
}

func NewApp(c *config.Config) (*App, error) {

	apiClient, err := client.NewKitKeeperClient(c.ServerEndpointAddr, c.AccessToken)
	if err != nil {
		return nil, err
	}

	return &App{config: c, client: apiClient, stdin: os.Stdin}, nil
}

// Run executes args as one command, or starts the REPL when args is empty.
func (a *App) Run(ctx context.Context, args []string) error {
	defer a.client.Close()

	if a.config.AccessToken == "" {
		printlnFn("No access token set; ask an operator for one (-t <token>).")
	}

	if len(args) == 0 {
		printlnFn("KitKeeper CLI (type 'help' for commands)")
		runREPL(ctx, a, bufio.NewScanner(a.stdin))
		return nil
	}
	return a.dispatch(ctx, args)
}

func (a *App) dispatch(ctx context.Context, args []string) error {
	switch strings.ToLower(args[0]) {
	case "claim":
		if len(args) != 2 {
			return fmt.Errorf("%w: claim <kit>", ErrUsage)
		}
		return a.Claim(ctx, args[1])
	case "l", "list":
		return a.List(ctx)
	case "admin":
		if len(args) < 2 {
			return fmt.Errorf("%w: admin <command> [args...]", ErrUsage)
		}
		return a.Admin(ctx, args[1:])
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
}

func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

// CommandArgs strips flags and their values from args, leaving the
// command words.
func CommandArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			out = append(out, args[i:]...)
			break
		}
		if !strings.Contains(arg, "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
		}
	}
	return out
}
