package cli

import (
	"context"
	"fmt"
	"strings"

	pb "github.com/dmitrijs2005/kitkeeper/internal/proto"
	"github.com/dmitrijs2005/kitkeeper/internal/timex"
)

func (a *App) Claim(ctx context.Context, kit string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	resp, err := a.client.Claim(ctx, kit)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}

	if resp.Allowed {
		msg := resp.Message
		if resp.Charged > 0 {
			msg += fmt.Sprintf(" (charged %.2f)", resp.Charged)
		}
		if resp.Overflow > 0 {
			msg += fmt.Sprintf(" (%d stacks did not fit)", resp.Overflow)
		}
		printlnFn(msg)
		return nil
	}

	printlnFn("Denied:", resp.Message)
	return nil
}

func (a *App) List(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	kits, err := a.client.ListKits(ctx)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}

	if len(kits) == 0 {
		printlnFn("No kits available")
		return nil
	}
	for _, k := range kits {
		printlnFn(formatKit(k))
	}
	return nil
}

func formatKit(k pb.KitStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-16s ", k.ID)
	switch k.Status {
	case pb.StatusCooldown:
		b.WriteString("cooldown " + timex.FormatCooldown(k.Remaining))
	case pb.StatusUsed:
		b.WriteString("used")
	default:
		b.WriteString("ready")
	}
	if k.Cost > 0 {
		fmt.Fprintf(&b, "  cost %.2f", k.Cost)
	}
	if k.OneTime {
		b.WriteString("  one-time")
	}
	return b.String()
}

func (a *App) Admin(ctx context.Context, args []string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	out, err := a.client.Admin(ctx, args)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	printlnFn(out)
	return nil
}
