package metrics

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/kitkeeper/internal/logging"
	"github.com/dmitrijs2005/kitkeeper/internal/server/claims"
)

// ClaimNotifier logs claims and announces expensive ones through the console.
type ClaimNotifier struct {
	Logger     logging.Logger
	LogClaims  bool
	Dispatcher claims.Dispatcher
	// Broadcast announces claims of kits whose cost is at least
	// BroadcastMinCost. The kit cost counts, not what was charged.
	Broadcast        bool
	BroadcastMinCost float64
}

func (n *ClaimNotifier) KitClaimed(ctx context.Context, ev claims.ClaimEvent) {
	if n.LogClaims && n.Logger != nil {
		n.Logger.Info(ctx, "claim", "player", ev.Player.Name, "uuid", ev.Player.ID,
			"kit", ev.Kit.ID, "charged", ev.Charged, "given", ev.Given)
	}
	if !n.Broadcast || n.Dispatcher == nil || ev.Given || ev.Kit.Cost < n.BroadcastMinCost {
		return
	}
	msg := fmt.Sprintf("say %s claimed the %s kit!", ev.Player.Name, ev.Kit.DisplayName)
	if err := n.Dispatcher.RunAsConsole(ctx, msg); err != nil && n.Logger != nil {
		n.Logger.Warn(ctx, "broadcast failed", "error", err)
	}
}
