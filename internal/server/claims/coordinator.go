package claims

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/kitkeeper/internal/common"
	"github.com/dmitrijs2005/kitkeeper/internal/logging"
	"github.com/dmitrijs2005/kitkeeper/internal/server/models"
	"github.com/dmitrijs2005/kitkeeper/internal/timex"
)

// OverflowPolicy decides what happens to items that do not fit.
type OverflowPolicy int

const (
	OverflowDrop OverflowPolicy = iota
	OverflowDiscard
)

// DefaultBypassPermission lets its holders ignore cooldowns and one-time use.
const DefaultBypassPermission = "kits.bypass.cooldown"

type Options struct {
	DenyIfFull       bool
	Overflow         OverflowPolicy
	AutoEquipArmor   bool
	ClearBeforeGive  bool
	BypassPermission string
}

// Recorder counts claim outcomes.
type Recorder interface {
	RecordClaim(kit, outcome string)
}

// Result is the outcome of Claim or Give.
type Result struct {
	Decision
	Kit      *models.Kit
	Charged  float64
	Bypassed bool
	// Overflow is the number of stacks that did not fit.
	Overflow int
}

// Coordinator runs claims from decision to side effects. It holds no lock
// across the steps of a claim.
type Coordinator struct {
	kits         Kits
	entitlements Entitlements
	economy      Economy
	inventory    Inventory
	dispatcher   Dispatcher
	notifier     Notifier
	recorder     Recorder
	clock        timex.Clock
	logger       logging.Logger
	opts         Options

	gate     sync.RWMutex
	closing  bool
	inflight sync.WaitGroup
}

// Deps groups the collaborators. Economy, Notifier and Recorder may be nil.
type Deps struct {
	Kits         Kits
	Entitlements Entitlements
	Economy      Economy
	Inventory    Inventory
	Dispatcher   Dispatcher
	Notifier     Notifier
	Recorder     Recorder
	Clock        timex.Clock
	Logger       logging.Logger
}

func NewCoordinator(d Deps, opts Options) *Coordinator {
	if d.Clock == nil {
		d.Clock = timex.SystemClock{}
	}
	if d.Logger == nil {
		d.Logger = logging.Nop{}
	}
	if opts.BypassPermission == "" {
		opts.BypassPermission = DefaultBypassPermission
	}
	return &Coordinator{
		kits:         d.Kits,
		entitlements: d.Entitlements,
		economy:      d.Economy,
		inventory:    d.Inventory,
		dispatcher:   d.Dispatcher,
		notifier:     d.Notifier,
		recorder:     d.Recorder,
		clock:        d.Clock,
		logger:       d.Logger.With("module", "claims"),
		opts:         opts,
	}
}

func (c *Coordinator) enter() bool {
	c.gate.RLock()
	defer c.gate.RUnlock()
	if c.closing {
		return false
	}
	c.inflight.Add(1)
	return true
}

// Shutdown rejects new claims and waits for running ones to finish.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.gate.Lock()
	c.closing = true
	c.gate.Unlock()

	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Preview runs the checker with live facts and no side effects.
func (c *Coordinator) Preview(ctx context.Context, player models.Player, kitID string) (Decision, error) {
	kit, ok := c.kits.Get(kitID)
	if !ok {
		return Decision{Reason: KitNotFound}, nil
	}
	in, err := c.gather(ctx, player, kit)
	if err != nil {
		return Decision{}, err
	}
	return Check(in), nil
}

func (c *Coordinator) gather(ctx context.Context, player models.Player, kit *models.Kit) (CheckInput, error) {
	in := CheckInput{
		Kit:            kit,
		Player:         player,
		Entitlement:    c.entitlements.Get(player.ID, kit.ID),
		Now:            c.clock.Now(),
		Bypass:         player.HasPermission(c.opts.BypassPermission),
		EconomyEnabled: c.economy != nil,
		CheckCapacity:  c.opts.DenyIfFull,
	}
	if in.EconomyEnabled && kit.Cost > 0 {
		bal, err := c.economy.GetBalance(ctx, player.ID)
		if err != nil {
			return in, fmt.Errorf("failed to read balance: %w", err)
		}
		in.Balance = bal
	}
	if in.CheckCapacity {
		free, err := c.inventory.FreeCapacity(ctx, player.ID)
		if err != nil {
			return in, fmt.Errorf("failed to read inventory capacity: %w", err)
		}
		in.FreeSlots = free
	}
	return in, nil
}

// Claim attempts to give kitID to player. Denials come back in the Result;
// the error is reserved for shutdown and collaborator failures.
func (c *Coordinator) Claim(ctx context.Context, player models.Player, kitID string) (Result, error) {
	if !c.enter() {
		return Result{}, common.ErrShuttingDown
	}
	defer c.inflight.Done()

	res, err := c.claim(ctx, player, kitID)
	if c.recorder != nil && err == nil {
		c.recorder.RecordClaim(metricLabel(res), res.Reason.String())
	}
	return res, err
}

// metricLabel keeps client-supplied ids that name no kit out of metric labels.
func metricLabel(res Result) string {
	if res.Kit == nil {
		return "unknown"
	}
	return res.Kit.ID
}

func (c *Coordinator) claim(ctx context.Context, player models.Player, kitID string) (Result, error) {
	kit, ok := c.kits.Get(kitID)
	if !ok {
		return Result{Decision: Decision{Reason: KitNotFound}}, nil
	}

	in, err := c.gather(ctx, player, kit)
	if err != nil {
		return Result{}, err
	}
	res := Result{Kit: kit, Bypassed: in.Bypass, Decision: Check(in)}
	if !res.Allowed() {
		return res, nil
	}

	// capacity first so nobody pays for items they cannot receive
	if c.opts.DenyIfFull {
		free, err := c.inventory.FreeCapacity(ctx, player.ID)
		if err != nil {
			return Result{}, fmt.Errorf("failed to read inventory capacity: %w", err)
		}
		if free < kit.TotalSlots() {
			res.Decision = Decision{Reason: InventoryFull}
			return res, nil
		}
	}

	if c.economy != nil && kit.Cost > 0 {
		ok, err := c.economy.HasBalance(ctx, player.ID, kit.Cost)
		if err != nil {
			return Result{}, fmt.Errorf("failed to check balance: %w", err)
		}
		if !ok {
			res.Decision = Decision{Reason: InsufficientFunds}
			return res, nil
		}
		if err := c.economy.Withdraw(ctx, player.ID, kit.Cost); err != nil {
			if errors.Is(err, common.ErrInsufficientFunds) {
				res.Decision = Decision{Reason: InsufficientFunds}
				return res, nil
			}
			return Result{}, fmt.Errorf("failed to withdraw: %w", err)
		}
		res.Charged = kit.Cost
	}

	d := c.deliver(ctx, player, kit, c.opts.ClearBeforeGive)
	if d.err != nil && !d.moved {
		c.refund(ctx, player, kit, res.Charged)
		return Result{}, fmt.Errorf("failed to deliver kit[%s]: %w", kit.ID, d.err)
	}

	// Goods moved, so the claim is committed; later failures are logged only.
	res.Overflow = d.overflow
	if kit.Cooldown > 0 && !in.Bypass {
		c.entitlements.SetCooldown(player.ID, kit.ID, in.Now.Add(kit.Cooldown))
	}
	if kit.OneTime {
		c.entitlements.SetOneTimeUsed(player.ID, kit.ID)
	}

	c.runCommands(ctx, player, kit)
	c.notify(ctx, ClaimEvent{Player: player, Kit: kit, Charged: res.Charged, Bypassed: in.Bypass, Overflow: d.overflow})

	c.logger.Info(ctx, "kit claimed", "player", player.ID, "kit", kit.ID,
		"charged", res.Charged, "bypass", in.Bypass, "overflow", d.overflow)

	if d.err != nil {
		return res, fmt.Errorf("kit[%s] claimed with delivery errors: %w", kit.ID, d.err)
	}
	return res, nil
}

func (c *Coordinator) refund(ctx context.Context, player models.Player, kit *models.Kit, amount float64) {
	if amount <= 0 || c.economy == nil {
		return
	}
	if err := c.economy.Deposit(ctx, player.ID, amount); err != nil {
		c.logger.Error(ctx, "refund failed", "player", player.ID, "kit", kit.ID, "amount", amount, "error", err)
	}
}

// Give delivers a kit with no checks, no charge and no entitlement changes.
func (c *Coordinator) Give(ctx context.Context, player models.Player, kitID string) (Result, error) {
	if !c.enter() {
		return Result{}, common.ErrShuttingDown
	}
	defer c.inflight.Done()

	kit, ok := c.kits.Get(kitID)
	if !ok {
		return Result{Decision: Decision{Reason: KitNotFound}}, nil
	}
	d := c.deliver(ctx, player, kit, false)
	if d.err != nil && !d.moved {
		return Result{}, fmt.Errorf("failed to deliver kit[%s]: %w", kit.ID, d.err)
	}
	res := Result{Kit: kit, Decision: Decision{Reason: Allowed}, Overflow: d.overflow}

	c.runCommands(ctx, player, kit)
	c.notify(ctx, ClaimEvent{Player: player, Kit: kit, Given: true, Overflow: d.overflow})
	c.logger.Info(ctx, "kit given", "player", player.ID, "kit", kit.ID, "overflow", d.overflow)

	if d.err != nil {
		return res, fmt.Errorf("kit[%s] given with delivery errors: %w", kit.ID, d.err)
	}
	return res, nil
}

// delivery is what deliver managed to do. moved is set once any item or
// armor piece reached the player or the ground.
type delivery struct {
	overflow int
	moved    bool
	err      error
}

// deliver puts items and armor into the inventory and applies the overflow
// policy. It keeps going after an error and keeps the first one.
func (c *Coordinator) deliver(ctx context.Context, player models.Player, kit *models.Kit, clearFirst bool) delivery {
	var d delivery
	keep := func(err error) {
		if err != nil && d.err == nil {
			d.err = err
		}
	}

	if clearFirst {
		keep(c.inventory.Clear(ctx, player.ID))
	}

	pending := append([]models.ItemStack(nil), kit.Items...)
	for _, slot := range models.ArmorSlots {
		piece, ok := kit.Armor[slot]
		if !ok {
			continue
		}
		if c.opts.AutoEquipArmor {
			equipped, err := c.inventory.Equip(ctx, player.ID, slot, piece)
			keep(err)
			if equipped {
				d.moved = true
				continue
			}
		}
		pending = append(pending, piece)
	}
	if len(pending) == 0 {
		return d
	}

	leftover, err := c.inventory.Grant(ctx, player.ID, pending)
	if err != nil {
		// what a failed grant stored is unknown, so nothing is dropped
		keep(err)
		return d
	}
	if len(leftover) < len(pending) {
		d.moved = true
	}
	if len(leftover) == 0 {
		return d
	}

	d.overflow = len(leftover)
	switch c.opts.Overflow {
	case OverflowDrop:
		if err := c.inventory.Drop(ctx, player.ID, leftover); err != nil {
			keep(err)
		} else {
			d.moved = true
		}
	case OverflowDiscard:
		c.logger.Debug(ctx, "discarding overflow", "player", player.ID, "kit", kit.ID, "stacks", len(leftover))
	}
	return d
}

func (c *Coordinator) runCommands(ctx context.Context, player models.Player, kit *models.Kit) {
	if c.dispatcher == nil {
		return
	}
	for _, cmd := range kit.Commands {
		cmd = strings.ReplaceAll(cmd, common.PlayerPlaceholder, player.Name)
		if err := c.dispatcher.RunAsConsole(ctx, cmd); err != nil {
			c.logger.Warn(ctx, "follow-up command failed", "kit", kit.ID, "command", cmd, "error", err)
		}
	}
}

func (c *Coordinator) notify(ctx context.Context, ev ClaimEvent) {
	if c.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error(ctx, "claim notifier panicked", "kit", ev.Kit.ID, "panic", r)
		}
	}()
	c.notifier.KitClaimed(ctx, ev)
}
