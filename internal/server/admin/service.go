// Package admin implements the kit administration commands shared by the
// server console and the gRPC Admin method.
package admin

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/kitkeeper/internal/common"
	"github.com/dmitrijs2005/kitkeeper/internal/logging"
	"github.com/dmitrijs2005/kitkeeper/internal/server/claims"
	"github.com/dmitrijs2005/kitkeeper/internal/server/models"
	"github.com/dmitrijs2005/kitkeeper/internal/timex"
	"github.com/google/uuid"
)

// PermissionPrefix is prepended to the verb to form the permission a
// non-console sender needs.
const PermissionPrefix = "kits.admin."

type Catalog interface {
	Get(id string) (*models.Kit, bool)
	All() []*models.Kit
	Create(ctx context.Context, displayName string, items []models.ItemStack, armor map[string]models.ItemStack) (*models.Kit, error)
	Delete(ctx context.Context, id string) error
	SetCooldown(ctx context.Context, id string, d time.Duration) error
	SetCost(ctx context.Context, id string, cost float64) error
	SetPermission(ctx context.Context, id, perm string) error
	SetOneTime(ctx context.Context, id string, oneTime bool) error
	SetDisplayName(ctx context.Context, id, name string) error
	SetCommands(ctx context.Context, id string, commands []string) error
	Reload(ctx context.Context) error
}

type Store interface {
	ResetCooldown(player uuid.UUID, kit string)
	ResetOneTime(player uuid.UUID, kit string)
	ClearAll(ctx context.Context, kit string) error
}

// Claims is the part of the claim coordinator admins drive directly.
type Claims interface {
	Give(ctx context.Context, player models.Player, kitID string) (claims.Result, error)
	Preview(ctx context.Context, player models.Player, kitID string) (claims.Decision, error)
}

// Economy is nil when kits are free.
type Economy interface {
	GetBalance(ctx context.Context, player uuid.UUID) (float64, error)
	Deposit(ctx context.Context, player uuid.UUID, amount float64) error
}

type Players interface {
	Lookup(ref string) (models.Player, error)
}

// Inventories exposes what a player is carrying, for create --from.
type Inventories interface {
	Contents(player uuid.UUID) ([]models.ItemStack, map[string]models.ItemStack)
}

type Tokens interface {
	Issue(p models.Player) (string, error)
}

// Sender is whoever runs a command.
type Sender struct {
	Player  models.Player
	Console bool
}

// Console is the server operator.
var Console = Sender{Console: true, Player: models.Player{Name: common.ConsoleSender, Op: true}}

func (s Sender) allowed(verb string) bool {
	return s.Console || s.Player.HasPermission(PermissionPrefix+verb)
}

type Deps struct {
	Catalog     Catalog
	Store       Store
	Claims      Claims
	Economy     Economy
	Players     Players
	Inventories Inventories
	Tokens      Tokens
	Logger      logging.Logger
}

type Service struct {
	Deps
	verbs map[string]verb
}

type verb struct {
	usage string
	run   func(ctx context.Context, s Sender, args []string) (string, error)
}

func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = logging.Nop{}
	}
	d.Logger = d.Logger.With("module", "admin")
	svc := &Service{Deps: d}
	svc.verbs = map[string]verb{
		"create":         {"create <name...> [--from <player>]", svc.create},
		"delete":         {"delete <kit>", svc.delete},
		"give":           {"give <player> <kit>", svc.give},
		"setcooldown":    {"setcooldown <kit> <time>", svc.setCooldown},
		"setcost":        {"setcost <kit> <amount>", svc.setCost},
		"setpermission":  {"setpermission <kit> <permission|none>", svc.setPermission},
		"setonetime":     {"setonetime <kit> <true|false>", svc.setOneTime},
		"setdisplayname": {"setdisplayname <kit> <name...>", svc.setDisplayName},
		"setcommands":    {"setcommands <kit> <command[; command...]|none>", svc.setCommands},
		"resetcooldown":  {"resetcooldown <player> <kit>", svc.resetCooldown},
		"check":          {"check <player> <kit>", svc.check},
		"balance":        {"balance <player>", svc.balance},
		"deposit":        {"deposit <player> <amount>", svc.deposit},
		"list":           {"list", svc.list},
		"info":           {"info <kit>", svc.info},
		"reload":         {"reload", svc.reload},
		"token":          {"token <name> [--op] [permission...]", svc.token},
	}
	return svc
}

// Verbs returns the usage line of every command.
func (svc *Service) Verbs() []string {
	out := make([]string, 0, len(svc.verbs))
	for _, v := range svc.verbs {
		out = append(out, v.usage)
	}
	sort.Strings(out)
	return out
}

// Execute runs one admin command. Malformed input wraps
// common.ErrConfigInvalid and changes nothing.
func (svc *Service) Execute(ctx context.Context, s Sender, args []string) (string, error) {
	if len(args) == 0 {
		return "", usageError("<command> [args...]")
	}
	name := strings.ToLower(args[0])
	v, ok := svc.verbs[name]
	if !ok {
		return "", fmt.Errorf("%w: unknown command %q", common.ErrConfigInvalid, args[0])
	}
	if !s.allowed(name) {
		return "", fmt.Errorf("%w: %s%s", common.ErrPermissionDenied, PermissionPrefix, name)
	}

	out, err := v.run(ctx, s, args[1:])
	if err != nil {
		return "", err
	}
	svc.Logger.Info(ctx, "admin command", "sender", s.Player.Name, "command", name, "args", args[1:])
	return out, nil
}

func usageError(usage string) error {
	return fmt.Errorf("%w: usage: %s", common.ErrConfigInvalid, usage)
}

func (svc *Service) need(args []string, n int, name string) error {
	if len(args) != n {
		return usageError(svc.verbs[name].usage)
	}
	return nil
}

func (svc *Service) kit(id string) (*models.Kit, error) {
	k, ok := svc.Catalog.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrKitNotFound, strings.ToLower(id))
	}
	return k, nil
}

func (svc *Service) player(ref string) (models.Player, error) {
	p, err := svc.Players.Lookup(ref)
	if err != nil {
		return models.Player{}, fmt.Errorf("unknown player %q: %w", ref, err)
	}
	return p, nil
}

func (svc *Service) create(ctx context.Context, s Sender, args []string) (string, error) {
	var nameParts []string
	var from string
	for i := 0; i < len(args); i++ {
		if args[i] == "--from" {
			if i+1 >= len(args) {
				return "", usageError(svc.verbs["create"].usage)
			}
			from = args[i+1]
			i++
			continue
		}
		nameParts = append(nameParts, args[i])
	}
	if len(nameParts) == 0 {
		return "", usageError(svc.verbs["create"].usage)
	}

	var items []models.ItemStack
	var armor map[string]models.ItemStack
	source := s.Player
	if from != "" {
		p, err := svc.player(from)
		if err != nil {
			return "", err
		}
		source = p
	}
	if (from != "" || !s.Console) && svc.Inventories != nil {
		items, armor = svc.Inventories.Contents(source.ID)
	}

	k, err := svc.Catalog.Create(ctx, strings.Join(nameParts, " "), items, armor)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Kit %s created with %d items and %d armor pieces (permission %s)",
		k.ID, len(k.Items), len(k.Armor), k.Permission), nil
}

func (svc *Service) delete(ctx context.Context, _ Sender, args []string) (string, error) {
	if err := svc.need(args, 1, "delete"); err != nil {
		return "", err
	}
	k, err := svc.kit(args[0])
	if err != nil {
		return "", err
	}
	if err := svc.Catalog.Delete(ctx, k.ID); err != nil {
		return "", err
	}
	if err := svc.Store.ClearAll(ctx, k.ID); err != nil {
		return "", fmt.Errorf("kit %s deleted but its entitlements were not cleared: %w", k.ID, err)
	}
	return fmt.Sprintf("Kit %s deleted", k.ID), nil
}

func (svc *Service) give(ctx context.Context, _ Sender, args []string) (string, error) {
	if err := svc.need(args, 2, "give"); err != nil {
		return "", err
	}
	p, err := svc.player(args[0])
	if err != nil {
		return "", err
	}
	res, err := svc.Claims.Give(ctx, p, args[1])
	if err != nil {
		return "", err
	}
	if err := res.Err(); err != nil {
		return "", fmt.Errorf("%w: %s", err, strings.ToLower(args[1]))
	}
	msg := fmt.Sprintf("Gave kit %s to %s", res.Kit.ID, p.Name)
	if res.Overflow > 0 {
		msg += fmt.Sprintf(" (%d stacks did not fit)", res.Overflow)
	}
	return msg, nil
}

func (svc *Service) setCooldown(ctx context.Context, _ Sender, args []string) (string, error) {
	if err := svc.need(args, 2, "setcooldown"); err != nil {
		return "", err
	}
	d, err := timex.ParseCooldown(args[1])
	if err != nil {
		return "", err
	}
	if err := svc.Catalog.SetCooldown(ctx, args[0], d); err != nil {
		return "", err
	}
	return fmt.Sprintf("Cooldown of %s set to %s", strings.ToLower(args[0]), timex.FormatCooldown(d)), nil
}

func (svc *Service) setCost(ctx context.Context, _ Sender, args []string) (string, error) {
	if err := svc.need(args, 2, "setcost"); err != nil {
		return "", err
	}
	cost, err := strconv.ParseFloat(args[1], 64)
	if err != nil || cost < 0 || math.IsNaN(cost) || math.IsInf(cost, 0) {
		return "", fmt.Errorf("%w: invalid amount %q", common.ErrConfigInvalid, args[1])
	}
	if err := svc.Catalog.SetCost(ctx, args[0], cost); err != nil {
		return "", err
	}
	return fmt.Sprintf("Cost of %s set to %.2f", strings.ToLower(args[0]), cost), nil
}

func (svc *Service) setPermission(ctx context.Context, _ Sender, args []string) (string, error) {
	if err := svc.need(args, 2, "setpermission"); err != nil {
		return "", err
	}
	perm := args[1]
	if strings.EqualFold(perm, "none") {
		perm = ""
	}
	if err := svc.Catalog.SetPermission(ctx, args[0], perm); err != nil {
		return "", err
	}
	if perm == "" {
		return fmt.Sprintf("Kit %s is now public", strings.ToLower(args[0])), nil
	}
	return fmt.Sprintf("Permission of %s set to %s", strings.ToLower(args[0]), perm), nil
}

func (svc *Service) setOneTime(ctx context.Context, _ Sender, args []string) (string, error) {
	if err := svc.need(args, 2, "setonetime"); err != nil {
		return "", err
	}
	v, err := strconv.ParseBool(args[1])
	if err != nil {
		return "", fmt.Errorf("%w: expected true or false, got %q", common.ErrConfigInvalid, args[1])
	}
	if err := svc.Catalog.SetOneTime(ctx, args[0], v); err != nil {
		return "", err
	}
	return fmt.Sprintf("One-time of %s set to %t", strings.ToLower(args[0]), v), nil
}

func (svc *Service) setDisplayName(ctx context.Context, _ Sender, args []string) (string, error) {
	if len(args) < 2 {
		return "", usageError(svc.verbs["setdisplayname"].usage)
	}
	name := strings.Join(args[1:], " ")
	if err := svc.Catalog.SetDisplayName(ctx, args[0], name); err != nil {
		return "", err
	}
	return fmt.Sprintf("Display name of %s set to %s", strings.ToLower(args[0]), name), nil
}

// setCommands replaces the follow-up commands. Commands are separated by
// ";" and may use the {player} placeholder.
func (svc *Service) setCommands(ctx context.Context, _ Sender, args []string) (string, error) {
	if len(args) < 2 {
		return "", usageError(svc.verbs["setcommands"].usage)
	}
	var commands []string
	if rest := strings.Join(args[1:], " "); !strings.EqualFold(rest, "none") {
		for _, c := range strings.Split(rest, ";") {
			if c = strings.TrimSpace(c); c != "" {
				commands = append(commands, c)
			}
		}
		if len(commands) == 0 {
			return "", usageError(svc.verbs["setcommands"].usage)
		}
	}
	if err := svc.Catalog.SetCommands(ctx, args[0], commands); err != nil {
		return "", err
	}
	return fmt.Sprintf("Kit %s now runs %d commands", strings.ToLower(args[0]), len(commands)), nil
}

// check reports what a claim would decide right now, without claiming.
func (svc *Service) check(ctx context.Context, _ Sender, args []string) (string, error) {
	if err := svc.need(args, 2, "check"); err != nil {
		return "", err
	}
	p, err := svc.player(args[0])
	if err != nil {
		return "", err
	}
	k, err := svc.kit(args[1])
	if err != nil {
		return "", err
	}
	d, err := svc.Claims.Preview(ctx, p, k.ID)
	if err != nil {
		return "", err
	}
	switch d.Reason {
	case claims.Allowed:
		return fmt.Sprintf("%s can claim %s", p.Name, k.ID), nil
	case claims.OnCooldown:
		return fmt.Sprintf("%s cannot claim %s: on cooldown (%s)", p.Name, k.ID, timex.FormatShort(d.Remaining)), nil
	default:
		return fmt.Sprintf("%s cannot claim %s: %v", p.Name, k.ID, d.Err()), nil
	}
}

func (svc *Service) economy() (Economy, error) {
	if svc.Economy == nil {
		return nil, common.ErrEconomyDisabled
	}
	return svc.Economy, nil
}

func (svc *Service) balance(ctx context.Context, _ Sender, args []string) (string, error) {
	if err := svc.need(args, 1, "balance"); err != nil {
		return "", err
	}
	econ, err := svc.economy()
	if err != nil {
		return "", err
	}
	p, err := svc.player(args[0])
	if err != nil {
		return "", err
	}
	bal, err := econ.GetBalance(ctx, p.ID)
	if err != nil {
		return "", fmt.Errorf("failed to read balance: %w", err)
	}
	return fmt.Sprintf("%s has %.2f", p.Name, bal), nil
}

func (svc *Service) deposit(ctx context.Context, _ Sender, args []string) (string, error) {
	if err := svc.need(args, 2, "deposit"); err != nil {
		return "", err
	}
	econ, err := svc.economy()
	if err != nil {
		return "", err
	}
	p, err := svc.player(args[0])
	if err != nil {
		return "", err
	}
	amount, err := strconv.ParseFloat(args[1], 64)
	if err != nil || amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "", fmt.Errorf("%w: invalid amount %q", common.ErrConfigInvalid, args[1])
	}
	if err := econ.Deposit(ctx, p.ID, amount); err != nil {
		return "", err
	}
	bal, err := econ.GetBalance(ctx, p.ID)
	if err != nil {
		return "", fmt.Errorf("failed to read balance: %w", err)
	}
	return fmt.Sprintf("Deposited %.2f to %s, balance %.2f", amount, p.Name, bal), nil
}

// resetCooldown clears both the cooldown and the one-time flag.
func (svc *Service) resetCooldown(_ context.Context, _ Sender, args []string) (string, error) {
	if err := svc.need(args, 2, "resetcooldown"); err != nil {
		return "", err
	}
	p, err := svc.player(args[0])
	if err != nil {
		return "", err
	}
	k, err := svc.kit(args[1])
	if err != nil {
		return "", err
	}
	svc.Store.ResetCooldown(p.ID, k.ID)
	svc.Store.ResetOneTime(p.ID, k.ID)
	return fmt.Sprintf("Reset %s for %s", k.ID, p.Name), nil
}

func (svc *Service) list(context.Context, Sender, []string) (string, error) {
	kits := svc.Catalog.All()
	if len(kits) == 0 {
		return "No kits defined", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d kits:", len(kits))
	for _, k := range kits {
		fmt.Fprintf(&b, "\n  %s", describe(k))
	}
	return b.String(), nil
}

func (svc *Service) info(_ context.Context, _ Sender, args []string) (string, error) {
	if err := svc.need(args, 1, "info"); err != nil {
		return "", err
	}
	k, err := svc.kit(args[0])
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n  display: %s\n  items: %d, armor: %d", describe(k), k.DisplayName, len(k.Items), len(k.Armor))
	for _, cmd := range k.Commands {
		fmt.Fprintf(&b, "\n  command: %s", cmd)
	}
	return b.String(), nil
}

func describe(k *models.Kit) string {
	perm := k.Permission
	if perm == "" {
		perm = "public"
	}
	s := fmt.Sprintf("%s [%s] cooldown=%s cost=%.2f", k.ID, perm, timex.FormatCooldown(k.Cooldown), k.Cost)
	if k.OneTime {
		s += " one-time"
	}
	return s
}

func (svc *Service) reload(ctx context.Context, _ Sender, _ []string) (string, error) {
	if err := svc.Catalog.Reload(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("Reloaded %d kits", len(svc.Catalog.All())), nil
}

func (svc *Service) token(_ context.Context, _ Sender, args []string) (string, error) {
	if len(args) == 0 {
		return "", usageError(svc.verbs["token"].usage)
	}
	p, err := svc.Players.Lookup(args[0])
	if err != nil {
		p = models.Player{ID: uuid.New(), Name: args[0]}
	}
	p.Permissions = nil
	p.Op = false
	for _, a := range args[1:] {
		if a == "--op" {
			p.Op = true
			continue
		}
		p.Permissions = append(p.Permissions, a)
	}
	tok, err := svc.Tokens.Issue(p)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return tok, nil
}
