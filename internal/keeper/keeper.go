package keeper

import (
	"context"
	"errors"
	"fmt"
	"log"

	"RafflePool/internal/notifier"
	"RafflePool/internal/raffle"

	"github.com/robfig/cron/v3"
)

// Keeper polls the engine's admission gates on a cron schedule and starts a
// draw when they all hold.
type Keeper struct {
	Cron   *cron.Cron
	Engine *raffle.Engine
	Ctx    context.Context
}

// NewKeeper creates a new Keeper.
func NewKeeper(ctx context.Context, engine *raffle.Engine) *Keeper {
	return &Keeper{
		Cron:   cron.New(cron.WithSeconds()),
		Engine: engine,
		Ctx:    ctx,
	}
}

// Register schedules the upkeep poll.
func (k *Keeper) Register(upkeepCron string) error {
	if _, err := k.Cron.AddFunc(upkeepCron, k.tick); err != nil {
		return fmt.Errorf("register upkeep poll: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (k *Keeper) Start() {
	k.Cron.Start()
	log.Println("[INFO] keeper started")
}

// Stop stops the cron scheduler gracefully.
func (k *Keeper) Stop() {
	k.Cron.Stop()
	log.Println("[INFO] keeper stopped")
}

// RunUpkeepNow performs one upkeep poll immediately (manual trigger).
func (k *Keeper) RunUpkeepNow() {
	k.tick()
}

func (k *Keeper) tick() {
	if !k.Engine.CheckUpkeep() {
		return
	}
	requestID, err := k.Engine.PerformUpkeep(k.Ctx)
	if errors.Is(err, raffle.ErrUpkeepNotNeeded) {
		// Lost the race between check and perform; harmless.
		log.Printf("[INFO] upkeep no longer needed: %v", err)
		return
	}
	if err != nil {
		log.Printf("[ERROR] perform upkeep: %v", err)
		return
	}
	log.Printf("[INFO] draw requested, request id %d", requestID)
}

// HandleCommand resolves a chat command into a reply.
func (k *Keeper) HandleCommand(cmd notifier.Command) string {
	switch cmd {
	case notifier.CmdStatus:
		snap := k.Engine.Snapshot()
		return notifier.FormatStatus(&snap, k.Engine.EntryFee(), k.Engine.Interval())
	case notifier.CmdWinner:
		if w := k.Engine.LastWinner(); w != "" {
			return fmt.Sprintf("Last winner: %s", w)
		}
		return "No settled draw yet"
	case notifier.CmdDraw:
		k.RunUpkeepNow()
		return ""
	default:
		return ""
	}
}
