package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"RafflePool/internal/bank"
	"RafflePool/internal/config"
	"RafflePool/internal/httpapi"
	"RafflePool/internal/keeper"
	"RafflePool/internal/notifier"
	"RafflePool/internal/oracle"
	"RafflePool/internal/raffle"
	"RafflePool/internal/recorder"
	"RafflePool/internal/statestore"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] RafflePool starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init oracle
	var (
		orc        oracle.Oracle
		bindOracle func(oracle.Fulfiller)
	)
	switch cfg.Oracle.Mode {
	case "beacon":
		bo := oracle.NewBeaconOracle(cfg.Oracle.BeaconURL,
			cfg.Oracle.ConfirmationDelay.Std(), cfg.Oracle.RequestTimeout.Std(), cfg.Oracle.MaxRetries)
		orc, bindOracle = bo, bo.SetFulfiller
	default:
		lo := oracle.NewLocalOracle(cfg.Oracle.ConfirmationDelay.Std())
		orc, bindOracle = lo, lo.SetFulfiller
	}
	log.Printf("[INFO] randomness source: %s", cfg.Oracle.Mode)

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Init Telegram notifier (optional)
	var tn *notifier.TelegramNotifier
	listeners := raffle.Listeners{recorder.ListenerAdapter{R: rec}}
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, cfg.Telegram.MaxRetries)
		listeners = append(listeners, notifier.NewAnnouncer(ctx, tn))
	}

	// Init engine
	engine, err := raffle.NewEngine(statestore.NewFileStore(cfg.Raffle.StateFile),
		cfg.Raffle.EntryFee, cfg.Raffle.Interval.Std(), orc, bank.NewInMemory(), listeners)
	if err != nil {
		log.Fatalf("[FATAL] init raffle engine: %v", err)
	}
	bindOracle(engine)
	if id, ok := engine.PendingRequest(); ok {
		log.Printf("[WARN] resuming in DRAWING (request %d from a previous run); waiting on admin reopen", id)
	}

	// Init keeper
	kp := keeper.NewKeeper(ctx, engine)
	if err := kp.Register(cfg.Keeper.UpkeepCron); err != nil {
		log.Fatalf("[FATAL] register upkeep poll: %v", err)
	}
	kp.Start()
	defer kp.Stop()

	// Start HTTP API
	api := httpapi.NewServer(cfg.Server.ListenAddr, cfg.Server.AdminToken, engine)
	go func() {
		if err := api.Start(); err != nil {
			log.Fatalf("[FATAL] http api: %v", err)
		}
	}()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, kp.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	// Optional: poll upkeep immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, polling upkeep now")
		go kp.RunUpkeepNow()
	}

	log.Println("[INFO] RafflePool is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := api.Shutdown(shutdownCtx); err != nil {
		log.Printf("[ERROR] http api shutdown: %v", err)
	}
	log.Println("[INFO] RafflePool stopped")
}
