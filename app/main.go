package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"shelfwatch/app/adapter"
	"shelfwatch/app/api"
	"shelfwatch/app/cfg"
	"shelfwatch/app/digest"
	"shelfwatch/app/notify"
	"shelfwatch/app/product"
	"shelfwatch/app/run"
	"shelfwatch/app/source"
	"shelfwatch/app/store"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if c == nil {
		// Help was shown, exit gracefully
		return
	}

	if c.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	slog.Info("Starting shelfwatch", "version", c.Version)

	db, err := store.NewConnection(c.DatabasePath)
	if err != nil {
		slog.Error("Failed to open database", "path", c.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := store.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "migration_version", version, "dirty", dirty)

	rowStore := store.NewRowStore(db, c.WriteOnChangeOnly)
	stateStore := store.WithRetry(rowStore, c.RetryCount, time.Second)

	configCache := source.NewConfigCache(c.SourcesDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load source configurations", "dir", c.SourcesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Source configurations loaded", "count", configCache.GetConfigCount())

	registered := 0
	for _, src := range configCache.GetConfigs() {
		if err := rowStore.UpsertSource(src); err != nil {
			slog.Warn("Failed to register source", "item", src.ItemID, "error", err)
			continue
		}
		registered++
	}
	slog.Info("Sources registered", "count", registered)

	fetcher := adapter.NewFetcher(adapter.FetcherOptions{
		UserAgent:  c.UserAgent,
		Timeout:    time.Duration(c.RequestTimeout) * time.Second,
		RetryCount: c.RetryCount,
	})

	registry := adapter.NewRegistry()
	registry.Register(adapter.NewAmazon(fetcher))
	registry.Register(adapter.NewEbay(fetcher))
	registry.Register(adapter.NewBooksToScrape(fetcher))
	registry.Register(adapter.NewGeneric(fetcher))

	minDelta, err := decimal.NewFromString(c.PriceDeltaMin)
	if err != nil {
		slog.Error("Invalid PRICE_DELTA_MIN", "value", c.PriceDeltaMin, "error", err)
		os.Exit(1)
	}
	detector := product.NewDetector(minDelta)

	liveChannels, digestChannels, err := buildChannels(c)
	if err != nil {
		slog.Error("Failed to initialize notification channels", "error", err)
		os.Exit(1)
	}
	slog.Info("Notification channels ready", "live", len(liveChannels), "digest", len(digestChannels))

	dispatcher := notify.NewDispatcher(
		time.Duration(c.NotifyCooldownMinutes)*time.Minute, c.RetryCount, time.Second, nil)

	digestSchedule, err := digest.NewScheduler(c.DailyDigestTime, nil)
	if err != nil {
		slog.Error("Failed to create digest scheduler", "error", err)
		os.Exit(1)
	}
	accumulator := digest.NewAccumulator(time.Now())

	runner := run.NewRunner(registry, detector, stateStore, dispatcher,
		liveChannels, digestChannels, accumulator, digestSchedule, run.Options{
			WorkerCount: c.WorkerCount,
			RunTimeout:  time.Duration(c.RunTimeout) * time.Second,
		})

	slog.Info("Starting scheduler", "workers", c.WorkerCount, "interval", c.SchedulerInterval)
	scheduler := run.NewScheduler(runner, configCache, time.Duration(c.SchedulerInterval)*time.Second)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(rowStore, db, registry, runner)
	server := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         ":" + c.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", c.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("HTTP server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}

func buildChannels(c *cfg.Cfg) ([]notify.Channel, []notify.Channel, error) {
	var live, daily []notify.Channel

	if c.TelegramBotToken != "" {
		telegram, err := notify.NewTelegramChannel(c.TelegramBotToken, c.TelegramChatID)
		if err != nil {
			return nil, nil, err
		}
		live = append(live, telegram)
		if c.DigestNotifyTelegram {
			daily = append(daily, telegram)
		}
	}

	if c.NotifyEmail || c.DigestNotifyEmail {
		email, err := notify.NewEmailChannel(c.SMTPHost, c.SMTPPort, c.SMTPUser, c.SMTPPassword, c.SMTPFrom, c.SMTPTo)
		if err != nil {
			return nil, nil, err
		}
		if c.NotifyEmail {
			live = append(live, email)
		}
		if c.DigestNotifyEmail {
			daily = append(daily, email)
		}
	}

	return live, daily, nil
}
