package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/debrief-io/debrief/internal/command"
	"github.com/debrief-io/debrief/internal/config"
	"github.com/debrief-io/debrief/internal/dedup"
	"github.com/debrief-io/debrief/internal/engine"
	"github.com/debrief-io/debrief/internal/logger"
	"github.com/debrief-io/debrief/internal/metrics"
	"github.com/debrief-io/debrief/internal/notifier"
	"github.com/debrief-io/debrief/internal/notifier/telegram"
	"github.com/debrief-io/debrief/internal/provider/econoday"
	"github.com/debrief-io/debrief/internal/provider/yahoo"
	rules "github.com/debrief-io/debrief/internal/signal"
	"github.com/debrief-io/debrief/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the alert engine and command listener",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		log.Warn("no config file specified, using defaults")
	}

	// Missing credentials are the one unrecoverable startup condition:
	// report and exit cleanly rather than retry-loop.
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// Process-level singleton: refuse to double-start on hot reload.
	release, err := engine.AcquirePidfile(cfg.Engine.PidFile)
	if err != nil {
		return err
	}
	defer release()

	// Config document store
	var docs store.Store
	if cfg.Store.BinID != "" && cfg.Store.MasterKey != "" {
		docs = store.NewJSONBinStore(cfg.Store.BinID, cfg.Store.MasterKey, cfg.Store.BackupPath, log)
	} else {
		log.Warn("no remote bin configured, settings will not survive restarts")
		docs = store.NewMemoryStore(nil)
	}

	// Dedup store, restored from the persisted document
	ded := dedup.New(dedup.Config{
		PriceTriggerPct: cfg.Rules.PriceTriggerPct,
		PriceRearmPct:   cfg.Rules.PriceRearmPct,
		RSIOverbought:   cfg.Rules.RSIOverbought,
		RSIOversold:     cfg.Rules.RSIOversold,
		RSINeutralHigh:  cfg.Rules.RSINeutralHigh,
		RSINeutralLow:   cfg.Rules.RSINeutralLow,
	})
	startCtx, cancelStart := context.WithTimeout(context.Background(), 10*time.Second)
	if doc, err := docs.Load(startCtx); err == nil {
		ded.Restore(doc)
	} else {
		log.Warn("starting with empty dedup state", zap.Error(err))
	}
	cancelStart()

	// Providers
	yf := yahoo.New()
	calendar := econoday.New(cfg.Calendar.FeedURL, cfg.Calendar.Country)

	// Telegram: one bot session shared by notifier and listener
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return fmt.Errorf("connecting to telegram: %w", err)
	}
	log.Info("telegram connected", zap.String("bot", api.Self.UserName))

	notifiers := notifier.NewRegistry()
	if err := notifiers.Register(telegram.NewWithSender(api, cfg.Telegram.ChatID)); err != nil {
		return err
	}

	reg := metrics.NewRegistry()

	eval := rules.NewEvaluator(rules.Thresholds{
		RSIPeriod:   cfg.Rules.RSIPeriod,
		VolumeRatio: cfg.Rules.VolumeRatio,
		MAFast:      cfg.Rules.MAFast,
		MASlow:      cfg.Rules.MASlow,
		BollPeriod:  cfg.Rules.BollPeriod,
		BollWidth:   cfg.Rules.BollWidth,
	})

	eng := engine.New(engine.Config{
		Interval:    cfg.Engine.Interval,
		Workers:     cfg.Engine.Workers,
		NewsLimit:   cfg.Rules.NewsLimit,
		BriefingDay: time.Weekday(cfg.Briefing.Weekday),
		WeeklyHour:  cfg.Briefing.WeeklyHour,
		DailyHour:   cfg.Briefing.DailyHour,
	}, docs, ded, eval, engine.Providers{
		Quotes:   yf,
		History:  yf,
		News:     yf,
		Calendar: calendar,
	}, notifiers, reg, log)

	processor := command.New(docs, yf, yf, yf, calendar, ded, reg, log)
	listener := command.NewListener(api, cfg.Telegram.ChatID, processor, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics listener
	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 2)
	go func() { errCh <- eng.Run(ctx) }()
	go func() { errCh <- listener.Run(ctx) }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("runtime failure", zap.Error(err))
		}
	}

	cancel()
	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		metricsSrv.Shutdown(shutdownCtx)
	}
	return nil
}
