package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"nexo-alert/internal/alert"
	"nexo-alert/internal/chart"
	"nexo-alert/internal/config"
	"nexo-alert/internal/feed"
	"nexo-alert/internal/notify"
	"nexo-alert/internal/price"
	"nexo-alert/internal/social"
	"nexo-alert/internal/state"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	once := flag.Bool("once", false, "Run a single pass and exit")
	flag.Parse()

	// A missing .env is fine; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup Logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	// Init Store
	logger.Info("Opening store", "type", cfg.Store.Type)
	backend, err := state.Open(cfg.Store)
	if err != nil {
		logger.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	// Init Components
	notifiers := buildNotifiers(cfg, logger)
	if len(notifiers) == 0 {
		logger.Error("No notification transport available")
		backend.Close()
		os.Exit(1)
	}
	runner, err := alert.NewRunner(cfg, alert.Deps{
		News:      feed.NewFetcher(cfg.Sources.NewsURL, cfg.NewsFetchLimit, cfg.Sources.Timeout, cfg.Sources.UserAgent),
		Posts:     social.NewScraper(cfg.Sources.SocialURL, cfg.TweetFetchLimit, cfg.Sources.Timeout, cfg.Sources.UserAgent),
		Price:     price.NewClient(cfg.Sources.PriceURL, cfg.Asset.ID, cfg.Sources.Timeout),
		Chart:     chart.NewRenderer(cfg.Asset.Symbol, cfg.Chart.Width, cfg.Chart.Height),
		Notifiers: notifiers,
		Stores:    alert.StoresFrom(backend),
	})
	if err != nil {
		logger.Error("Failed to initialize runner", "error", err)
		os.Exit(1)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle Signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down...")
		cancel()
	}()

	if *once {
		runErr := runner.RunOnce(ctx)
		if cfg.Metrics.Pushgateway != "" {
			if err := push.New(cfg.Metrics.Pushgateway, "nexo_alert").Gatherer(prometheus.DefaultGatherer).Push(); err != nil {
				logger.Error("Failed to push metrics", "error", err)
			}
		}
		if runErr != nil {
			backend.Close()
			os.Exit(1)
		}
		return
	}

	// Metrics Server
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("Starting metrics server", "listen", cfg.Metrics.Listen)
		if err := http.ListenAndServe(cfg.Metrics.Listen, mux); err != nil {
			logger.Error("Metrics server failed", "error", err)
		}
	}()

	logger.Info("Starting Nexo Alert",
		"interval", cfg.Schedule.Interval,
		"cron", cfg.Schedule.Cron,
		"asset", cfg.Asset.ID)

	if cfg.Schedule.Cron != "" {
		if err := runner.RunCron(ctx, cfg.Schedule.Cron); err != nil {
			logger.Error("Failed to start scheduler", "error", err)
			backend.Close()
			os.Exit(1)
		}
	} else {
		runner.Run(ctx, cfg.Schedule.Interval)
	}
	logger.Info("Nexo Alert stopped")
}

// buildNotifiers sets up every enabled transport. One that cannot be set up
// is logged and left out so the others still deliver. Setup does no network
// I/O, so a transport that is down at startup still gets every run.
func buildNotifiers(cfg *config.Config, logger *slog.Logger) []notify.Notifier {
	var notifiers []notify.Notifier

	if cfg.Telegram.Enabled {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, &http.Client{Timeout: cfg.Sources.Timeout})
		if err != nil {
			logger.Error("Failed to initialize telegram", "error", err)
		} else {
			notifiers = append(notifiers, tg)
		}
	}

	if cfg.Email.Enabled {
		email, err := notify.NewEmail(cfg.Email)
		if err != nil {
			logger.Error("Failed to initialize email", "error", err)
		} else {
			notifiers = append(notifiers, email)
		}
	}

	for _, wh := range cfg.Webhooks {
		notifiers = append(notifiers, notify.NewWebhook(wh))
	}

	return notifiers
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
