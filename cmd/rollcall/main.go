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

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/Kerhoff/rollcall/internal/api"
	"github.com/Kerhoff/rollcall/internal/auth"
	"github.com/Kerhoff/rollcall/internal/config"
	"github.com/Kerhoff/rollcall/internal/handlers"
	"github.com/Kerhoff/rollcall/internal/metrics"
	"github.com/Kerhoff/rollcall/internal/repository/memory"
	"github.com/Kerhoff/rollcall/internal/repository/postgres"
	"github.com/Kerhoff/rollcall/internal/service"
	"github.com/Kerhoff/rollcall/internal/telegram"
	"github.com/Kerhoff/rollcall/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "rollcall",
		Usage: "Propose dates, collect who is in, and confirm when enough people are.",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Error("rollcall failed")
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web board, the Telegram bot and the reminder scheduler.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "memory", Usage: "Keep all data in memory instead of PostgreSQL (lost on exit)."},
			&cli.BoolFlag{Name: "migrate", Value: true, Usage: "Apply pending migrations before serving."},
		},
		Action: func(c *cli.Context) error {
			load := config.Load
			if c.Bool("memory") {
				load = config.LoadWithoutDatabase
			}
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return serve(c.Context, cfg, c.Bool("memory"), c.Bool("migrate"))
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply or roll back database migrations.",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations.",
				Action: func(c *cli.Context) error {
					return withDatabase(c.Context, func(db *config.Database, cfg *config.Config) error {
						return db.Migrate(cfg.MigrationsPath)
					})
				},
			},
			{
				Name:  "down",
				Usage: "Roll back the most recent migrations.",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "steps", Value: 1, Usage: "Number of migrations to roll back."},
				},
				Action: func(c *cli.Context) error {
					return withDatabase(c.Context, func(db *config.Database, cfg *config.Config) error {
						return db.MigrateDown(cfg.MigrationsPath, c.Int("steps"))
					})
				},
			},
		},
	}
}

func withDatabase(ctx context.Context, fn func(*config.Database, *config.Config) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	l := logger.New(cfg.LogLevel, cfg.LogFormat)

	db, err := config.NewDatabase(ctx, cfg.DatabaseURL, l)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	return fn(db, cfg)
}

func serve(parent context.Context, cfg *config.Config, inMemory, runMigrations bool) error {
	l := logger.New(cfg.LogLevel, cfg.LogFormat)
	l.Info("Starting rollcall...")

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := metrics.New()

	tokens, err := auth.NewTokenIssuer(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return err
	}

	deps := service.Deps{
		Logger:   l,
		Tokens:   tokens,
		Recorder: m,
		Location: cfg.Location,
		BaseURL:  cfg.BaseURL,
	}

	// Repositories
	if inMemory {
		l.Warn("Using the in-memory store; data is lost on exit")
		store := memory.New()
		deps.Users = store.Users()
		deps.Rooms = store.Rooms()
		deps.Candidates = store.Candidates()
		deps.Responses = store.Responses()
		deps.Guests = store.Guests()
		deps.Events = store.Events()
		deps.Procedures = store.Procedures()
	} else {
		db, err := config.NewDatabase(ctx, cfg.DatabaseURL, l)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if runMigrations {
			if err := db.Migrate(cfg.MigrationsPath); err != nil {
				return err
			}
		}

		deps.Users = postgres.NewUserRepository(db.DB)
		deps.Rooms = postgres.NewRoomRepository(db.DB)
		deps.Candidates = postgres.NewCandidateRepository(db.DB)
		deps.Responses = postgres.NewResponseRepository(db.DB)
		deps.Guests = postgres.NewGuestRepository(db.DB)
		deps.Events = postgres.NewEventRepository(db.DB)
		deps.Procedures = postgres.NewProcedures(db.DB)
	}

	if cfg.SMTP.Enabled() {
		deps.Mailer = service.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	}

	// Telegram bot
	var bot *telegram.Bot
	if cfg.TelegramToken != "" {
		bot, err = telegram.NewBot(cfg.TelegramToken, l)
		if err != nil {
			return fmt.Errorf("failed to create Telegram bot: %w", err)
		}
		bot.OnSend(m.MessageSent)
		deps.Announcer = bot
	} else {
		l.Info("TELEGRAM_TOKEN not set; announcements and reminders are disabled")
	}

	// Service layer
	svc := service.New(deps)

	if bot != nil {
		bot.RegisterCommand("start", handlers.NewStartHandler(l))
		bot.RegisterCommand("help", handlers.NewHelpHandler(l))
		bot.RegisterCommand("link", handlers.NewLinkHandler(svc, l))
		bot.RegisterCommand("board", handlers.NewBoardHandler(svc, l))

		go func() {
			if err := bot.Start(ctx); err != nil {
				l.WithError(err).Error("Bot error")
			}
		}()
	}

	// Start reminder scheduler
	go svc.StartReminderScheduler(ctx, cfg.ReminderInterval, cfg.ReminderLead)

	// HTTP servers
	apiServer, err := api.NewServer(svc, l, api.Options{
		CookieTTL:     cfg.SessionTTL,
		SecureCookies: cfg.SecureCookies(),
		Observer:      m,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", m.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.PrometheusPort,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	for _, srv := range []*http.Server{httpServer, metricsServer} {
		go func(srv *http.Server) {
			l.Infof("HTTP server listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				l.WithError(err).Error("HTTP server error")
				cancel()
			}
		}(srv)
	}

	l.Info("rollcall started successfully")

	<-ctx.Done()

	l.Info("Shutting down HTTP servers...")
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	for _, srv := range []*http.Server{httpServer, metricsServer} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.WithError(err).Warn("HTTP server shutdown")
		}
	}

	l.Info("rollcall stopped")
	return nil
}
