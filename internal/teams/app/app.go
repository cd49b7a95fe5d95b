package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OpenConext/OpenConext-teams/internal/teams/grouper"
	httpapi "github.com/OpenConext/OpenConext-teams/internal/teams/http"
	"github.com/OpenConext/OpenConext-teams/internal/teams/mail"
	"github.com/OpenConext/OpenConext-teams/internal/teams/service"
	"github.com/OpenConext/OpenConext-teams/internal/teams/store"
	"github.com/OpenConext/OpenConext-teams/internal/teams/store/drivers/sqlite"
	"github.com/OpenConext/OpenConext-teams/pkg/csrfx"
	"github.com/OpenConext/OpenConext-teams/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the teams service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db      store.Store
	grouper grouper.Client
	mailer  mail.Mailer
	csrf    *csrfx.Registry

	// Services
	teamService         *service.TeamService
	invitationService   *service.InvitationService
	joinRequestService  *service.JoinRequestService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "teams-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initGrouper(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initMailer()
	app.csrf = csrfx.NewRegistry(cfg.CSRFTokenTTL)

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("teams service starting",
		"port", app.cfg.Port, "stem", app.cfg.Stem, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down teams service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("teams service stopped")
	return nil
}

func validate(cfg Config) error {
	if cfg.Stem == "" {
		return errors.New("TEAMS_STEM is required")
	}
	if cfg.PowerUser == "" {
		return errors.New("TEAMS_POWER_USER is required")
	}
	if cfg.GrouperURL == "" {
		return errors.New("GROUPER_URL is required")
	}
	if cfg.SessionSecret == "" {
		return errors.New("TEAMS_SESSION_SECRET is required")
	}
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initGrouper() error {
	client, err := grouper.NewWSClient(
		app.cfg.GrouperURL,
		app.cfg.GrouperUser,
		app.cfg.GrouperPassword,
		app.cfg.GrouperTimeout,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize grouper client: %w", err)
	}
	app.grouper = client
	return nil
}

func (app *Application) initMailer() {
	if app.cfg.SMTPHost == "" {
		app.logger.Warn("SMTP_HOST not set, mail will be logged instead of delivered")
		app.mailer = &mail.LogMailer{Logger: app.logger}
		return
	}

	app.mailer = mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     app.cfg.SMTPHost,
		Port:     app.cfg.SMTPPort,
		Username: app.cfg.SMTPUser,
		Password: app.cfg.SMTPPassword,
		From:     app.cfg.MailFrom,
		FromName: app.cfg.MailFromName,
		BaseURL:  app.cfg.BaseURL,
	})
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.teamService = &service.TeamService{
		Grouper:   app.grouper,
		Store:     app.db,
		Stem:      app.cfg.Stem,
		PowerUser: app.cfg.PowerUser,
		GuestOrgs: app.cfg.GuestOrgs,
	}

	app.invitationService = &service.InvitationService{
		Store:          app.db,
		Teams:          app.teamService,
		Mailer:         app.mailer,
		MaxInvitations: app.cfg.MaxInvitations,
		InvitationTTL:  app.cfg.InvitationTTL,
	}

	app.joinRequestService = &service.JoinRequestService{
		Store:  app.db,
		Teams:  app.teamService,
		Mailer: app.mailer,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.InvitationTTL,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		[]byte(app.cfg.SessionSecret),
		BuildVersion,
		app.db,
		app.csrf,
		app.logger,
	)

	router.TeamService = app.teamService
	router.InvitationService = app.invitationService
	router.JoinRequestService = app.joinRequestService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
