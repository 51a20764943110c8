package main

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-identity"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

//go:embed views
var viewsFS embed.FS

type App struct {
	config *Config
	bunDB  *bun.DB
	repo   identity.RepositoryManager
	auther *identity.Auther
	srv    router.Server[*fiber.App]
	logger *glog.BaseLogger
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("identity"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	app := &App{
		config: LoadConfig(),
		logger: lgr,
	}

	ctx := context.Background()

	if err := WithPersistence(ctx, app); err != nil {
		lgr.Error("persistence setup failed", "error", err)
		os.Exit(1)
	}

	if err := WithHTTPServer(app); err != nil {
		lgr.Error("http setup failed", "error", err)
		os.Exit(1)
	}

	WithIdentity(app)

	app.srv.Serve(app.config.Addr)

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	sqldb, err := sql.Open(sqliteshim.ShimName, app.config.DSN)
	if err != nil {
		return err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if err := Migrate(ctx, db); err != nil {
		return err
	}

	app.bunDB = db
	app.repo = identity.NewRepositoryManager(db)

	return app.repo.Validate()
}

// Migrate applies the embedded schema files in lexical order.
func Migrate(ctx context.Context, db *bun.DB) error {
	migrations, err := identity.MigrationFiles()
	if err != nil {
		return err
	}

	entries, err := fs.Glob(migrations, "*.up.sql")
	if err != nil {
		return err
	}
	sort.Strings(entries)

	for _, name := range entries {
		stmt, err := fs.ReadFile(migrations, name)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, string(stmt)); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "migration failed").
				WithMetadata(map[string]any{"file": name})
		}
	}

	return nil
}

func WithHTTPServer(app *App) error {
	views, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return err
	}

	engine := django.NewFileSystem(http.FS(views), ".html")

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: true,
			StrictRouting:     false,
			PassLocalsToViews: true,
			Views:             engine,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	app.srv = srv
	return nil
}

func WithIdentity(app *App) {
	cfg := app.config

	auther := identity.NewAuthenticator(app.repo, cfg)
	auther.WithLogger(app.GetLogger("identity:auth"))
	app.auther = auther

	tokens := auther.TokenService()
	guard := identity.NewRouteGuard(tokens, cfg)
	guard.Logger = app.GetLogger("identity:guard")

	var mailer identity.Mailer = identity.LoggerMailer{Logger: app.GetLogger("identity:mail")}
	if cfg.SMTPAddr != "" {
		mailer = identity.SMTPMailer{
			Addr: cfg.SMTPAddr,
			From: cfg.SMTPFrom,
		}
	}

	controller := identity.NewController(app.repo, auther, tokens, cfg,
		identity.WithControllerLogger(app.GetLogger("identity:ctrl")),
		identity.WithControllerMailer(mailer),
		identity.WithControllerBaseURL(cfg.BaseURL),
		identity.WithControllerDebug(cfg.Debug),
	)

	identity.RegisterRoutes(app.srv.Router().Group("/"), controller, guard)
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
