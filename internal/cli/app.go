package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aalvaropc/doclane/internal/buildinfo"
	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/eventbus"
	"github.com/aalvaropc/doclane/internal/infra/backend"
	"github.com/aalvaropc/doclane/internal/infra/config"
	"github.com/aalvaropc/doclane/internal/infra/dispatch"
	"github.com/aalvaropc/doclane/internal/infra/httpclient"
	"github.com/aalvaropc/doclane/internal/infra/logger"
	"github.com/aalvaropc/doclane/internal/infra/tokenstore"
	"github.com/aalvaropc/doclane/internal/poller"
	"github.com/aalvaropc/doclane/internal/ports"
	"github.com/aalvaropc/doclane/internal/session"
	"github.com/aalvaropc/doclane/internal/usecase/extract"
)

// globalOpts are the persistent flags shared by every command.
type globalOpts struct {
	debug  bool
	config string
	apiURL string
	format string
}

// app is the wired client stack for one command invocation.
type app struct {
	cfg     domain.Config
	cfgPath string
	log     *slog.Logger

	bus     *eventbus.Bus
	session *session.Store
	api     *backend.Client
	polls   *poller.Group

	closers []func() error
}

// openApp resolves configuration, sets up file logging, restores the session and
// builds the service facades. Close must be called when the command is done.
func openApp(ctx context.Context, g *globalOpts, nav ports.Navigator) (*app, error) {
	res, err := resolveConfig(g)
	if err != nil {
		return nil, err
	}
	cfg := res.Config

	a := &app{
		cfg:     cfg,
		cfgPath: res.Path,
		bus:     eventbus.New(),
		polls:   &poller.Group{},
	}

	logDir := ""
	if home, err := os.UserHomeDir(); err == nil {
		logDir = config.HomeDir(home)
	}
	if cleanup, err := logger.Setup(logger.Config{Dir: logDir, Debug: g.debug}); err == nil && cleanup != nil {
		a.closers = append(a.closers, cleanup)
	}
	a.log = logger.L().With("component", "cli")

	storage, closeStorage, err := tokenstore.Open(cfg.Session)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeStorage)

	store, err := session.Open(ctx, storage,
		session.WithTTL(cfg.Session.TTL),
		session.WithLogger(logger.L()),
		session.WithNavigator(nav),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	store.OnSessionEnd(func(reason string) {
		a.bus.Publish(eventbus.TopicSessionEnded, reason)
	})
	a.bus.Subscribe(eventbus.TopicSessionEnded, func(eventbus.Event) {
		a.polls.StopAll()
	})
	a.session = store

	d := dispatch.New(cfg.API.BaseURL, store,
		dispatch.WithClient(httpclient.New(httpclient.FromAPIConfig(cfg.API))),
		dispatch.WithLogger(logger.L()),
		dispatch.WithUserAgent(buildinfo.UserAgent()),
	)
	a.api = backend.New(d, backend.WithFieldExtractor(extract.New(cfg.Results.Fields)))

	a.log.Debug("cli.app.ready",
		"config", res.Path,
		"base_url", cfg.API.BaseURL,
		"storage", string(cfg.Session.Storage),
	)
	return a, nil
}

// Close releases storage connections and flushes the log file, last opened first.
func (a *app) Close() error {
	a.polls.StopAll()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// resolveConfig honours --config, then the upward search from the working directory.
// --api-url wins over both and over DOCLANE_API_URL.
func resolveConfig(g *globalOpts) (config.Resolved, error) {
	var res config.Resolved

	if p := strings.TrimSpace(g.config); p != "" {
		abs, err := filepath.Abs(p)
		if err != nil {
			return res, fmt.Errorf("invalid config path: %w", err)
		}
		cfg, err := config.Load(abs)
		if err != nil {
			return res, err
		}
		if v := strings.TrimSpace(os.Getenv(config.EnvAPIURL)); v != "" {
			cfg.API.BaseURL = strings.TrimRight(v, "/")
		}
		res = config.Resolved{Config: cfg, Path: abs}
	} else {
		wd, err := os.Getwd()
		if err != nil {
			wd = "."
		}
		res, err = config.NewResolver().Resolve(wd)
		if err != nil {
			return res, err
		}
	}

	if v := strings.TrimSpace(g.apiURL); v != "" {
		res.Config.API.BaseURL = strings.TrimRight(v, "/")
	}
	return res, nil
}

// loginPrompt is the CLI navigator: a session that ends mid-command points the user at
// the login command once.
type loginPrompt struct {
	once sync.Once
	w    io.Writer
}

func (p *loginPrompt) ToLogin(reason string) {
	p.once.Do(func() {
		if p.w == nil {
			return
		}
		fmt.Fprintf(p.w, "Session ended (%s). Run `doclane login` to sign in again.\n", reason)
	})
}
