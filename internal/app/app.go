package app

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/fakhrymubarak/weather-viewer/internal/cache"
	"github.com/fakhrymubarak/weather-viewer/internal/config"
	"github.com/fakhrymubarak/weather-viewer/internal/handler"
	"github.com/fakhrymubarak/weather-viewer/internal/middleware"
	"github.com/fakhrymubarak/weather-viewer/internal/redis"
	"github.com/fakhrymubarak/weather-viewer/internal/repository"
	"github.com/fakhrymubarak/weather-viewer/internal/service"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// ErrFetchFailed is returned by RunOnce when the forecast could not be shown.
var ErrFetchFailed = errors.New("forecast fetch failed")

// Options overrides the defaults read from config. Zero values mean "from config".
type Options struct {
	Client     *repository.ClientConfig
	Icon       *repository.IconConfig
	Store      cache.IconStore
	HTTPClient *http.Client
	Logger     *zap.SugaredLogger
}

// App wires the forecast components together.
type App struct {
	Controller *service.ForecastController
	Presenter  *handler.Presenter
	Icons      *repository.IconCache
	Limiter    *middleware.RateLimiter
	Handler    *handler.ForecastHandler

	log *zap.SugaredLogger
}

// New builds an App. Call Start before submitting.
func New(ctx context.Context, opts Options) (*App, error) {
	log := opts.Logger
	if log == nil {
		log = config.GetLogger()
	}

	var clientCfg repository.ClientConfig
	if opts.Client != nil {
		clientCfg = *opts.Client
	} else {
		cfg, err := repository.ClientConfigFromEnv()
		if err != nil {
			return nil, err
		}
		clientCfg = cfg
	}
	if clientCfg.APIKey == "" {
		log.Warnw("OPENWEATHERMAP_API_KEY is not set, requests will likely be rejected")
	}

	iconCfg := repository.IconConfigFromEnv()
	if opts.Icon != nil {
		iconCfg = *opts.Icon
	}

	store := opts.Store
	if store == nil {
		store = newIconStore(ctx, log)
	}

	client := repository.NewForecastClient(clientCfg, opts.HTTPClient)
	parser := repository.NewForecastParser(clientCfg.Units)
	icons := repository.NewIconCache(store, iconCfg, opts.HTTPClient)
	presenter := handler.NewPresenter()
	controller := service.NewForecastController(client, parser, icons, presenter,
		service.WithWorkers(config.GetControllerWorkers()),
		service.WithLogger(log),
	)
	presenter.Attach(controller)

	return &App{
		Controller: controller,
		Presenter:  presenter,
		Icons:      icons,
		Limiter:    middleware.NewRateLimiter(middleware.CityParam),
		Handler:    handler.NewForecastHandler(controller, presenter, icons),
		log:        log,
	}, nil
}

// newIconStore picks the configured backend. An unreachable redis falls back to memory.
func newIconStore(ctx context.Context, log *zap.SugaredLogger) cache.IconStore {
	switch backend := config.GetIconCacheBackend(); backend {
	case "redis":
		if err := redis.Ping(ctx); err != nil {
			log.Warnw("Redis unavailable, caching icons in memory", "addr", config.GetRedisAddr(), "error", err)
			return cache.NewMemoryStore()
		}
		log.Infow("Caching icons in redis", "addr", config.GetRedisAddr())
		return cache.NewRedisStore()
	case "memory":
		return cache.NewMemoryStore()
	default:
		log.Warnw("Unknown icon cache backend, using memory", "backend", backend)
		return cache.NewMemoryStore()
	}
}

// Start runs the controller loop and rate limiter cleanup until ctx is done.
func (a *App) Start(ctx context.Context) {
	go a.Controller.Run(ctx)
	a.Limiter.StartCleanup(ctx)
}

// Close stops the controller.
func (a *App) Close() {
	a.Controller.Close()
}

// Router returns the HTTP API with the standard middleware stack.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(a.log))
	r.Use(chimw.Recoverer)
	r.Mount("/", a.Handler.Routes(a.Limiter.Handler))
	return r
}

// RunOnce submits city, waits until the forecast and its icons have settled,
// and writes the rendered rows to w.
func (a *App) RunOnce(ctx context.Context, city string, w io.Writer) error {
	seq, err := a.Controller.Submit(city)
	if err != nil {
		msg := handler.FailureMessage(repository.KindOf(err), err)
		_ = handler.RenderText(w, nil, &msg)
		return errors.Join(ErrFetchFailed, err)
	}

	for {
		snap, err := a.Controller.Snapshot(ctx)
		if err != nil {
			return err
		}
		// read after the snapshot so a completed fetch has already marked its icons
		status := a.Presenter.Status()
		if status.LastError != nil {
			_ = handler.RenderText(w, nil, status.LastError)
			return ErrFetchFailed
		}
		if snap.Version >= seq && status.PendingIcons == 0 {
			return handler.RenderText(w, a.Presenter.Rows(snap.Days), nil)
		}

		select {
		case <-a.Presenter.Updates():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
