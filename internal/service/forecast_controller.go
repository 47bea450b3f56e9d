package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fakhrymubarak/weather-viewer/internal/model"
	"github.com/fakhrymubarak/weather-viewer/internal/repository"
	"go.uber.org/zap"
)

// ErrControllerClosed is returned by calls made after Close.
var ErrControllerClosed = errors.New("forecast controller closed")

// ForecastSource builds and performs forecast requests.
type ForecastSource interface {
	BuildURL(city string) (string, error)
	Fetch(ctx context.Context, requestURL string) ([]byte, error)
}

// ForecastParser converts a raw envelope into display models.
type ForecastParser interface {
	Parse(raw []byte) ([]model.Forecast, error)
}

// IconSource resolves icons, from cache or network.
type IconSource interface {
	Get(ctx context.Context, iconID string) (*model.Icon, error)
}

// Listener receives notifications. All methods are called from the
// controller's event loop, one at a time.
type Listener interface {
	OnForecastChanged(days []model.Forecast)
	OnFetchFailed(kind repository.ErrorKind, err error)
	OnIconReady(iconID string, icon *model.Icon)
	OnIconFailed(iconID string, kind repository.ErrorKind, err error)
}

// Snapshot is a copy of the controller state.
// Version is the sequence number of the fetch that produced Days, 0 before any.
type Snapshot struct {
	Version uint64           `json:"version"`
	City    string           `json:"city"`
	Days    []model.Forecast `json:"days"`
}

// Option configures a ForecastController.
type Option func(*ForecastController)

// WithWorkers bounds how many fetch and icon tasks run at once.
func WithWorkers(n int) Option {
	return func(c *ForecastController) {
		if n > 0 {
			c.workers = make(chan struct{}, n)
		}
	}
}

// WithLogger replaces the default no-op logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *ForecastController) {
		if l != nil {
			c.log = l
		}
	}
}

// ForecastController owns the displayed forecast. State is only touched by
// the goroutine running Run; network work happens on worker goroutines and
// reports back through the event queue.
type ForecastController struct {
	source   ForecastSource
	parser   ForecastParser
	icons    IconSource
	listener Listener
	log      *zap.SugaredLogger

	events  chan func()
	workers chan struct{}
	done    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	closed  sync.Once

	// issued is the sequence number of the most recent Submit.
	issued atomic.Uint64

	// loop-owned
	version uint64
	city    string
	days    []model.Forecast

	// staleHook is called on the loop when a result is discarded. Tests only.
	staleHook func(seq uint64)
}

// NewForecastController wires the core components. Call Run to start delivering results.
func NewForecastController(source ForecastSource, parser ForecastParser, icons IconSource, listener Listener, opts ...Option) *ForecastController {
	ctx, cancel := context.WithCancel(context.Background())
	c := &ForecastController{
		source:   source,
		parser:   parser,
		icons:    icons,
		listener: listener,
		log:      zap.NewNop().Sugar(),
		events:   make(chan func(), 64),
		workers:  make(chan struct{}, 4),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run processes completions and notifications until ctx is done or Close is called.
func (c *ForecastController) Run(ctx context.Context) {
	for {
		select {
		case fn := <-c.events:
			fn()
		case <-ctx.Done():
			c.Close()
			return
		case <-c.done:
			return
		}
	}
}

// Close stops the event loop and aborts in-flight requests. Safe to call more than once.
func (c *ForecastController) Close() {
	c.closed.Do(func() {
		c.cancel()
		close(c.done)
	})
}

// post queues fn for the event loop. It reports false once the controller is closed.
func (c *ForecastController) post(fn func()) bool {
	select {
	case c.events <- fn:
		return true
	case <-c.done:
		return false
	}
}

// spawn runs fn on a worker once a slot is free.
func (c *ForecastController) spawn(fn func()) {
	go func() {
		select {
		case c.workers <- struct{}{}:
		case <-c.done:
			return
		}
		defer func() { <-c.workers }()
		fn()
	}()
}

// Submit starts fetching the forecast for city and returns its sequence number.
// An invalid city is reported to the listener and returned without touching
// the network or the current forecast.
func (c *ForecastController) Submit(city string) (uint64, error) {
	select {
	case <-c.done:
		return 0, ErrControllerClosed
	default:
	}

	requestURL, err := c.source.BuildURL(city)
	if err != nil {
		c.post(func() { c.listener.OnFetchFailed(repository.KindOf(err), err) })
		return 0, err
	}

	seq := c.issued.Add(1)
	city = strings.TrimSpace(city)
	c.log.Debugw("Forecast fetch scheduled", "city", city, "seq", seq)

	c.spawn(func() {
		raw, err := c.source.Fetch(c.ctx, requestURL)
		var days []model.Forecast
		if err == nil {
			days, err = c.parser.Parse(raw)
		}
		c.post(func() { c.complete(seq, city, days, err) })
	})
	return seq, nil
}

// complete runs on the event loop.
func (c *ForecastController) complete(seq uint64, city string, days []model.Forecast, err error) {
	if latest := c.issued.Load(); seq < latest {
		c.log.Debugw("Discarding stale forecast result", "city", city, "seq", seq, "latest", latest, "error", err)
		if c.staleHook != nil {
			c.staleHook(seq)
		}
		return
	}

	if err != nil {
		kind := repository.KindOf(err)
		c.log.Warnw("Forecast fetch failed", "city", city, "seq", seq, "kind", kind.String(), "error", err)
		c.listener.OnFetchFailed(kind, err)
		return
	}

	c.version = seq
	c.city = city
	c.days = days
	c.log.Infow("Forecast updated", "city", city, "seq", seq, "days", len(days))
	c.listener.OnForecastChanged(copyDays(days))
}

// RequestIcon resolves iconID and reports it through OnIconReady or OnIconFailed.
// It never blocks, so listeners may call it from their callbacks.
func (c *ForecastController) RequestIcon(iconID string) {
	c.spawn(func() {
		icon, err := c.icons.Get(c.ctx, iconID)
		c.post(func() {
			if err != nil {
				c.listener.OnIconFailed(iconID, repository.KindOf(err), err)
				return
			}
			c.listener.OnIconReady(iconID, icon)
		})
	})
}

// Snapshot returns a copy of the current forecast, read on the event loop.
func (c *ForecastController) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	posted := make(chan bool, 1)
	go func() {
		posted <- c.post(func() {
			reply <- Snapshot{Version: c.version, City: c.city, Days: copyDays(c.days)}
		})
	}()

	select {
	case s := <-reply:
		return s, nil
	case ok := <-posted:
		if !ok {
			return Snapshot{}, ErrControllerClosed
		}
		select {
		case s := <-reply:
			return s, nil
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		case <-c.done:
			return Snapshot{}, ErrControllerClosed
		}
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func copyDays(days []model.Forecast) []model.Forecast {
	if days == nil {
		return nil
	}
	out := make([]model.Forecast, len(days))
	copy(out, days)
	return out
}
