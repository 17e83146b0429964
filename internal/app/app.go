// Package app wires the storefront client state layer into one long-lived
// object that a front end (the CLI, a TUI, a web view) drives.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/coffee-storefront/internal/api"
	"github.com/example/coffee-storefront/internal/auth"
	"github.com/example/coffee-storefront/internal/config"
	"github.com/example/coffee-storefront/internal/counts"
	"github.com/example/coffee-storefront/internal/domain/cart"
	"github.com/example/coffee-storefront/internal/domain/membership"
	"github.com/example/coffee-storefront/internal/events"
	"github.com/example/coffee-storefront/internal/infrastructure/kafka"
	"github.com/example/coffee-storefront/internal/infrastructure/storage"
	"github.com/example/coffee-storefront/internal/notify"
	"github.com/example/coffee-storefront/internal/pricing"
	"github.com/example/coffee-storefront/internal/shop"
)

type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Storage  storage.Storage
	Session  *auth.Session
	DeviceID string
	Client   *api.Client
	Bus      *events.Bus
	Notifier notify.Notifier

	Cart     *cart.Service
	Wishlist *membership.Service
	Compare  *membership.Service
	Shop     *shop.Controller
	Currency *pricing.Converter
	Counter  *counts.Counter

	file *storage.File
	db   *sql.DB
}

// Open builds the storage driver named by cfg and wires the app on top of it.
// Toasts are written to out.
func Open(ctx context.Context, cfg *config.Config, out io.Writer, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		store storage.Storage
		file  *storage.File
		db    *sql.DB
	)
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		store = storage.NewMemory()
	case config.DriverFile:
		f, err := storage.NewFile(cfg.Storage.Dir, cfg.Storage.Origin)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		store, file = f, f
	case config.DriverPostgres:
		conn, err := storage.ConnectPostgres(cfg.Storage.PostgresURL)
		if err != nil {
			return nil, err
		}
		pg, err := storage.NewPostgres(ctx, conn, cfg.Storage.Origin)
		if err != nil {
			conn.Close()
			return nil, err
		}
		store, db = pg, conn
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", config.ErrInvalidConfig, cfg.Storage.Driver)
	}

	a, err := New(cfg, store, notify.NewService(out, logger), logger)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}
	a.file = file
	a.db = db
	logger.Debug("storefront ready",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("api", cfg.API.BaseURL),
		zap.String("device_id", a.DeviceID))
	return a, nil
}

// New wires the app on an existing storage.
func New(cfg *config.Config, store storage.Storage, notifier notify.Notifier, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.Discard
	}

	session, err := auth.NewSession(store)
	if err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	deviceID, err := loadDeviceID(store)
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.API.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	client := api.NewClient(cfg.API.BaseURL,
		api.WithTimeout(timeout),
		api.WithEndpoints(cfg.API.Endpoints),
		api.WithTokenSource(session),
		api.WithDeviceID(deviceID),
		api.WithLogger(logger),
	)
	bus := events.NewBus()

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Storage:  store,
		Session:  session,
		DeviceID: deviceID,
		Client:   client,
		Bus:      bus,
		Notifier: notifier,
		Currency: pricing.NewConverter(store),
	}
	a.Cart = cart.NewService(session, cart.NewLocalStore(store), cart.NewRemoteStore(client), bus, notifier, logger)
	a.Wishlist = newList(membership.Wishlist, a)
	a.Compare = newList(membership.Compare, a)
	a.Shop = shop.NewController(shop.NewAPICatalog(client), notifier, logger)
	a.Counter = counts.NewCounter(bus, a.Cart, a.Wishlist, a.Compare, logger)
	return a, nil
}

func newList(kind membership.Kind, a *App) *membership.Service {
	return membership.NewService(kind, a.Session,
		membership.NewLocalStore(kind, a.Storage),
		membership.NewRemoteStore(kind, a.Client),
		a.Bus, a.Notifier, a.Logger)
}

// loadDeviceID returns the persisted device id, creating one on first run.
func loadDeviceID(store storage.Storage) (string, error) {
	id, ok, err := store.GetItem(storage.KeyDeviceID)
	if err != nil {
		return "", fmt.Errorf("failed to read device id: %w", err)
	}
	if ok && id != "" {
		return id, nil
	}
	id = uuid.New().String()
	if err := store.SetItem(storage.KeyDeviceID, id); err != nil {
		return "", fmt.Errorf("failed to store device id: %w", err)
	}
	return id, nil
}

// Login signs in and keeps the token. The guest cart is left untouched;
// MergeGuestCart moves it explicitly.
func (a *App) Login(ctx context.Context, email, password string) (api.User, error) {
	res, err := a.Client.Login(ctx, email, password)
	if err != nil {
		notify.Failure(a.Notifier, err)
		return api.User{}, err
	}
	if err := a.Session.Login(res.Token); err != nil {
		a.Notifier.Error(err.Error())
		return api.User{}, err
	}
	a.Logger.Info("logged in", zap.String("user_id", res.User.ID))
	return res.User, nil
}

func (a *App) Logout() error {
	if err := a.Session.Logout(); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	a.Logger.Info("logged out")
	return nil
}

// RefreshRates fetches exchange rates and caches them in storage.
func (a *App) RefreshRates(ctx context.Context) (map[string]float64, error) {
	rates, err := a.Client.ExchangeRates(ctx)
	if err != nil {
		a.Logger.Warn("failed to fetch exchange rates", zap.Error(err))
		return nil, err
	}
	if err := a.Currency.SetRates(rates); err != nil {
		return nil, err
	}
	return rates, nil
}

// Watch keeps badge counts live until ctx ends. Changes to the file storage
// made by other processes arrive as storage events; with Kafka configured,
// bus events are also exchanged with other devices.
func (a *App) Watch(ctx context.Context, onChange func(counts.Counts)) error {
	if onChange != nil {
		a.Counter.OnChange(onChange)
	}
	if err := a.Counter.Start(ctx); err != nil {
		a.Logger.Warn("initial counts incomplete", zap.Error(err))
	}
	defer a.Counter.Stop()

	if a.file != nil {
		w, err := storage.NewWatcher(a.file, a.storageChanged, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to watch storage: %w", err)
		}
		if err := w.Start(ctx); err != nil {
			w.Stop()
			return fmt.Errorf("failed to watch storage: %w", err)
		}
		defer w.Stop()
	}

	if !a.Config.KafkaEnabled() {
		<-ctx.Done()
		return nil
	}
	return a.fanOut(ctx)
}

// storageChanged runs for every change another process makes to storage.
func (a *App) storageChanged(ch storage.Change) {
	if ch.Key == storage.KeyAuthToken {
		if err := a.Session.Reload(); err != nil {
			a.Logger.Warn("failed to reload session", zap.Error(err))
		}
	}
	events.Publish(a.Bus, events.StorageChanged, ch)
}

func (a *App) fanOut(ctx context.Context) error {
	brokers, topic := a.Config.Kafka.Brokers, a.Config.Kafka.Topic

	producer := kafka.NewProducer(brokers, topic)
	defer producer.Close()
	forwarder := kafka.NewForwarder(a.Bus, producer, a.DeviceID, a.Logger)
	forwarder.Start(ctx)
	defer forwarder.Stop()

	consumer := kafka.NewConsumer(brokers, topic, "storefront-"+a.DeviceID, a.Logger)
	relay := kafka.NewRelay(a.Bus, a.DeviceID, forwarder, a.Logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return relay.Run(gctx, consumer)
	})
	g.Go(func() error {
		<-gctx.Done()
		return consumer.Close()
	})
	a.Logger.Info("event fan-out started", zap.Strings("brokers", brokers), zap.String("topic", topic))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close releases the storage driver.
func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
