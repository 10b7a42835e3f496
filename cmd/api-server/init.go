package main

import (
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/libertypfc/Hockeybot-sub000/db"
	"github.com/libertypfc/Hockeybot-sub000/internals/auth"
	"github.com/libertypfc/Hockeybot-sub000/internals/cache"
	"github.com/libertypfc/Hockeybot-sub000/internals/capledger"
	"github.com/libertypfc/Hockeybot-sub000/internals/contracts"
	"github.com/libertypfc/Hockeybot-sub000/internals/env"
	"github.com/libertypfc/Hockeybot-sub000/internals/exemption"
	"github.com/libertypfc/Hockeybot-sub000/internals/feed"
	"github.com/libertypfc/Hockeybot-sub000/internals/leaderboard"
	"github.com/libertypfc/Hockeybot-sub000/internals/league"
	"github.com/libertypfc/Hockeybot-sub000/internals/metrics"
	"github.com/libertypfc/Hockeybot-sub000/internals/profile"
	"github.com/libertypfc/Hockeybot-sub000/internals/roster"
	"github.com/libertypfc/Hockeybot-sub000/internals/scheduler"
	"github.com/libertypfc/Hockeybot-sub000/internals/selection"
	"github.com/libertypfc/Hockeybot-sub000/internals/store"
	"github.com/libertypfc/Hockeybot-sub000/internals/store/gormstore"
	"github.com/libertypfc/Hockeybot-sub000/internals/store/memstore"
	"github.com/libertypfc/Hockeybot-sub000/internals/trade"
	"github.com/libertypfc/Hockeybot-sub000/internals/waivers"
	"github.com/libertypfc/Hockeybot-sub000/pkg/conf"
	"github.com/libertypfc/Hockeybot-sub000/pkg/kvstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
)

type App struct {
	R       *chi.Mux
	KVStore kvstore.KVStore
	Env     *env.Env
	Metrics *prometheus.Registry

	Auth        *auth.AuthService
	League      *league.LeagueService
	Contracts   *contracts.ContractService
	Trade       *trade.TradeService
	Waivers     *waivers.WaiverService
	Exemption   *exemption.ExemptionService
	Ledger      *capledger.LedgerService
	Roster      *roster.RosterService
	Profile     *profile.ProfileService
	Leaderboard *leaderboard.Leaderboard
	Cache       *cache.CacheService
	Selection   *selection.SelectionService
	Scheduler   *scheduler.Scheduler

	WS       map[*websocket.Conn]string
	ClientsM sync.Mutex
	events   chan feed.Event
}

func newApp(cfg conf.Config) (*App, error) {
	st, err := initStore(cfg.Postgres)
	if err != nil {
		return nil, err
	}
	kv, err := kvstore.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	return buildApp(cfg, st, kv), nil
}

func initStore(cfg conf.Postgres) (store.Store, error) {
	if cfg.Driver == "memory" {
		return memstore.New(), nil
	}
	gdb, err := db.Open(cfg.DSN)
	if err != nil {
		return nil, err
	}
	return gormstore.New(gdb), nil
}

// buildApp wires the engine services and routes over st and kv.
func buildApp(cfg conf.Config, st store.Store, kv kvstore.KVStore) *App {
	reg := prometheus.NewRegistry()
	bus := feed.New()
	e := env.New(st, bus, metrics.New(reg), cfg.Engine)

	app := &App{
		R:       chi.NewRouter(),
		KVStore: kv,
		Env:     e,
		Metrics: reg,
		WS:      make(map[*websocket.Conn]string),
		events:  make(chan feed.Event, 256),
	}
	app.Auth = auth.New(kv, cfg.Auth.Secret, cfg.Auth.TokenTTL)
	app.League = league.New(e)
	app.Contracts = contracts.New(e)
	app.Trade = trade.New(e)
	app.Waivers = waivers.New(e)
	app.Exemption = exemption.New(e)
	app.Ledger = capledger.New(e)
	app.Roster = roster.New(e)
	app.Profile = profile.New(e)
	app.Leaderboard = leaderboard.New(e)
	app.Cache = cache.New(kv, app.Roster)
	app.Selection = selection.New(kv, cfg.Engine.SelectionTimeout)
	app.Scheduler = scheduler.New(cfg.Scheduler.Interval,
		scheduler.EngineJobs(app.Waivers, app.Contracts, app.Trade, app.Ledger)...)

	app.Cache.Attach(bus)
	bus.Subscribe(app.enqueue)

	app.R.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)
	app.initHandlers()
	return app
}
