package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"driveguide/internal/api"
	"driveguide/pkg/cache"
	"driveguide/pkg/clock"
	"driveguide/pkg/config"
	"driveguide/pkg/core"
	"driveguide/pkg/db"
	"driveguide/pkg/db/maintenance"
	"driveguide/pkg/llm"
	"driveguide/pkg/llm/gemini"
	"driveguide/pkg/location"
	"driveguide/pkg/logging"
	"driveguide/pkg/model"
	"driveguide/pkg/narration"
	"driveguide/pkg/narrator"
	"driveguide/pkg/overpass"
	"driveguide/pkg/poi"
	"driveguide/pkg/position"
	"driveguide/pkg/position/mockroute"
	"driveguide/pkg/probe"
	"driveguide/pkg/request"
	"driveguide/pkg/store"
	"driveguide/pkg/tracker"
	"driveguide/pkg/version"
)

const defaultConfigPath = "configs/driveguide.yaml"

var (
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	configPath = flag.String("config", defaultConfigPath, "Path to the config file")
)

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// .env is optional; GEMINI_API_KEY may also come from the real environment.
	envErr := godotenv.Load()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("DriveGuide Started", "version", version.Version)
	if envErr != nil {
		slog.Debug("No .env file loaded", "error", envErr)
	}

	dbConn, st, err := initDB(appCfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	retention := time.Duration(appCfg.DB.Retention)
	if err := maintenance.Run(ctx, st, dbConn, retention, time.Now()); err != nil {
		slog.Error("Maintenance tasks failed", "error", err)
	}

	clk := clock.Real{}
	settings := config.NewProvider(appCfg, st)
	tr := tracker.New()

	svcs := initCoreServices(appCfg, tr, clk)

	nc := initNarration(appCfg, svcs.ReqClient, tr, clk)
	if nc.Client != nil && nc.Client.Configured() {
		go func() {
			if err := nc.Client.Validate(ctx); err != nil {
				slog.Warn("Gemini model validation failed, continuing", "model", nc.Client.Model(), "error", err)
			}
		}()
	}
	narratorSvc := narrator.NewService(nc.Generator, settings, narrator.Config{
		NarratedExpiry: time.Duration(appCfg.Narrator.NarratedExpiry),
		HistorySize:    appCfg.Narrator.HistorySize,
	}, clk)
	narratorSvc.SetRecorder(st)
	defer narratorSvc.Wait()

	state := core.NewState(clk)
	pipeline := setupPipeline(appCfg, svcs, narratorSvc, settings, state, st, dbConn, clk)
	go pipeline.Run(ctx)
	defer pipeline.Wait()

	// Position sources: pushed fixes are always accepted, the demo drive only
	// when configured.
	push := position.NewPush(clk)
	push.Subscribe(pipeline.Submit)
	defer push.Close()

	var demo api.DemoDriver
	if settings.SimProvider(ctx) == "mock" {
		driver := mockroute.New(mockroute.Config{
			Tick:     time.Duration(appCfg.Sim.Mock.Tick),
			Accuracy: appCfg.Sim.Mock.Accuracy,
		}, clk)
		driver.Subscribe(pipeline.Submit)
		defer driver.Close()
		demo = driver

		if appCfg.Sim.Mock.AutoStart {
			if err := driver.Start(ctx); err != nil {
				slog.Warn("Demo drive failed to start", "error", err)
			}
		}
	}

	// Startup Probes
	var llmCheck probe.Checker
	if nc.Client != nil && narration.HasValidKey(appCfg.LLM.Key) {
		llmCheck = nc.Client
	}
	probes := []probe.Probe{
		probe.For("Gemini", llmCheck),
		probe.For("Overpass", svcs.Overpass),
	}
	results := probe.Run(ctx, probes)
	if err := probe.Report(results); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	origins := api.NewOriginChecker(appCfg.Server.AllowedOrigins)
	hub := api.NewEventHub(state, origins.CheckRequest)
	defer hub.Close()
	state.Subscribe(hub.PublishState)
	narratorSvc.Subscribe(hub.PublishNarration)

	reg := prometheus.NewRegistry()
	reg.MustRegister(tr, collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	h := api.Handlers{
		Location:  api.NewLocationHandler(state, push),
		POIs:      api.NewPOIHandler(state),
		Narrator:  api.NewNarratorHandler(narratorSvc, svcs.PoiMgr, state, nc.Service, st),
		Settings:  api.NewSettingsHandler(settings),
		Demo:      api.NewDemoHandler(ctx, demo),
		Events:    hub,
		Stats:     api.NewStatsHandler(tr, svcs.PoiMgr, nc.Service, svcs.ReqClient, svcs.Hosts),
		Narrate:   api.NewNarrateHandler(nc.Service, clk),
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Origins:   origins,
		StaticDir: appCfg.Server.StaticDir,
	}
	srv := api.NewServer(appCfg.Server.Address, h, cancel)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	err = runServerLifecycle(ctx, srv, quit)
	cancel()
	return err
}

func initDB(appCfg *config.Config) (*db.DB, *store.SQLiteStore, error) {
	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

// CoreServices groups the POI lookup chain.
type CoreServices struct {
	ReqClient *request.Client
	Overpass  *overpass.Client
	PoiMgr    *poi.Manager
	Hosts     []string // providers shown in backoff stats
}

func initCoreServices(cfg *config.Config, tr *tracker.Tracker, clk clock.Clock) *CoreServices {
	reqCfg := request.DefaultConfig()
	reqCfg.Timeout = time.Duration(cfg.Request.Timeout)
	reqCfg.Retries = cfg.Request.Retries
	reqCfg.BaseDelay = time.Duration(cfg.Request.Backoff.BaseDelay)
	reqCfg.MaxDelay = time.Duration(cfg.Request.Backoff.MaxDelay)
	// A mirror that just failed is skipped until its window closes.
	reqCfg.FailFast = true
	reqCfg.Clock = clk
	reqClient := request.New(tr, reqCfg)

	ov := overpass.NewClient(reqClient, cfg.POI.Endpoints, time.Duration(cfg.POI.QueryTimeout), tr)
	spatial := cache.New(time.Duration(cfg.Cache.TTL), cfg.Cache.MaxEntries, clk)
	mgr := poi.NewManager(poi.Config{
		MovementThreshold: float64(cfg.POI.MovementThreshold),
		RateLimit:         time.Duration(cfg.POI.RateLimit),
		RadiusFloor:       float64(cfg.POI.RadiusFloor),
		CellPrecision:     cfg.Cache.Precision,
	}, ov, spatial, clk, tr)

	var hosts []string
	for _, ep := range cfg.POI.Endpoints {
		hosts = append(hosts, request.ProviderName(hostOf(ep)))
	}

	return &CoreServices{ReqClient: reqClient, Overpass: ov, PoiMgr: mgr, Hosts: hosts}
}

func hostOf(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	return u.Host
}

// NarrationComponents holds the text generation chain.
type NarrationComponents struct {
	Client    *gemini.Client     // nil when the client could not be built
	Service   *narration.Service // breaker and fallback, also serves /api/narrate
	Generator narrator.Generator // what the narrator calls
}

func initNarration(cfg *config.Config, reqClient *request.Client, tr *tracker.Tracker, clk clock.Clock) *NarrationComponents {
	nc := &NarrationComponents{}

	var provider llm.Provider
	client, err := gemini.NewClient(cfg.LLM, cfg.Log.Gemini.Path, tr)
	if err != nil {
		slog.Warn("Gemini client unavailable, using fallback narration", "error", err)
	} else {
		nc.Client = client
		provider = client
	}

	nc.Service = narration.NewService(provider, narration.Config{
		Key:       cfg.LLM.Key,
		Threshold: cfg.LLM.Breaker.Threshold,
		Cooldown:  time.Duration(cfg.LLM.Breaker.Cooldown),
		Latency:   time.Duration(cfg.LLM.FallbackLatency),
		Timeout:   time.Duration(cfg.LLM.Timeout),
	}, clk, tr)
	nc.Generator = nc.Service

	if cfg.Narrator.BackendURL != "" {
		slog.Info("Using remote narration backend", "url", cfg.Narrator.BackendURL)
		nc.Generator = narration.NewRemoteClient(reqClient, cfg.Narrator.BackendURL)
	}
	return nc
}

func setupPipeline(cfg *config.Config, svcs *CoreServices, n *narrator.Service, settings config.Provider, state *core.State, st *store.SQLiteStore, dbConn *db.DB, clk clock.Clock) *core.Pipeline {
	proc := location.NewProcessor(location.Config{
		AccuracyThreshold:  float64(cfg.Location.AccuracyThreshold),
		MinHeadingDistance: float64(cfg.Location.MinHeadingDistance),
		HeadingWindow:      cfg.Location.HeadingWindow,
	})
	p := core.NewPipeline(proc, state, core.DefaultBuffer)

	p.AddJob(core.NewPOIJob(svcs.PoiMgr, settings, state))
	p.AddJob(core.NewNarrationJob(n, state))
	p.AddJob(core.NewTimeJob("NarratedCleanup", time.Minute, clk, func(context.Context, model.LocationSample) {
		n.CleanExpired()
	}))

	retention := time.Duration(cfg.DB.Retention)
	p.AddJob(core.NewTimeJob("Maintenance", maintenance.MinInterval, clk, func(ctx context.Context, _ model.LocationSample) {
		if err := maintenance.Run(ctx, st, dbConn, retention, clk.Now()); err != nil {
			slog.Error("Maintenance tasks failed", "error", err)
		}
	}))
	return p
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
