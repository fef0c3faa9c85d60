package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hydroaid/hydroaid-backend/config"
	httpapi "github.com/hydroaid/hydroaid-backend/internal/api/http"
	"github.com/hydroaid/hydroaid-backend/internal/auth"
	"github.com/hydroaid/hydroaid-backend/internal/bootstrap"
	"github.com/hydroaid/hydroaid-backend/internal/metrics"
	realtimehttp "github.com/hydroaid/hydroaid-backend/internal/realtime/http"
	"github.com/hydroaid/hydroaid-backend/internal/realtime/hub"
	"github.com/hydroaid/hydroaid-backend/internal/realtime/ticker"
	"github.com/hydroaid/hydroaid-backend/internal/records/repository"
	"github.com/hydroaid/hydroaid-backend/internal/records/service"
	statsvc "github.com/hydroaid/hydroaid-backend/internal/stats/service"
	"golang.org/x/time/rate"
)

const serviceName = "hydroaid-backend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore := openStore(ctx, cfg)
	defer closeStore()

	registry := hub.NewRegistry()
	var publisher hub.Publisher = registry
	var realtimePinger httpapi.Pinger

	if cfg.Realtime.Backend == config.BackendRedis {
		client, err := bootstrap.OpenRedis(ctx, bootstrap.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer client.Close()

		bus := hub.NewRedisBus(client, registry)
		if err := bus.Start(ctx); err != nil {
			log.Fatalf("redis bus: %v", err)
		}
		publisher = bus
		realtimePinger = bus
		log.Printf("[info] operation=startup realtime backend=redis addr=%s", cfg.Redis.Addr)
	}

	var verifier auth.TokenVerifier
	if cfg.Auth.FirebaseCredentialsPath != "" {
		client, err := auth.InitializeFirebase(ctx, cfg.Auth.FirebaseCredentialsPath)
		if err != nil {
			log.Fatalf("firebase: %v", err)
		}
		verifier = auth.NewFirebaseVerifier(client)
	} else {
		log.Println("[warn] operation=startup FIREBASE_CREDENTIALS_PATH not set, trusting X-User-* headers")
	}

	broadcaster := hub.NewBroadcaster(publisher, cfg.Store.QueryTimeout)
	engine := statsvc.NewEngine(store, cfg.Store.QueryTimeout)
	coordinator := service.NewCoordinator(store, broadcaster, cfg.Store.QueryTimeout)
	gateway := realtimehttp.NewGateway(registry, broadcaster, realtimehttp.Options{
		Buffer:     cfg.Realtime.EventBuffer,
		KeepAlive:  cfg.Realtime.KeepAlive,
		ActionRate: rate.Limit(cfg.Realtime.ActionRate),
		Burst:      cfg.Realtime.ActionBurst,
	})

	if spec := cfg.Realtime.StatsTickSpec; spec != "" {
		scheduler := ticker.NewScheduler(engine, broadcaster, cfg.Store.QueryTimeout)
		if err := scheduler.Start(spec); err != nil {
			log.Fatalf("stats ticker: %v", err)
		}
		defer scheduler.Stop()
	}

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: serviceName,
		Version:     cfg.App.Version,
		CORSOrigins: cfg.Server.CORSOrigins,
		Store:       store,
		Realtime:    realtimePinger,
		Engine:      engine,
		Coordinator: coordinator,
		Gateway:     gateway,
		Verifier:    verifier,
		Policy:      auth.NewPolicy(cfg.Auth.PrivilegedIdentities),
	})

	// No write timeout: event streams stay open indefinitely. They end when
	// the base context is cancelled on shutdown.
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Printf("[info] operation=startup %s %s listening on :%s", serviceName, cfg.App.Version, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[info] operation=shutdown draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[error] operation=shutdown error=%v", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, func()) {
	if cfg.Store.Driver == config.DriverMemory {
		log.Println("[warn] operation=startup STORE_DRIVER=memory, records are not persisted")
		return repository.NewMemoryStore(), func() {}
	}

	pool, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{
		DSN:      cfg.Database.ConnString(),
		MaxConns: int32(cfg.Database.MaxConns),
		MinConns: int32(cfg.Database.MinConns),
	})
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := repository.Migrate(ctx, pool); err != nil {
		pool.Close()
		log.Fatalf("migrate: %v", err)
	}
	return repository.NewPostgresStore(pool), pool.Close
}
