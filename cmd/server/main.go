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

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/catalog"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/config"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/database"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/logger"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/matching"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/middleware"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/profile"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/queue"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/router"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/service"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	pflag.StringVar(&cfg.RoomsFile, "rooms", cfg.RoomsFile, "YAML room catalog")
	pflag.StringVar(&cfg.ProfilesFile, "profiles", cfg.ProfilesFile, "YAML participant profiles (memory and redis backends)")
	pflag.StringVar(&cfg.Backend, "store", cfg.Backend, "shared store backend: memory, redis or mysql")
	pflag.StringVar(&cfg.Port, "port", cfg.Port, "HTTP port")
	pflag.Parse()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	rooms, err := catalog.Load(cfg.RoomsFile)
	if err != nil {
		return err
	}

	// Optional: rate limiting and the catalog cache degrade to no-ops
	// without Redis.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unreachable; rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	st, profiles, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	var pub service.Publisher = service.NopPublisher{}
	if cfg.Events {
		pub = service.NewAMQPPublisher(cfg.AMQPURL, log)
	}

	svc := service.New(service.Deps{
		Store:     st,
		Catalog:   rooms,
		Profiles:  profiles,
		Publisher: pub,
		Logger:    log,
		Evaluator: matching.New(cfg.AgeGap),
	}, service.Config{HoldTTL: cfg.HoldTTL, MaxHoldTTL: cfg.HoldTTLMax, RequestTTL: cfg.RequestTTL})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	router.RegisterRoutes(e, st)
	router.RegisterAPI(e, router.Deps{
		Svc:       svc,
		Store:     st,
		JWTSecret: cfg.JWTSecret,
		Redis:     rdb,
		RateLimit: cfg.RateLimit,
		Cache:     cfg.Cache,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.Info("listening", "addr", addr, "env", cfg.Env, "store", cfg.Backend, "rooms", rooms.Len())
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	if cfg.Events {
		consumer := queue.NewConsumer(cfg.AMQPURL, cfg.LogDir, log)
		g.Go(func() error {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// openStore builds the shared store named by cfg.Backend together with the
// profile provider that goes with it: MySQL serves both from one database,
// the other backends read profiles from cfg.ProfilesFile.
func openStore(ctx context.Context, cfg config.Config, log *logger.Logger) (store.Store, profile.Provider, error) {
	switch cfg.Backend {
	case config.BackendMySQL:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql: %w", err)
		}
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store.NewSQL(db, cfg.StorePoll), profile.NewRepo(db), nil
	}

	profiles, err := profile.LoadFile(cfg.ProfilesFile)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Backend == config.BackendRedis {
		// The store owns its client and closes it, so it gets its own.
		client := redis.NewClient(config.RedisOptions())
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis store: %w", err)
		}
		st, err := store.NewRedis(client, "roommate:")
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return st, profiles, nil
	}
	log.Warn("using the in-memory store; state is lost on restart and not shared between instances")
	return store.NewMemory(), profiles, nil
}
