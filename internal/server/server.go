package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/gymunity/feed/config"
	"github.com/gymunity/feed/internal/embedding"
	"github.com/gymunity/feed/internal/recommend"
	"github.com/gymunity/feed/internal/runtime"
	"github.com/gymunity/feed/internal/store"
	"github.com/gymunity/feed/internal/vector"
	"github.com/gymunity/feed/provider"
)

func authMiddleware(secret []byte) echo.MiddlewareFunc {
	return runtime.EchoAuthMiddleware(secret)
}

// Run wires the whole service and blocks serving HTTP.
func Run(cfg *appconfig.Config, addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie", "Authorization"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()

	dsn, err := runtime.BuildPostgresDSN(cfg)
	if err != nil {
		return err
	}
	_ = Migrate("file://migrations", dsn, "up", 0)

	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return err
	}

	secret, err := runtime.LoadJWTSecret(cfg)
	if err != nil {
		return err
	}

	idx := vector.New(cfg.Vector, st, nil)

	// The embedder is optional: without an API key the vector pool and the
	// embedding job sit idle and the SQL pools carry the feed.
	var emb *embedding.Embedder
	prov, provErr := provider.NewProvider(provider.OpenAI, cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Timeout)
	if provErr != nil {
		log.Printf("embedding provider unavailable: %v", provErr)
	} else {
		emb = embedding.NewEmbedder(prov, cfg.Embedding.Model)
	}

	engine := recommend.NewEngine(st, idx, emb, cfg.Recommend, cfg.General.Language, cfg.Vector.Timeout, nil)

	api := e.Group("/api")
	auth := &AuthHandler{Store: st, Secret: secret}
	auth.Register(api.Group("/auth"))

	fh := &FeedHandler{Engine: engine}
	fh.Register(api.Group("/feed"), secret)

	eh := &EventsHandler{Store: st}
	eh.Register(api.Group("/events"), secret)

	ph := &PrefsHandler{Store: st}
	ph.Register(api.Group("/preferences"), secret)

	ah := &ArticlesHandler{Store: st}
	ah.Register(api.Group("/articles"), secret)

	rdb := redis.NewClient(&redis.Options{
		Addr:     runtime.BuildRedisAddr(cfg),
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed (%s): %w", runtime.BuildRedisAddr(cfg), err)
	}

	if emb != nil {
		sched := &Scheduler{
			Indexer:   embedding.NewIndexer(st, idx, emb, nil),
			Rdb:       rdb,
			Schedule:  cfg.Embedding.Schedule,
			BatchSize: cfg.Embedding.BatchSize,
			Stop:      make(chan struct{}),
		}
		sched.Start()
	}

	if addr == "" {
		addr = cfg.General.Listen
		if addr != "" && addr[0] != ':' {
			addr = ":" + addr
		}
		if addr == "" {
			addr = ":10002"
		}
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
