package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/SlpAus/country-cache-backend/api"
	"github.com/SlpAus/country-cache-backend/internal/country"
	"github.com/SlpAus/country-cache-backend/internal/platform/config"
	"github.com/SlpAus/country-cache-backend/internal/platform/database"
	"github.com/SlpAus/country-cache-backend/internal/platform/health"
	"github.com/SlpAus/country-cache-backend/internal/platform/logging"
	"github.com/SlpAus/country-cache-backend/internal/platform/shutdown"
	"github.com/SlpAus/country-cache-backend/internal/platform/startup"
	"github.com/SlpAus/country-cache-backend/internal/summary"
	"github.com/SlpAus/country-cache-backend/internal/upstream"
	"github.com/SlpAus/country-cache-backend/pkg/lifecycle"
	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 加载配置并初始化日志
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("无法加载配置")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	// 2. 连接数据库和Redis（Redis是可选的）
	db, err := database.Open(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("数据库连接失败，无法启动")
	}
	rdb := database.NewRedis(context.Background(), cfg.Database.Redis)

	gracefulMgr := lifecycle.NewManager("graceful")
	forcefulMgr := lifecycle.NewManager("forceful")
	coordinator := shutdown.NewCoordinator(gracefulMgr, forcefulMgr)
	coordinator.OnClose("database", func() error { return database.Close(db) })
	if rdb != nil {
		coordinator.OnClose("redis", rdb.Close)
	}

	// 3. 在后台初始化表结构，期间数据接口返回503
	ready := database.NewReadiness()
	go func() {
		if err := startup.InitializeDatabase(context.Background(), db, ready); err != nil {
			logging.Error().Err(err).Msg("数据库初始化失败")
		}
	}()

	// 4. 组装服务
	renderer, err := summary.NewRenderer(cfg.Summary.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("无法初始化摘要图片渲染器")
	}

	repo := country.NewRepository(db)
	var monitor *health.Monitor
	var cache *country.Cache
	var svc *country.Service
	if rdb != nil {
		// 健康检查器在Redis恢复后通过service重建缓存，因此先声明再赋值
		monitor = health.NewMonitor(rdb, func(ctx context.Context) error { return svc.WarmCache(ctx) })
		cache = country.NewCache(rdb, repo, monitor)
	}
	svc = country.NewService(country.ServiceDeps{
		Repo:      repo,
		Cache:     cache,
		Countries: upstream.NewCountriesClient(cfg.Upstream.CountriesURL, cfg.Upstream.Timeout),
		Rates:     upstream.NewRatesClient(cfg.Upstream.RatesURL, cfg.Upstream.Timeout),
		Renderer:  renderer,
		Ready:     ready,
	})

	limiter := api.NewRateLimiter(cfg.Server.RefreshRateLimit.PerMinute, cfg.Server.RefreshRateLimit.Burst)

	// 5. 启动后台服务
	if monitor != nil {
		if err := gracefulMgr.Go("redis-health", monitor.Run); err != nil {
			logging.Fatal().Err(err).Msg("无法启动Redis健康检查器")
		}
	}
	if limiter != nil {
		if err := gracefulMgr.Go("rate-limit-cleanup", limiter.RunCleanup); err != nil {
			logging.Fatal().Err(err).Msg("无法启动限流清理任务")
		}
	}
	if cfg.Refresh.Schedule != "" {
		startScheduler(svc, cfg.Refresh.Schedule, gracefulMgr, forcefulMgr)
	}

	// 6. 配置HTTP服务
	gin.SetMode(cfg.Server.Mode)
	r, err := api.NewEngine(api.EngineConfig{
		AllowedOrigins: cfg.Server.Cors.AllowedOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("无法创建HTTP服务")
	}

	api.SetupRoutes(r, api.Handlers{
		Countries:      country.NewHandler(svc),
		Summary:        summary.NewHandler(renderer),
		Health:         api.NewHealthHandler(db, ready, monitor),
		RefreshLimiter: limiter,
	})

	server := &http.Server{
		Addr:              cfg.Server.ListenAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logging.Info().Str("address", server.Addr).Msg("服务器已准备就绪，开始监听")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// 7. 阻塞直到收到停机信号
	coordinator.ListenForSignalsAndShutdown(server, serveErr)
}

// startScheduler 注册定时刷新。调度由优雅句柄控制，进行中的刷新由强制句柄控制。
func startScheduler(svc *country.Service, expr string, gracefulMgr, forcefulMgr *lifecycle.Manager) {
	scheduler, err := country.NewRefreshScheduler(svc, expr)
	if err != nil {
		logging.Fatal().Err(err).Msg("无法启动定时刷新")
	}
	handle, err := gracefulMgr.NewServiceHandle("refresh-scheduler")
	if err != nil {
		logging.Fatal().Err(err).Msg("无法启动定时刷新")
	}
	force, err := forcefulMgr.NewServiceHandle("refresh-scheduler")
	if err != nil {
		logging.Fatal().Err(err).Msg("无法启动定时刷新")
	}
	go scheduler.Run(handle, force)
}
