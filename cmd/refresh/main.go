package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/SlpAus/country-cache-backend/internal/country"
	"github.com/SlpAus/country-cache-backend/internal/platform/config"
	"github.com/SlpAus/country-cache-backend/internal/platform/database"
	"github.com/SlpAus/country-cache-backend/internal/platform/logging"
	"github.com/SlpAus/country-cache-backend/internal/platform/startup"
	"github.com/SlpAus/country-cache-backend/internal/summary"
	"github.com/SlpAus/country-cache-backend/internal/upstream"
)

const taskTimeout = 5 * time.Minute

func main() {
	task := flag.String("task", "refresh", "要执行的任务: 'refresh' (拉取并写入数据库) 或 'clear' (清空国家数据)")
	countriesFile := flag.String("countries", "", "从本地JSON文件读取国家目录，而不是请求接口")
	ratesFile := flag.String("rates", "", "从本地JSON文件读取汇率表，而不是请求接口")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("无法加载配置")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
	defer cancel()

	db, err := database.Open(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("数据库连接失败")
	}
	defer database.Close(db)

	ready := database.NewReadiness()
	if err := startup.InitializeDatabase(ctx, db, ready); err != nil {
		logging.Fatal().Err(err).Msg("数据库初始化失败")
	}

	repo := country.NewRepository(db)
	rdb := database.NewRedis(ctx, cfg.Database.Redis)
	if rdb != nil {
		defer rdb.Close()
	}
	// 命令行工具没有健康检查器，直接写缓存
	cache := country.NewCache(rdb, repo, nil)

	switch *task {
	case "refresh":
		runRefresh(ctx, cfg, repo, cache, ready, *countriesFile, *ratesFile)
	case "clear":
		n, err := repo.DeleteAll(ctx)
		if err != nil {
			logging.Fatal().Err(err).Msg("清空数据失败")
		}
		cache.Refresh(ctx)
		logging.Info().Int64("deleted", n).Msg("国家数据已清空")
	default:
		logging.Error().Str("task", *task).Msg("未知的任务，可用任务: 'refresh', 'clear'")
		os.Exit(1)
	}
}

func runRefresh(ctx context.Context, cfg *config.Config, repo *country.Repository, cache *country.Cache,
	ready *database.Readiness, countriesFile, ratesFile string) {
	var countries country.CountrySource = upstream.NewCountriesClient(cfg.Upstream.CountriesURL, cfg.Upstream.Timeout)
	if countriesFile != "" {
		countries = upstream.FileCountries{Path: countriesFile}
	}
	var rates country.RateSource = upstream.NewRatesClient(cfg.Upstream.RatesURL, cfg.Upstream.Timeout)
	if ratesFile != "" {
		rates = upstream.FileRates{Path: ratesFile}
	}

	renderer, err := summary.NewRenderer(cfg.Summary.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("无法初始化摘要图片渲染器")
	}

	svc := country.NewService(country.ServiceDeps{
		Repo:      repo,
		Cache:     cache,
		Countries: countries,
		Rates:     rates,
		Renderer:  renderer,
		Ready:     ready,
	})

	result, err := svc.Refresh(ctx)
	if err != nil {
		logging.Fatal().Err(err).Msg("刷新失败")
	}
	logging.Info().
		Str("refresh_id", result.ID).
		Int("processed", result.Processed).
		Time("last_refreshed_at", result.LastRefreshedAt).
		Str("summary", renderer.Path()).
		Msg("刷新完成")
}
