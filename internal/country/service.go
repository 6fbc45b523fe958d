package country

import (
	"context"
	"fmt"
	"time"

	"github.com/SlpAus/country-cache-backend/internal/platform/logging"
	"github.com/SlpAus/country-cache-backend/internal/platform/metadata"
	"github.com/SlpAus/country-cache-backend/internal/platform/metrics"
	"github.com/SlpAus/country-cache-backend/internal/summary"
	"github.com/SlpAus/country-cache-backend/internal/upstream"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CountrySource 提供国家目录
type CountrySource interface {
	FetchCountries(ctx context.Context) ([]upstream.RawCountry, error)
}

// RateSource 提供以USD为基准的汇率表
type RateSource interface {
	FetchRates(ctx context.Context) (map[string]float64, error)
}

// SummaryRenderer 生成摘要图片
type SummaryRenderer interface {
	Render(s summary.Summary) error
}

// Readiness 报告数据库表结构是否已初始化
type Readiness interface {
	State() (bool, error)
}

// Service 编排刷新流程和查询操作
type Service struct {
	repo      *Repository
	cache     *Cache
	countries CountrySource
	rates     RateSource
	deriver   *Deriver
	renderer  SummaryRenderer
	ready     Readiness
	now       func() time.Time
}

type ServiceDeps struct {
	Repo      *Repository
	Cache     *Cache
	Countries CountrySource
	Rates     RateSource
	Deriver   *Deriver
	Renderer  SummaryRenderer
	Ready     Readiness
}

func NewService(deps ServiceDeps) *Service {
	deriver := deps.Deriver
	if deriver == nil {
		deriver = NewDeriver(nil)
	}
	return &Service{
		repo:      deps.Repo,
		cache:     deps.Cache,
		countries: deps.Countries,
		rates:     deps.Rates,
		deriver:   deriver,
		renderer:  deps.Renderer,
		ready:     deps.Ready,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// checkReady 在数据库尚未就绪时返回 ErrDatabaseNotReady，失败原因会一并包装
func (s *Service) checkReady() error {
	if s.ready == nil {
		return nil
	}
	ready, err := s.ready.State()
	if ready {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseInitFailed, err)
	}
	return ErrDatabaseNotReady
}

// Refresh 拉取两个上游、计算GDP、写入数据库，然后更新缓存和摘要图片。
// 任一上游失败时数据库不会被修改。摘要图片生成失败不影响刷新结果。
func (s *Service) Refresh(ctx context.Context) (*RefreshResult, error) {
	if err := s.checkReady(); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.refresh(ctx)
	metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RefreshTotal.WithLabelValues("failure").Inc()
		return nil, err
	}
	metrics.RefreshTotal.WithLabelValues("success").Inc()
	return result, nil
}

func (s *Service) refresh(ctx context.Context) (*RefreshResult, error) {
	batchID := newBatchID()
	log := logging.With().Str("refresh_id", batchID).Logger()

	raws, err := s.countries.FetchCountries(ctx)
	if err != nil {
		return nil, err
	}
	rates, err := s.rates.FetchRates(ctx)
	if err != nil {
		return nil, err
	}

	ts := s.now()
	records := s.deriver.Derive(raws, rates)
	stored, err := s.repo.Upsert(ctx, records, ts)
	if err != nil {
		return nil, err
	}
	log.Info().Int("received", len(raws)).Int("stored", stored).Msg("国家数据刷新完成")

	if err := s.repo.RecordRefresh(ctx, metadata.RefreshRecord{ID: batchID, At: ts, Processed: len(raws)}); err != nil {
		log.Warn().Err(err).Msg("保存刷新元数据失败")
	}

	s.cache.Refresh(ctx)

	all, err := s.repo.All(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("读取全部记录失败，跳过摘要图片生成")
	} else {
		metrics.CountriesStored.Set(float64(len(all)))
		s.renderSummary(log, all, ts)
	}

	return &RefreshResult{
		ID:              batchID,
		Message:         "Countries refreshed successfully",
		LastRefreshedAt: ts,
		Processed:       len(raws),
	}, nil
}

func (s *Service) renderSummary(log zerolog.Logger, records []Country, ts time.Time) {
	if s.renderer == nil {
		return
	}
	entries := make([]summary.Entry, len(records))
	for i, rec := range records {
		entries[i] = summary.Entry{Name: rec.Name, EstimatedGDP: rec.EstimatedGDP}
	}
	if err := s.renderer.Render(summary.BuildSummary(entries, ts)); err != nil {
		metrics.SummaryRenderFailures.Inc()
		log.Warn().Err(err).Msg("摘要图片生成失败")
	}
}

func newBatchID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// List 返回符合条件的记录
func (s *Service) List(ctx context.Context, f Filter) ([]Country, error) {
	if err := s.checkReady(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, f)
}

// Get 按名称查询，优先使用缓存
func (s *Service) Get(ctx context.Context, name string) (*Country, error) {
	if err := s.checkReady(); err != nil {
		return nil, err
	}
	if rec, ok := s.cache.Get(ctx, name); ok {
		return rec, nil
	}
	return s.repo.GetByName(ctx, name)
}

// Delete 按名称删除记录，不存在时返回 ErrNotFound
func (s *Service) Delete(ctx context.Context, name string) error {
	if err := s.checkReady(); err != nil {
		return err
	}
	n, err := s.repo.DeleteByName(ctx, name)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	s.cache.Remove(ctx, name)
	metrics.CountriesStored.Sub(float64(n))
	return nil
}

// Status 返回总数和最近刷新时间
func (s *Service) Status(ctx context.Context) (Status, error) {
	if err := s.checkReady(); err != nil {
		return Status{}, err
	}
	return s.repo.Status(ctx)
}

// WarmCache 供健康检查器在Redis恢复后重建缓存
func (s *Service) WarmCache(ctx context.Context) error {
	if err := s.checkReady(); err != nil {
		return err
	}
	return s.cache.Warmup(ctx)
}
