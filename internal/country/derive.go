package country

import (
	"math/rand/v2"
	"strings"

	"github.com/SlpAus/country-cache-backend/internal/upstream"
)

// --- GDP 估算常量 ---
const (
	gdpMultiplierMin  = 1000.0
	gdpMultiplierSpan = 1000.0
)

// RandomSource 提供 [0,1) 区间的随机数，*rand.Rand 满足这个接口。
// 实现必须可以被多个Goroutine同时调用。
type RandomSource interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// Deriver 把上游原始数据转换为可存储的记录
type Deriver struct {
	rng RandomSource
}

// NewDeriver 创建转换器。rng为nil时使用包级别的随机数生成器。
func NewDeriver(rng RandomSource) *Deriver {
	if rng == nil {
		rng = globalSource{}
	}
	return &Deriver{rng: rng}
}

// EstimatedGDP 计算 population × m ÷ rate，m 在 [1000, 2000) 之间每次重新抽取。
// 人口未知时结果未知；汇率未知时结果为0；汇率为0时结果未知。
func (d *Deriver) EstimatedGDP(population *int64, rate *float64) *float64 {
	if population == nil {
		return nil
	}
	if rate == nil {
		zero := 0.0
		return &zero
	}
	if *rate == 0 {
		return nil
	}
	m := gdpMultiplierMin + gdpMultiplierSpan*d.rng.Float64()
	gdp := float64(*population) * m / *rate
	return &gdp
}

// ExtractCurrencyCode 返回第一个货币的代码，没有货币或代码为空时返回nil
func ExtractCurrencyCode(raw upstream.RawCountry) *string {
	if len(raw.Currencies) == 0 {
		return nil
	}
	code := strings.TrimSpace(raw.Currencies[0].Code)
	if code == "" {
		return nil
	}
	return &code
}

// Derive 将原始国家数据与汇率表合并为记录。没有名称的条目会被跳过。
func (d *Deriver) Derive(raws []upstream.RawCountry, rates map[string]float64) []Country {
	records := make([]Country, 0, len(raws))
	for _, raw := range raws {
		name := strings.TrimSpace(raw.Name)
		if name == "" {
			continue
		}

		record := Country{
			Name:    name,
			Capital: raw.Capital,
			Region:  raw.Region,
			FlagURL: raw.Flag,
		}
		if raw.Population != nil {
			record.Population = *raw.Population
		}

		code := ExtractCurrencyCode(raw)
		if code != nil {
			record.CurrencyCode = code
			// 有货币代码但没有汇率时，汇率和GDP都保持为空
			if rate, ok := rates[*code]; ok {
				record.ExchangeRate = &rate
				record.EstimatedGDP = d.EstimatedGDP(raw.Population, &rate)
			}
		} else {
			zero := 0.0
			record.EstimatedGDP = &zero
		}

		records = append(records, record)
	}
	return records
}
