package upstream

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

const SourceRates = "exchange-rates"

type ratesResponse struct {
	BaseCode string              `json:"base_code"`
	Rates    map[string]*float64 `json:"rates"`
}

// RatesClient 获取以USD为基准的汇率表
type RatesClient struct {
	c *client
}

func NewRatesClient(url string, timeout time.Duration) *RatesClient {
	return &RatesClient{c: newClient(SourceRates, url, timeout)}
}

// FetchRates 返回 货币代码 -> 汇率 的映射。响应中没有 rates 字段时返回空映射，
// 值为 null 的货币视为没有汇率。
func (rc *RatesClient) FetchRates(ctx context.Context) (map[string]float64, error) {
	body, err := rc.c.get(ctx)
	if err != nil {
		return nil, err
	}
	return decodeRates(SourceRates, body)
}

func decodeRates(source string, body []byte) (map[string]float64, error) {
	var resp ratesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %s: 无法解析响应: %w", ErrUnavailable, source, err)
	}
	rates := make(map[string]float64, len(resp.Rates))
	for code, rate := range resp.Rates {
		if rate != nil {
			rates[code] = *rate
		}
	}
	return rates, nil
}
