package upstream

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

const SourceCountries = "restcountries"

// Currency 是国家数据中的单个货币描述
type Currency struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// RawCountry 是国家目录接口返回的原始记录，缺失字段保持为nil
type RawCountry struct {
	Name       string     `json:"name"`
	Capital    *string    `json:"capital"`
	Region     *string    `json:"region"`
	Population *int64     `json:"population"`
	Flag       *string    `json:"flag"`
	Currencies []Currency `json:"currencies"`
}

// CountriesClient 获取国家目录
type CountriesClient struct {
	c *client
}

func NewCountriesClient(url string, timeout time.Duration) *CountriesClient {
	return &CountriesClient{c: newClient(SourceCountries, url, timeout)}
}

// FetchCountries 返回全部国家记录。空数组返回 ErrEmptyPayload。
func (cc *CountriesClient) FetchCountries(ctx context.Context) ([]RawCountry, error) {
	body, err := cc.c.get(ctx)
	if err != nil {
		return nil, err
	}
	return decodeCountries(SourceCountries, body)
}

func decodeCountries(source string, body []byte) ([]RawCountry, error) {
	var countries []RawCountry
	if err := json.Unmarshal(body, &countries); err != nil {
		return nil, fmt.Errorf("%w: %s: 无法解析响应: %w", ErrUnavailable, source, err)
	}
	if len(countries) == 0 {
		return nil, fmt.Errorf("%w: %s returned no countries", ErrEmptyPayload, source)
	}
	return countries, nil
}
