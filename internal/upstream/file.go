package upstream

import (
	"context"
	"fmt"
	"os"
)

// FileCountries 从本地JSON文件读取国家目录，格式与国家目录接口的响应相同。
// 用于离线初始化数据库。
type FileCountries struct {
	Path string
}

func (f FileCountries) FetchCountries(ctx context.Context) ([]RawCountry, error) {
	body, err := readFile(ctx, f.Path)
	if err != nil {
		return nil, err
	}
	return decodeCountries(f.Path, body)
}

// FileRates 从本地JSON文件读取汇率表，格式与汇率接口的响应相同
type FileRates struct {
	Path string
}

func (f FileRates) FetchRates(ctx context.Context) (map[string]float64, error) {
	body, err := readFile(ctx, f.Path)
	if err != nil {
		return nil, err
	}
	return decodeRates(f.Path, body)
}

func readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, path, err)
	}
	return body, nil
}
