package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ErrBlobStatus 对象存储返回了非预期状态码
var ErrBlobStatus = errors.New("unexpected blob store status")

// CoinStore 金币账本的外部持久化，只在启动与优雅退出时调用
type CoinStore interface {
	// Load 读取全部余额；对象不存在时返回空表而不是错误
	Load(ctx context.Context) (map[string]int, error)
	Save(ctx context.Context, balances map[string]int) error
}

// NewCoinStore url 为空时返回不做持久化的实现
func NewCoinStore(url string) CoinStore {
	if url == "" {
		return nopCoinStore{}
	}
	return NewHTTPCoinStore(url, &http.Client{Timeout: 10 * time.Second})
}

type nopCoinStore struct{}

func (nopCoinStore) Load(context.Context) (map[string]int, error) {
	Log.Info("no coins bucket URL configured, starting with empty map")
	return map[string]int{}, nil
}

func (nopCoinStore) Save(context.Context, map[string]int) error { return nil }

// HTTPCoinStore 以 GET/PUT 读写对象存储中的一个 JSON 对象
type HTTPCoinStore struct {
	url        string
	client     *http.Client
	maxTries   uint
	newBackOff func() backoff.BackOff
}

func NewHTTPCoinStore(url string, client *http.Client) *HTTPCoinStore {
	return &HTTPCoinStore{
		url:      url,
		client:   client,
		maxTries: 3,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

func (s *HTTPCoinStore) Load(ctx context.Context) (map[string]int, error) {
	return backoff.Retry(ctx, func() (map[string]int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			Log.Info("coins map not found in bucket, starting with empty map")
			return map[string]int{}, nil
		}
		if err := checkStatus(resp); err != nil {
			return nil, err
		}
		balances := map[string]int{}
		if err := json.NewDecoder(resp.Body).Decode(&balances); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("decode coins map: %w", err))
		}
		return balances, nil
	}, s.retryOptions()...)
}

func (s *HTTPCoinStore) Save(ctx context.Context, balances map[string]int) error {
	body, err := json.Marshal(balances)
	if err != nil {
		return fmt.Errorf("encode coins map: %w", err)
	}
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.url, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.client.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		return struct{}{}, checkStatus(resp)
	}, s.retryOptions()...)
	return err
}

func (s *HTTPCoinStore) retryOptions() []backoff.RetryOption {
	return []backoff.RetryOption{
		backoff.WithBackOff(s.newBackOff()),
		backoff.WithMaxTries(s.maxTries),
	}
}

// checkStatus 5xx 可重试，其余非 2xx 直接失败
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	err := fmt.Errorf("%w: %s", ErrBlobStatus, resp.Status)
	if resp.StatusCode >= 500 {
		return err
	}
	return backoff.Permanent(err)
}
