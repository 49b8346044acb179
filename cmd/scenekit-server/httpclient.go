package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shouni/netarmor/securenet"
)

// fetchClient は httpkit.ClientInterface を net/http で実装した具象です。
// パノラマ取得で使うのは FetchBytes のみです。
type fetchClient struct {
	client *http.Client
}

func newFetchClient(timeout time.Duration) *fetchClient {
	return &fetchClient{client: &http.Client{Timeout: timeout}}
}

func (c *fetchClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req)
}

func (c *fetchClient) IsSafeURL(urlStr string) (bool, error) {
	return securenet.IsSafeURL(urlStr)
}

func (c *fetchClient) IsSecureServiceURL(serviceURL string) bool {
	return securenet.IsSecureServiceURL(serviceURL)
}

func (c *fetchClient) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}
	return c.DoRequest(req)
}

func (c *fetchClient) DoRequest(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("応答ボディの読み取りに失敗しました: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return body, nil
}

func (c *fetchClient) FetchAndDecodeJSON(ctx context.Context, url string, v any) error {
	body, err := c.FetchBytes(ctx, url)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

func (c *fetchClient) PostJSONAndFetchBytes(ctx context.Context, url string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("JSON への変換に失敗しました: %w", err)
	}
	return c.PostRawBodyAndFetchBytes(ctx, url, payload, "application/json")
}

func (c *fetchClient) PostRawBodyAndFetchBytes(ctx context.Context, url string, body []byte, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.DoRequest(req)
}
