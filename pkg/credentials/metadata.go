package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	metadataTokenURL = "http://metadata.google.internal/computeMetadata/v1/instance/service-accounts/default/token"

	// GCP 外の環境ではメタデータサーバに到達できないのが正常系。
	// フォールバック経路を塞がないよう上限は短く取る。
	metadataTimeout = 2 * time.Second
)

// Doer は HTTP リクエスト実行の注入点です。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// MetadataStrategy は GCE メタデータサーバからトークンを取得する戦略です。
type MetadataStrategy struct {
	client Doer
	url    string
}

// NewMetadataStrategy は MetadataStrategy を初期化します。
// client が nil の場合は短いタイムアウト付きの既定クライアントを使います。
func NewMetadataStrategy(client Doer) *MetadataStrategy {
	if client == nil {
		client = &http.Client{Timeout: metadataTimeout}
	}
	return &MetadataStrategy{client: client, url: metadataTokenURL}
}

func (s *MetadataStrategy) Name() string { return "gce-metadata" }

// Token はメタデータサーバへ問い合わせます。ネットワーク到達不能や
// 非 2xx はエラーとして返し、Resolver 側のフォールスルーに委ねます。
func (s *MetadataStrategy) Token(ctx context.Context) (AccessToken, error) {
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return AccessToken{}, err
	}
	req.Header.Set("Metadata-Flavor", "Google")

	resp, err := s.client.Do(req)
	if err != nil {
		return AccessToken{}, fmt.Errorf("metadata server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return AccessToken{}, fmt.Errorf("metadata server returned status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return AccessToken{}, fmt.Errorf("metadata token decode failed: %w", err)
	}
	if body.AccessToken == "" {
		return AccessToken{}, fmt.Errorf("metadata token response is empty")
	}

	return AccessToken{
		Value:     body.AccessToken,
		ExpiresAt: time.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
	}, nil
}
