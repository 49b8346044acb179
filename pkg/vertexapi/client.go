package vertexapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/shouni/streetview-scene-kit/pkg/credentials"
	"github.com/shouni/streetview-scene-kit/pkg/domain"
)

const (
	defaultGenerateTimeout = 60 * time.Second
	defaultPredictTimeout  = 90 * time.Second
)

// Doer は HTTP リクエスト実行の注入点です。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client は Vertex AI のモデルエンドポイントへ認可付き REST 呼び出しを行う
// 薄いクライアントです。トークンは呼び出しごとに受け取り、保持しません。
type Client struct {
	httpClient Doer
	endpoint   string
	project    string
	location   string
}

// NewClient は依存関係を注入して Client を初期化します。
func NewClient(httpClient Doer, project, location string) (*Client, error) {
	if project == "" {
		return nil, fmt.Errorf("project is required")
	}
	if location == "" {
		return nil, fmt.Errorf("location is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		httpClient: httpClient,
		endpoint:   fmt.Sprintf("%s-aiplatform.googleapis.com", location),
		project:    project,
		location:   location,
	}, nil
}

func (c *Client) modelURL(model, verb string) string {
	return fmt.Sprintf("https://%s/v1/projects/%s/locations/%s/publishers/google/models/%s:%s",
		c.endpoint, c.project, c.location, model, verb)
}

// postJSON は Bearer 認可付きで JSON を POST し、ステータスと生ボディを返します。
// トークン値はエラーにもログにも含めません。
func (c *Client) postJSON(ctx context.Context, token credentials.AccessToken, url string, payload any, timeout time.Duration) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("リクエストのシリアライズに失敗しました: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token.Value)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, raw, nil
}

// GenerateContent は Gemini の generateContent を呼び出します。
// 非 2xx は *domain.UpstreamError として返し、ボディは診断用に保持します。
// 成功時は解析済み応答と原文の両方を返します（原文は形状検証の劣化時用）。
func (c *Client) GenerateContent(ctx context.Context, token credentials.AccessToken, model string, req *GenerateContentRequest) (*genai.GenerateContentResponse, json.RawMessage, error) {
	status, raw, err := c.postJSON(ctx, token, c.modelURL(model, "generateContent"), req, defaultGenerateTimeout)
	if err != nil {
		return nil, nil, fmt.Errorf("generateContent の呼び出しに失敗しました: %w", err)
	}
	if status < 200 || status > 299 {
		return nil, raw, &domain.UpstreamError{API: "Vertex", Stage: "describe", Status: status, Body: string(raw)}
	}

	var parsed genai.GenerateContentResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, raw, fmt.Errorf("%w: generateContent 応答を解析できません", domain.ErrModelShapeInvalid)
	}
	return &parsed, raw, nil
}

// Predict は Imagen の predict を呼び出します。
// 非 2xx は *domain.UpstreamError として返します。
func (c *Client) Predict(ctx context.Context, token credentials.AccessToken, model string, req *PredictRequest) (*PredictResponse, json.RawMessage, error) {
	status, raw, err := c.postJSON(ctx, token, c.modelURL(model, "predict"), req, defaultPredictTimeout)
	if err != nil {
		return nil, nil, fmt.Errorf("predict の呼び出しに失敗しました: %w", err)
	}
	if status < 200 || status > 299 {
		return nil, raw, &domain.UpstreamError{API: "Imagen", Stage: "synthesize", Status: status, Body: string(raw)}
	}

	var parsed PredictResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, raw, fmt.Errorf("%w: predict 応答を解析できません", domain.ErrInvalidPrediction)
	}
	return &parsed, raw, nil
}
