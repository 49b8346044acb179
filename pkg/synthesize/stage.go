package synthesize

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/streetview-scene-kit/pkg/credentials"
	"github.com/shouni/streetview-scene-kit/pkg/domain"
	"github.com/shouni/streetview-scene-kit/pkg/vertexapi"
)

// 生成画像は元画像（1024x576）とアスペクト比を揃える
const aspectRatio = "16:9"

// VertexClient は画像合成モデル呼び出しの注入点です。
type VertexClient interface {
	Predict(ctx context.Context, token credentials.AccessToken, model string, req *vertexapi.PredictRequest) (*vertexapi.PredictResponse, json.RawMessage, error)
}

// Stage は ImageSynthesisStage です。説明テキストから画像を合成します。
type Stage struct {
	vertex VertexClient
	model  string
	logger *slog.Logger
}

// NewStage は依存関係を注入して Stage を初期化します。
func NewStage(vertex VertexClient, model string, logger *slog.Logger) (*Stage, error) {
	if vertex == nil {
		return nil, fmt.Errorf("vertex client is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{vertex: vertex, model: model, logger: logger}, nil
}

// Run は説明テキストから画像を 1 枚合成します。
// promptText が前段の失敗センチネルの場合、ネットワークに出る前に拒否します
// （これは前提条件であり、モデル呼び出しは一切発生しません）。
func (s *Stage) Run(ctx context.Context, promptText string, token credentials.AccessToken) (*domain.SynthesizedImage, error) {
	if strings.TrimSpace(promptText) == "" {
		return nil, fmt.Errorf("%w: description", domain.ErrMissingParameter)
	}
	if promptText == domain.DescriptionUnavailable {
		return nil, fmt.Errorf("%w: description is the failure sentinel", domain.ErrMissingParameter)
	}

	req := &vertexapi.PredictRequest{
		Instances: []vertexapi.PromptInstance{{Prompt: promptText}},
		Parameters: vertexapi.ImagenParameters{
			SampleCount:   1,
			AspectRatio:   aspectRatio,
			EnhancePrompt: true,
		},
	}

	resp, _, err := s.vertex.Predict(ctx, token, s.model, req)
	if err != nil {
		return nil, err
	}

	if len(resp.Predictions) == 0 {
		return nil, domain.ErrInvalidPrediction
	}
	prediction := resp.Predictions[0]
	if prediction.MimeType == "" || prediction.BytesBase64Encoded == "" {
		return nil, domain.ErrInvalidPrediction
	}

	data, err := base64.StdEncoding.DecodeString(prediction.BytesBase64Encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: base64 デコード失敗", domain.ErrInvalidPrediction)
	}

	// モデルが強化プロンプトを返さない場合は入力をそのまま使う
	enhanced := prediction.Prompt
	if enhanced == "" {
		enhanced = promptText
	}

	s.logger.DebugContext(ctx, "画像合成が完了しました",
		"model", s.model, "mime_type", prediction.MimeType, "bytes", len(data))

	return &domain.SynthesizedImage{
		Image:          data,
		MimeType:       prediction.MimeType,
		EnhancedPrompt: enhanced,
	}, nil
}
