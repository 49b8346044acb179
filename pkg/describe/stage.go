package describe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/shouni/streetview-scene-kit/pkg/credentials"
	"github.com/shouni/streetview-scene-kit/pkg/domain"
	"github.com/shouni/streetview-scene-kit/pkg/vertexapi"
)

// 運用実績のある生成パラメータに固定
const maxOutputTokens = 8192

// PanoramaFetcher はパノラマ画像取得の注入点です。
type PanoramaFetcher interface {
	Fetch(ctx context.Context, vp domain.Viewpoint) ([]byte, error)
}

// VertexClient は視覚言語モデル呼び出しの注入点です。
type VertexClient interface {
	GenerateContent(ctx context.Context, token credentials.AccessToken, model string, req *vertexapi.GenerateContentRequest) (*genai.GenerateContentResponse, json.RawMessage, error)
}

// Stage は DescriptionStage です。パノラマ画像を取得し、視覚言語モデルに
// 詳細な情景説明を生成させます。
type Stage struct {
	fetcher PanoramaFetcher
	vertex  VertexClient
	model   string
	logger  *slog.Logger
}

// NewStage は依存関係を注入して Stage を初期化します。
func NewStage(fetcher PanoramaFetcher, vertex VertexClient, model string, logger *slog.Logger) (*Stage, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if vertex == nil {
		return nil, fmt.Errorf("vertex client is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{fetcher: fetcher, vertex: vertex, model: model, logger: logger}, nil
}

// Run は視点の情景説明を生成します。モデル側の失敗はエラーとして返さず、
// Text の失敗センチネルと Failure の分類で表現します。元画像は失敗時も
// 常に結果へ含めます（部分成功は一級の結果であり、エラーではありません）。
// エラーを返すのは元画像の取得に失敗した場合だけです。
func (s *Stage) Run(ctx context.Context, vp domain.Viewpoint, token credentials.AccessToken) (*domain.SceneDescription, error) {
	img, err := s.fetcher.Fetch(ctx, vp)
	if err != nil {
		return nil, err
	}

	req := &vertexapi.GenerateContentRequest{
		Contents: []*genai.Content{{
			Role: "user",
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: img}},
				{Text: ComposePrompt(vp.StyleDirective)},
			},
		}},
		GenerationConfig: &vertexapi.GenerationConfig{
			Temperature:     float32Ptr(1),
			TopP:            float32Ptr(0.95),
			MaxOutputTokens: maxOutputTokens,
		},
		SafetySettings: defaultSafetySettings(),
	}

	resp, raw, err := s.vertex.GenerateContent(ctx, token, s.model, req)
	if err != nil {
		s.logger.WarnContext(ctx, "視覚言語モデルの呼び出しに失敗しました", "error", err)
		return &domain.SceneDescription{
			SourceImage: img,
			Text:        domain.DescriptionUnavailable,
			Raw:         raw,
			Failure:     err,
		}, nil
	}

	text, shapeErr := extractText(resp)
	if shapeErr != nil {
		s.logger.WarnContext(ctx, "モデル応答の形状が不正です", "error", shapeErr)
		return &domain.SceneDescription{
			SourceImage: img,
			Text:        domain.DescriptionUnavailable,
			Raw:         raw,
			Failure:     shapeErr,
		}, nil
	}

	return &domain.SceneDescription{SourceImage: img, Text: text, Raw: raw}, nil
}

// extractText は応答形状を防御的に検証し、最初のテキストパートを返します。
// candidates → content → parts の各段を順に確認します。
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: missing candidates", domain.ErrModelShapeInvalid)
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: missing content or parts", domain.ErrModelShapeInvalid)
	}
	for _, part := range candidate.Content.Parts {
		if part != nil && part.Text != "" {
			return part.Text, nil
		}
	}
	return "", fmt.Errorf("%w: no text part in candidate", domain.ErrModelShapeInvalid)
}

// defaultSafetySettings は標準の有害カテゴリを「中以上をブロック」に設定します。
func defaultSafetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHateSpeech,
		genai.HarmCategoryDangerousContent,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryHarassment,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  c,
			Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
		})
	}
	return settings
}

func float32Ptr(v float32) *float32 { return &v }
