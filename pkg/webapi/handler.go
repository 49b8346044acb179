package webapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shouni/streetview-scene-kit/pkg/domain"
	"github.com/shouni/streetview-scene-kit/pkg/imgutil"
)

// Pipeline はハンドラが依存するオーケストレーション操作です。
type Pipeline interface {
	DescribeOnly(ctx context.Context, vp domain.Viewpoint, identity string) domain.PipelineResult
	SynthesizeOnly(ctx context.Context, promptText, identity string) domain.PipelineResult
	DescribeAndSynthesize(ctx context.Context, vp domain.Viewpoint, identity string) domain.PipelineResult
}

// Handler は HTTP 境界とパイプラインの間の変換層です。
type Handler struct {
	pipeline Pipeline
	logger   *slog.Logger
}

// NewHandler は Handler を生成します。
func NewHandler(pipeline Pipeline, logger *slog.Logger) (*Handler, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("pipeline は必須です")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{pipeline: pipeline, logger: logger}, nil
}

// DescribeScene は POST /api/describe-scene を処理します。
func (h *Handler) DescribeScene(c *gin.Context) {
	var req DescribeSceneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	vp := domain.Viewpoint{
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		Heading:        req.Heading,
		Pitch:          req.Pitch,
		StyleDirective: req.PromptAdditions,
	}
	if !vp.HasCoordinates() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing required location parameters"})
		return
	}

	result := h.pipeline.DescribeOnly(c.Request.Context(), vp, callerIdentity(c))
	if result.State == domain.StateFailed {
		h.renderFailure(c, result)
		return
	}

	c.JSON(http.StatusOK, h.describeResponse(c, result.Description))
}

// SynthesizeImage は POST /api/synthesize-image を処理します。
func (h *Handler) SynthesizeImage(c *gin.Context) {
	var req SynthesizeImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing description"})
		return
	}

	result := h.pipeline.SynthesizeOnly(c.Request.Context(), req.Description, callerIdentity(c))
	if result.State == domain.StateFailed {
		h.renderFailure(c, result)
		return
	}

	img := result.Synthesized
	c.JSON(http.StatusOK, SynthesizeImageResponse{
		Image:          imgutil.EncodeDataURI(img.MimeType, img.Image),
		EnhancedPrompt: img.EnhancedPrompt,
	})
}

// DescribeAndGenerate は POST /api/describe-and-generate を処理します。
// 単一のクールダウン枠で説明と合成を連続実行し、到達できた段までを返します。
func (h *Handler) DescribeAndGenerate(c *gin.Context) {
	var req DescribeSceneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	vp := domain.Viewpoint{
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		Heading:        req.Heading,
		Pitch:          req.Pitch,
		StyleDirective: req.PromptAdditions,
	}
	if !vp.HasCoordinates() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing required location parameters"})
		return
	}

	result := h.pipeline.DescribeAndSynthesize(c.Request.Context(), vp, callerIdentity(c))
	if result.State == domain.StateFailed {
		h.renderFailure(c, result)
		return
	}

	resp := ComposedResponse{}
	if desc := result.Description; desc != nil {
		base := h.describeResponse(c, desc)
		resp.Image = base.Image
		resp.Description = base.Description
		resp.Error = base.Error
		resp.ErrorDetails = base.ErrorDetails
		resp.RawResponse = base.RawResponse
	}
	if img := result.Synthesized; img != nil {
		resp.GeneratedImage = imgutil.EncodeDataURI(img.MimeType, img.Image)
		resp.EnhancedPrompt = img.EnhancedPrompt
	} else if result.FailedStage != "" && result.Reason != nil {
		// 合成だけが失敗したケース。説明までの成果はそのまま返します。
		msg, details := upstreamParts(result.Reason)
		resp.Error = msg
		resp.ErrorDetails = details
	}
	c.JSON(http.StatusOK, resp)
}

// Health は疎通確認用のエンドポイントです。
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// describeResponse は SceneDescription をワイヤ形へ変換します。
// ソフト失敗の種別に応じて、上流エラーは最上位の error/errorDetails、
// 形状不正は description.error に載せ分けます。
func (h *Handler) describeResponse(c *gin.Context, desc *domain.SceneDescription) DescribeSceneResponse {
	resp := DescribeSceneResponse{}
	if len(desc.SourceImage) > 0 {
		resp.Image = imgutil.EncodeDataURI("image/jpeg", desc.SourceImage)
	}

	if desc.Failure == nil {
		if parts, ok := extractParts(desc.Raw); ok {
			resp.Description = &DescriptionPayload{
				Candidates: []CandidatePayload{{Content: ContentPayload{Parts: parts}}},
			}
		} else {
			resp.Description = &DescriptionPayload{Error: "invalid response structure"}
			resp.RawResponse = desc.Raw
		}
		return resp
	}

	var upErr *domain.UpstreamError
	if errors.As(desc.Failure, &upErr) {
		resp.Error = upErr.Error()
		resp.ErrorDetails = upErr.Body
	} else {
		resp.Description = &DescriptionPayload{Error: desc.Failure.Error()}
		resp.RawResponse = desc.Raw
	}
	h.logger.WarnContext(c.Request.Context(), "説明の取得に失敗しました（元画像は返却します）",
		slog.String("request_id", c.GetString(requestIDKey)),
		slog.String("reason", desc.Failure.Error()),
	)
	return resp
}

// renderFailure はハード失敗をステータスコードと構造化エラーへ写像します。
func (h *Handler) renderFailure(c *gin.Context, result domain.PipelineResult) {
	err := result.Reason
	logger := h.logger.With(
		slog.String("request_id", c.GetString(requestIDKey)),
		slog.String("stage", result.FailedStage),
	)

	var cooldown *domain.CooldownError
	if errors.As(err, &cooldown) {
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: cooldown.Error()})
		return
	}

	switch {
	case errors.Is(err, domain.ErrMissingParameter):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
	case errors.Is(err, domain.ErrCredentialUnavailable):
		logger.ErrorContext(c.Request.Context(), "アクセストークンを解決できませんでした")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: domain.ErrCredentialUnavailable.Error()})
	case errors.Is(err, domain.ErrSourceImageUnavailable):
		logger.ErrorContext(c.Request.Context(), "ストリートビュー画像を取得できませんでした", slog.String("reason", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: domain.ErrSourceImageUnavailable.Error()})
	default:
		msg, details := upstreamParts(err)
		logger.ErrorContext(c.Request.Context(), "パイプラインが失敗しました", slog.String("reason", msg))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msg, ErrorDetails: details})
	}
}

// upstreamParts はエラーをユーザ向けメッセージと診断詳細に分離します。
// 上流の応答ボディはメッセージに混ぜず、診断フィールドにのみ載せます。
func upstreamParts(err error) (msg, details string) {
	var upErr *domain.UpstreamError
	if errors.As(err, &upErr) {
		return upErr.Error(), upErr.Body
	}
	if err == nil {
		return "Internal server error", ""
	}
	return err.Error(), ""
}
