package webapi

import "encoding/json"

// ワイヤ契約の DTO 群。フィールド名は既存クライアントとの互換契約です。

// DescribeSceneRequest は POST /api/describe-scene の入力です。
type DescribeSceneRequest struct {
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	Heading         float64 `json:"heading"`
	Pitch           float64 `json:"pitch"`
	PromptAdditions string  `json:"promptAdditions"`
}

// DescribeSceneResponse は describe-scene の応答です。モデル側のソフト失敗時も
// image は常に返します。Error/ErrorDetails は上流の失敗を、Description.Error は
// 応答形状の不正を表します。
type DescribeSceneResponse struct {
	Image        string              `json:"image,omitempty"`
	Description  *DescriptionPayload `json:"description,omitempty"`
	Error        string              `json:"error,omitempty"`
	ErrorDetails string              `json:"errorDetails,omitempty"`
	RawResponse  json.RawMessage     `json:"rawResponse,omitempty"`
}

// DescriptionPayload はモデル応答のうち候補のパーツのみを中継する形です。
type DescriptionPayload struct {
	Candidates []CandidatePayload `json:"candidates,omitempty"`
	Error      string             `json:"error,omitempty"`
}

type CandidatePayload struct {
	Content ContentPayload `json:"content"`
}

type ContentPayload struct {
	Parts json.RawMessage `json:"parts"`
}

// SynthesizeImageRequest は POST /api/synthesize-image の入力です。
type SynthesizeImageRequest struct {
	Description string `json:"description"`
}

// SynthesizeImageResponse は synthesize-image の成功応答です。
type SynthesizeImageResponse struct {
	Image          string `json:"image"`
	EnhancedPrompt string `json:"enhancedPrompt,omitempty"`
}

// ComposedResponse は describe-and-generate の応答で、部分状態の合併型を
// そのまま表します。到達できた段までのフィールドだけが埋まります。
type ComposedResponse struct {
	Image          string              `json:"image,omitempty"`
	Description    *DescriptionPayload `json:"description,omitempty"`
	GeneratedImage string              `json:"generatedImage,omitempty"`
	EnhancedPrompt string              `json:"enhancedPrompt,omitempty"`
	Error          string              `json:"error,omitempty"`
	ErrorDetails   string              `json:"errorDetails,omitempty"`
	RawResponse    json.RawMessage     `json:"rawResponse,omitempty"`
}

// ErrorResponse は構造化エラーです。ErrorDetails は診断専用で、
// ユーザ向けメッセージとは混ぜません。
type ErrorResponse struct {
	Error        string `json:"error"`
	ErrorDetails string `json:"errorDetails,omitempty"`
}

// extractParts はモデル応答の原文から最初の候補のパーツ配列を取り出します。
// 形状が揃っていない場合は false を返します。
func extractParts(raw json.RawMessage) (json.RawMessage, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var shape struct {
		Candidates []struct {
			Content *struct {
				Parts json.RawMessage `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, false
	}
	if len(shape.Candidates) == 0 || shape.Candidates[0].Content == nil || len(shape.Candidates[0].Content.Parts) == 0 {
		return nil, false
	}
	return shape.Candidates[0].Content.Parts, true
}
