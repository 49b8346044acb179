package vertexapi

import "google.golang.org/genai"

// ワイヤ契約の要求構造体。コンテンツや安全性設定は genai SDK の型を
// そのまま使い、JSON 形状を Vertex AI の REST API に一致させます。

// GenerateContentRequest は generateContent のリクエストボディです。
type GenerateContentRequest struct {
	Contents         []*genai.Content       `json:"contents"`
	GenerationConfig *GenerationConfig      `json:"generationConfig,omitempty"`
	SafetySettings   []*genai.SafetySetting `json:"safetySettings,omitempty"`
}

// GenerationConfig は生成パラメータのワイヤ表現です。
type GenerationConfig struct {
	Temperature     *float32 `json:"temperature,omitempty"`
	TopP            *float32 `json:"topP,omitempty"`
	MaxOutputTokens int32    `json:"maxOutputTokens,omitempty"`
}

// PredictRequest は Imagen predict のリクエストボディです。
type PredictRequest struct {
	Instances  []PromptInstance `json:"instances"`
	Parameters ImagenParameters `json:"parameters"`
}

// PromptInstance は 1 件の生成指示です。
type PromptInstance struct {
	Prompt string `json:"prompt"`
}

// ImagenParameters は Imagen の生成パラメータです。
type ImagenParameters struct {
	SampleCount   int    `json:"sampleCount"`
	AspectRatio   string `json:"aspectRatio"`
	EnhancePrompt bool   `json:"enhancePrompt"`
}

// PredictResponse は Imagen predict の応答ボディです。
type PredictResponse struct {
	Predictions []ImagePrediction `json:"predictions"`
}

// ImagePrediction は生成された 1 枚分の画像です。MimeType と
// BytesBase64Encoded の両方が揃っていなければ有効な予測とみなしません。
type ImagePrediction struct {
	MimeType           string `json:"mimeType"`
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	Prompt             string `json:"prompt,omitempty"`
}
