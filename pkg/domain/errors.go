package domain

import (
	"errors"
	"fmt"
)

// エラー分類。境界層はこの分類だけを見て HTTP ステータスへ写像し、
// 上流応答のボディ等は診断フィールドへ分離します。
var (
	// ErrMissingParameter は呼び出し側の入力不備です（4xx 系）。
	ErrMissingParameter = errors.New("missing required parameter")
	// ErrUnauthorized は有効な同一性キーが無い状態です（4xx 系）。
	ErrUnauthorized = errors.New("unauthorized")
	// ErrCredentialUnavailable は全戦略でトークン解決に失敗した状態です。
	// どの段も進められないため、その実行のハード失敗になります。
	ErrCredentialUnavailable = errors.New("failed to get access token")
	// ErrSourceImageUnavailable は元画像の取得失敗です。パイプライン唯一の
	// 説明段ハード失敗で、これ以降のモデル呼び出しは行われません。
	ErrSourceImageUnavailable = errors.New("failed to fetch street view image")
	// ErrModelShapeInvalid はモデル応答の形状不正です。ソフト失敗であり、
	// 部分結果（元画像）の返却へ劣化するだけで実行は中断しません。
	ErrModelShapeInvalid = errors.New("invalid response structure")
	// ErrInvalidPrediction は合成応答に有効な画像が含まれない状態です。
	ErrInvalidPrediction = errors.New("no valid image generated")
)

// CooldownError はクールダウン窓の残り時間を分単位で保持します。
// メッセージはそのままユーザへ提示される契約です。
type CooldownError struct {
	RetryAfterMinutes int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("Please wait %d minutes before making another request", e.RetryAfterMinutes)
}

// UpstreamError は上流 API の非 2xx 応答です。Body は診断フィールド専用で、
// ユーザ向けメッセージには決して混ぜません。
type UpstreamError struct {
	API    string // "Vertex" / "Imagen"
	Stage  string // "describe" / "synthesize"
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API error: %d", e.API, e.Status)
}
