package domain

import "encoding/json"

// DescriptionUnavailable は、視覚言語モデルから有効な説明文を得られなかった
// 場合に SceneDescription.Text へ設定される失敗センチネルです。
// 例外を投げる代わりにこの値を使うことで、元画像を含む部分的な結果を
// そのまま呼び出し側へ返せるようにしています。
const DescriptionUnavailable = "(scene description unavailable)"

// Viewpoint は、ストリートビュー画像を要求するための地理的な視点です。
// 緯度・経度が 0 の場合は未指定として扱います（境界でのバリデーション用）。
type Viewpoint struct {
	Latitude       float64
	Longitude      float64
	Heading        float64
	Pitch          float64
	StyleDirective string
}

// HasCoordinates は緯度・経度の両方が指定されているかを返します。
func (v Viewpoint) HasCoordinates() bool {
	return v.Latitude != 0 && v.Longitude != 0
}

// SceneDescription は DescriptionStage の成果物です。
// モデル側のソフト失敗時も SourceImage は常に保持されます。
type SceneDescription struct {
	SourceImage []byte          // 取得済みのパノラマ JPEG
	Text        string          // 説明文。失敗時は DescriptionUnavailable
	Raw         json.RawMessage // 上流応答の原文（診断用）
	Failure     error           // ソフト失敗の分類。成功時は nil
}

// TextValid は説明文が後段の合成に利用できる状態かを返します。
func (d *SceneDescription) TextValid() bool {
	return d != nil && d.Failure == nil && d.Text != "" && d.Text != DescriptionUnavailable
}

// SynthesizedImage は ImageSynthesisStage の成果物です。
type SynthesizedImage struct {
	Image          []byte
	MimeType       string
	EnhancedPrompt string
}

// PipelineState はパイプライン実行の終端状態です。
type PipelineState string

const (
	// StateSourceImageOnly は元画像のみ取得でき、説明文が得られなかった状態です。
	StateSourceImageOnly PipelineState = "source_image_only"
	// StateDescribedOnly は説明文まで得られた状態です（合成は未実行または失敗）。
	StateDescribedOnly PipelineState = "described_only"
	// StateFull は要求されたすべての段が成功した状態です。
	StateFull PipelineState = "full"
	// StateFailed はハード失敗でパイプラインが中断した状態です。
	StateFailed PipelineState = "failed"
)

// PipelineResult は Orchestrator が返す部分状態の合併型です。
// 元画像の取得後は、どの段が失敗しても取得済みのデータを失いません。
type PipelineResult struct {
	State       PipelineState
	Description *SceneDescription
	Synthesized *SynthesizedImage
	FailedStage string // 失敗した段の名前（State が Failed、または合成失敗時）
	Reason      error
}
