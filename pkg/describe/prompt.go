package describe

import "strings"

// basePrompt は視覚言語モデルへの基本指示です。画像内の全領域を位置参照付きで
// 網羅させ、向き・道路の方向・主要な色を明示させ、UI 要素は無視させます。
const basePrompt = `You are a "detailed image describer." Your task is to analyze an image of a location and provide a very detailed description, including every part of the image and specifying the location of each element within the image (e.g., top left corner, center, bottom right, etc.). ignore any ui elements, be very descriptive, include things like which way we are facing, which way the roads are going and such, include detailed colours of important features and elements.`

// twistPrefix はスタイル指定を「説明の全体に織り込むひねり」として接続します。
const twistPrefix = " the following is the twist, incorporate it into every part of the description in some way: "

// ComposePrompt は基本指示の後ろにスタイル指定をそのまま付け足します。
// 順序は固定です。位置網羅の要求をスタイル側が上書きできないよう、
// 基本指示が先、ひねりが後になります。
func ComposePrompt(styleDirective string) string {
	style := strings.TrimSpace(styleDirective)
	if style == "" {
		return basePrompt
	}
	return basePrompt + twistPrefix + style
}
