package credentials

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/streetview-scene-kit/pkg/domain"
)

// AccessToken は Vertex AI 呼び出しに用いる短命のベアラートークンです。
// 値はログにも応答にも出してはなりません。リクエストをまたいだキャッシュは
// 行わず、パイプライン実行ごとに解決し直します。
type AccessToken struct {
	Value     string
	ExpiresAt time.Time
}

// String は fmt 経由での値の露出を防ぎます。
func (t AccessToken) String() string {
	return "AccessToken(REDACTED)"
}

// LogValue は slog 経由での値の露出を防ぎます。
func (t AccessToken) LogValue() slog.Value {
	return slog.StringValue("REDACTED")
}

// Strategy はトークン取得手段の 1 つです。失敗は「その環境ではない」ことを
// 意味するだけで、次の戦略へのフォールスルーを妨げません。
type Strategy interface {
	Name() string
	Token(ctx context.Context) (AccessToken, error)
}

// Resolver は戦略リストを順に試す CredentialResolver です。
type Resolver struct {
	strategies []Strategy
	logger     *slog.Logger
}

// NewResolver は戦略リストを注入して Resolver を初期化します。
// テストハーネスがスタブ戦略を差し込めるよう、リストはデータ駆動です。
func NewResolver(logger *slog.Logger, strategies ...Strategy) (*Resolver, error) {
	if len(strategies) == 0 {
		return nil, fmt.Errorf("at least one strategy is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{strategies: strategies, logger: logger}, nil
}

// Resolve は戦略を順に試し、最初に成功したトークンを返します。
// 全戦略が失敗した場合のみ domain.ErrCredentialUnavailable を返します。
func (r *Resolver) Resolve(ctx context.Context) (AccessToken, error) {
	for _, s := range r.strategies {
		token, err := s.Token(ctx)
		if err != nil {
			r.logger.DebugContext(ctx, "認証戦略が失敗したため次へフォールスルーします",
				"strategy", s.Name(), "error", err)
			continue
		}
		r.logger.DebugContext(ctx, "アクセストークンを解決しました", "strategy", s.Name())
		return token, nil
	}
	return AccessToken{}, domain.ErrCredentialUnavailable
}

// DefaultResolver は本番用の戦略順（メタデータサーバ → gcloud CLI）で
// Resolver を構成します。
func DefaultResolver(logger *slog.Logger) (*Resolver, error) {
	return NewResolver(logger, NewMetadataStrategy(nil), NewGcloudStrategy(nil))
}
