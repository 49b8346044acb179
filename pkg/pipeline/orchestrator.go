package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/streetview-scene-kit/pkg/credentials"
	"github.com/shouni/streetview-scene-kit/pkg/domain"
)

// 段の名前。PipelineResult.FailedStage に入る値です。
const (
	StageAdmission  = "admission"
	StageDescribe   = "describe"
	StageSynthesize = "synthesize"
)

// Describer は説明段の注入点です。
type Describer interface {
	Run(ctx context.Context, vp domain.Viewpoint, token credentials.AccessToken) (*domain.SceneDescription, error)
}

// Synthesizer は合成段の注入点です。
type Synthesizer interface {
	Run(ctx context.Context, promptText string, token credentials.AccessToken) (*domain.SynthesizedImage, error)
}

// TokenResolver は認証解決の注入点です。
type TokenResolver interface {
	Resolve(ctx context.Context) (credentials.AccessToken, error)
}

// Gate はクールダウン検査の注入点です。
type Gate interface {
	Check(ctx context.Context, identity string) (*time.Time, error)
	Record(ctx context.Context, identity string, prev *time.Time) error
}

// Orchestrator は 2 つの段を独立の操作および合成操作として公開し、
// 部分失敗の提示を一手に引き受けます。HTTP 境界が呼ぶのはこの型だけです。
type Orchestrator struct {
	gate        Gate
	creds       TokenResolver
	describer   Describer
	synthesizer Synthesizer
	logger      *slog.Logger
}

// NewOrchestrator は依存関係を注入して Orchestrator を初期化します。
func NewOrchestrator(gate Gate, creds TokenResolver, describer Describer, synthesizer Synthesizer, logger *slog.Logger) (*Orchestrator, error) {
	if gate == nil {
		return nil, fmt.Errorf("gate is required")
	}
	if creds == nil {
		return nil, fmt.Errorf("creds is required")
	}
	if describer == nil {
		return nil, fmt.Errorf("describer is required")
	}
	if synthesizer == nil {
		return nil, fmt.Errorf("synthesizer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{gate: gate, creds: creds, describer: describer, synthesizer: synthesizer, logger: logger}, nil
}

// admit はクールダウン検査、トークン解決、時刻記録を規定の順で行います。
// 記録は高コストな外部呼び出しの前。最終的に失敗する呼び出しも窓を
// 消費しますが、低速・失敗呼び出しによる連打を防ぐ方を優先します。
func (o *Orchestrator) admit(ctx context.Context, identity string) (credentials.AccessToken, error) {
	prev, err := o.gate.Check(ctx, identity)
	if err != nil {
		return credentials.AccessToken{}, err
	}
	token, err := o.creds.Resolve(ctx)
	if err != nil {
		return credentials.AccessToken{}, err
	}
	if err := o.gate.Record(ctx, identity, prev); err != nil {
		return credentials.AccessToken{}, err
	}
	return token, nil
}

// DescribeOnly は説明段だけを実行します。
func (o *Orchestrator) DescribeOnly(ctx context.Context, vp domain.Viewpoint, identity string) domain.PipelineResult {
	token, err := o.admit(ctx, identity)
	if err != nil {
		return failed(StageAdmission, err)
	}

	desc, err := o.describer.Run(ctx, vp, token)
	if err != nil {
		return failed(StageDescribe, err)
	}
	if !desc.TextValid() {
		return domain.PipelineResult{State: domain.StateSourceImageOnly, Description: desc}
	}
	return domain.PipelineResult{State: domain.StateDescribedOnly, Description: desc}
}

// SynthesizeOnly は合成段だけを実行します。クールダウンのスロットは
// 説明段と共有です（どちらを呼んでも同じ窓が消費されます）。
func (o *Orchestrator) SynthesizeOnly(ctx context.Context, promptText, identity string) domain.PipelineResult {
	token, err := o.admit(ctx, identity)
	if err != nil {
		return failed(StageAdmission, err)
	}

	img, err := o.synthesizer.Run(ctx, promptText, token)
	if err != nil {
		return failed(StageSynthesize, err)
	}
	return domain.PipelineResult{State: domain.StateFull, Synthesized: img}
}

// DescribeAndSynthesize は説明から合成まで連鎖させる合成操作です。
// クールダウンの消費は全体で 1 回だけで、2 回目のゲートは通しません。
// 説明が無効（センチネル）の場合は合成を試みず部分結果を返し、
// 合成が失敗しても取得済みの説明は失いません。
func (o *Orchestrator) DescribeAndSynthesize(ctx context.Context, vp domain.Viewpoint, identity string) domain.PipelineResult {
	token, err := o.admit(ctx, identity)
	if err != nil {
		return failed(StageAdmission, err)
	}

	desc, err := o.describer.Run(ctx, vp, token)
	if err != nil {
		return failed(StageDescribe, err)
	}
	if !desc.TextValid() {
		return domain.PipelineResult{State: domain.StateSourceImageOnly, Description: desc}
	}

	img, err := o.synthesizer.Run(ctx, desc.Text, token)
	if err != nil {
		o.logger.WarnContext(ctx, "合成段が失敗しました。説明までの部分結果を返します", "error", err)
		return domain.PipelineResult{
			State:       domain.StateDescribedOnly,
			Description: desc,
			FailedStage: StageSynthesize,
			Reason:      err,
		}
	}

	return domain.PipelineResult{State: domain.StateFull, Description: desc, Synthesized: img}
}

func failed(stage string, err error) domain.PipelineResult {
	return domain.PipelineResult{State: domain.StateFailed, FailedStage: stage, Reason: err}
}
