package credentials

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	gcloudTimeout = 10 * time.Second

	// gcloud は有効期限を返さないため、名目上の寿命を仮定する。
	// トークンはキャッシュしないので、この値が効くのは単一実行の間だけ。
	gcloudNominalLifetime = 30 * time.Minute
)

// Runner は外部コマンド実行の注入点です。
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return out.Bytes(), errBuf.Bytes(), err
}

// GcloudStrategy はローカルの運用者認証情報（gcloud CLI）から
// トークンを取得するフォールバック戦略です。
type GcloudStrategy struct {
	runner  Runner
	timeout time.Duration
}

// NewGcloudStrategy は GcloudStrategy を初期化します。
// runner が nil の場合は実プロセスを起動します。
func NewGcloudStrategy(runner Runner) *GcloudStrategy {
	if runner == nil {
		runner = execRunner{}
	}
	return &GcloudStrategy{runner: runner, timeout: gcloudTimeout}
}

func (s *GcloudStrategy) Name() string { return "gcloud-cli" }

// Token は `gcloud auth print-access-token` を実行し、標準出力をトークンとして
// 採用します。標準エラーへの出力または非ゼロ終了は失敗です。
func (s *GcloudStrategy) Token(ctx context.Context) (AccessToken, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stdout, stderr, err := s.runner.Run(ctx, "gcloud", "auth", "print-access-token")
	if err != nil {
		return AccessToken{}, fmt.Errorf("gcloud の実行に失敗しました: %w", err)
	}
	if msg := strings.TrimSpace(string(stderr)); msg != "" {
		return AccessToken{}, fmt.Errorf("gcloud がエラーを報告しました: %s", msg)
	}

	token := strings.TrimSpace(string(stdout))
	if token == "" {
		return AccessToken{}, fmt.Errorf("gcloud が空のトークンを返しました")
	}

	return AccessToken{
		Value:     token,
		ExpiresAt: time.Now().Add(gcloudNominalLifetime),
	}, nil
}
