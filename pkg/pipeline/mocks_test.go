package pipeline

import (
	"context"
	"time"

	"github.com/shouni/streetview-scene-kit/pkg/credentials"
	"github.com/shouni/streetview-scene-kit/pkg/domain"
)

// --- Mocks ---

// callRecorder は呼び出し順序の検証用です。
type callRecorder struct {
	calls []string
}

func (r *callRecorder) record(name string) {
	r.calls = append(r.calls, name)
}

type mockGate struct {
	recorder  *callRecorder
	prev      *time.Time
	checkErr  error
	recordErr error
}

func (m *mockGate) Check(ctx context.Context, identity string) (*time.Time, error) {
	if m.recorder != nil {
		m.recorder.record("check")
	}
	return m.prev, m.checkErr
}

func (m *mockGate) Record(ctx context.Context, identity string, prev *time.Time) error {
	if m.recorder != nil {
		m.recorder.record("record")
	}
	return m.recordErr
}

type mockCreds struct {
	recorder *callRecorder
	token    credentials.AccessToken
	err      error
	calls    int
}

func (m *mockCreds) Resolve(ctx context.Context) (credentials.AccessToken, error) {
	m.calls++
	if m.recorder != nil {
		m.recorder.record("resolve")
	}
	return m.token, m.err
}

type mockDescriber struct {
	recorder *callRecorder
	desc     *domain.SceneDescription
	err      error
	calls    int
	lastTok  credentials.AccessToken
}

func (m *mockDescriber) Run(ctx context.Context, vp domain.Viewpoint, token credentials.AccessToken) (*domain.SceneDescription, error) {
	m.calls++
	m.lastTok = token
	if m.recorder != nil {
		m.recorder.record("describe")
	}
	return m.desc, m.err
}

type mockSynthesizer struct {
	recorder   *callRecorder
	img        *domain.SynthesizedImage
	err        error
	calls      int
	lastPrompt string
	lastTok    credentials.AccessToken
}

func (m *mockSynthesizer) Run(ctx context.Context, promptText string, token credentials.AccessToken) (*domain.SynthesizedImage, error) {
	m.calls++
	m.lastPrompt = promptText
	m.lastTok = token
	if m.recorder != nil {
		m.recorder.record("synthesize")
	}
	return m.img, m.err
}
