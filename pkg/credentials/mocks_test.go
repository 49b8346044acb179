package credentials

import (
	"bytes"
	"context"
	"io"
	"net/http"
)

// --- Mocks ---

type mockStrategy struct {
	name    string
	token   AccessToken
	err     error
	calls   int
}

func (m *mockStrategy) Name() string { return m.name }

func (m *mockStrategy) Token(ctx context.Context) (AccessToken, error) {
	m.calls++
	return m.token, m.err
}

type mockDoer struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

type mockRunner struct {
	stdout []byte
	stderr []byte
	err    error
	calls  int
	name   string
	args   []string
}

func (m *mockRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	m.calls++
	m.name = name
	m.args = args
	return m.stdout, m.stderr, m.err
}
