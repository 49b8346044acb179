package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/shouni/streetview-scene-kit/pkg/domain"
)

// --- Mocks ---

type mockPipeline struct {
	describeFunc   func(ctx context.Context, vp domain.Viewpoint, identity string) domain.PipelineResult
	synthesizeFunc func(ctx context.Context, promptText, identity string) domain.PipelineResult
	composedFunc   func(ctx context.Context, vp domain.Viewpoint, identity string) domain.PipelineResult

	lastIdentity string
	describes    int
	synthesizes  int
}

func (m *mockPipeline) DescribeOnly(ctx context.Context, vp domain.Viewpoint, identity string) domain.PipelineResult {
	m.describes++
	m.lastIdentity = identity
	return m.describeFunc(ctx, vp, identity)
}

func (m *mockPipeline) SynthesizeOnly(ctx context.Context, promptText, identity string) domain.PipelineResult {
	m.synthesizes++
	m.lastIdentity = identity
	return m.synthesizeFunc(ctx, promptText, identity)
}

func (m *mockPipeline) DescribeAndSynthesize(ctx context.Context, vp domain.Viewpoint, identity string) domain.PipelineResult {
	m.lastIdentity = identity
	return m.composedFunc(ctx, vp, identity)
}

// --- Helpers ---

var testSecret = []byte("test-secret")

func newTestRouter(t *testing.T, p *mockPipeline) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	handler, err := NewHandler(p, nil)
	require.NoError(t, err)
	router, err := NewRouter(handler, testSecret)
	require.NoError(t, err)
	return router
}

func signedToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

func postJSON(t *testing.T, router *gin.Engine, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// モデル応答の原文として妥当な候補つき JSON を返します。
func rawCandidates(text string) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	})
	return raw
}
