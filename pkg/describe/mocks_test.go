package describe

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"testing"

	"google.golang.org/genai"

	"github.com/shouni/streetview-scene-kit/pkg/credentials"
	"github.com/shouni/streetview-scene-kit/pkg/domain"
	"github.com/shouni/streetview-scene-kit/pkg/vertexapi"
)

// --- Mocks ---

type mockHTTPClient struct {
	data    []byte
	err     error
	lastURL string
	calls   int
}

func (m *mockHTTPClient) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	m.calls++
	m.lastURL = url
	return m.data, m.err
}

// インターフェースを満たすための空実装群です。

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return nil, nil
}

func (m *mockHTTPClient) IsSafeURL(urlStr string) (bool, error) {
	return true, nil
}

func (m *mockHTTPClient) IsSecureServiceURL(serviceURL string) bool {
	return true
}

func (m *mockHTTPClient) DoRequest(req *http.Request) ([]byte, error) {
	return nil, nil
}

func (m *mockHTTPClient) FetchAndDecodeJSON(ctx context.Context, url string, v any) error {
	return nil
}

func (m *mockHTTPClient) PostJSONAndFetchBytes(ctx context.Context, url string, data any) ([]byte, error) {
	return nil, nil
}

func (m *mockHTTPClient) PostRawBodyAndFetchBytes(ctx context.Context, url string, body []byte, contentType string) ([]byte, error) {
	return nil, nil
}

type mockReader struct {
	data    []byte
	err     error
	lastURI string
}

func (m *mockReader) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	m.lastURI = uri
	if m.err != nil {
		return nil, m.err
	}
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

func (m *mockReader) List(ctx context.Context, uri string, fn func(string) error) error {
	return nil
}

type mockFetcher struct {
	data  []byte
	err   error
	calls int
}

func (m *mockFetcher) Fetch(ctx context.Context, vp domain.Viewpoint) ([]byte, error) {
	m.calls++
	return m.data, m.err
}

type mockVertex struct {
	resp     *genai.GenerateContentResponse
	raw      json.RawMessage
	err      error
	calls    int
	lastReq  *vertexapi.GenerateContentRequest
	lastTok  credentials.AccessToken
	lastName string
}

func (m *mockVertex) GenerateContent(ctx context.Context, token credentials.AccessToken, model string, req *vertexapi.GenerateContentRequest) (*genai.GenerateContentResponse, json.RawMessage, error) {
	m.calls++
	m.lastReq = req
	m.lastTok = token
	m.lastName = model
	return m.resp, m.raw, m.err
}

// --- Fixtures ---

// dummyImage はテスト用のダミー画像（8x8 単色）を生成します。
func dummyImage(t *testing.T, format string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{0, 128, 255, 255})
		}
	}

	buf := new(bytes.Buffer)
	var err error
	switch format {
	case "png":
		err = png.Encode(buf, img)
	case "jpeg":
		err = jpeg.Encode(buf, img, nil)
	default:
		t.Fatalf("unsupported format: %s", format)
	}
	if err != nil {
		t.Fatalf("failed to encode dummy image: %v", err)
	}
	return buf.Bytes()
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []*genai.Part{{Text: text}},
			},
		}},
	}
}
