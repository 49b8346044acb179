package describe

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/streetview-scene-kit/pkg/domain"
	"github.com/shouni/streetview-scene-kit/pkg/imgutil"
)

const (
	// DefaultSourceURL はストリートビュー静的画像 API のエンドポイントです。
	DefaultSourceURL = "https://maps.googleapis.com/maps/api/streetview"

	// 生成画像側のアスペクト比（16:9）と一致させるため固定
	panoramaWidth  = 1024
	panoramaHeight = 576

	jpegQuality = 75
)

// Fetcher は視点に対応するパノラマ画像の取得を担当します。
// 取得元が gs:// の場合はリモートストレージ上のフィクスチャを、
// http(s) の場合はストリートビュー静的画像 API を参照します。
type Fetcher struct {
	httpClient httpkit.ClientInterface
	reader     remoteio.InputReader
	apiKey     string
	source     string
}

// NewFetcher は依存関係を注入して Fetcher を初期化します。
// reader は source が gs:// の場合のみ必須です（nil 許容）。
// source が空の場合は DefaultSourceURL を使います。
func NewFetcher(httpClient httpkit.ClientInterface, reader remoteio.InputReader, apiKey, source string) (*Fetcher, error) {
	if source == "" {
		source = DefaultSourceURL
	}
	if strings.HasPrefix(source, "gs://") {
		if reader == nil {
			return nil, fmt.Errorf("reader is required for gs:// source")
		}
	} else {
		if httpClient == nil {
			return nil, fmt.Errorf("httpClient is required")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("apiKey is required")
		}
	}
	return &Fetcher{httpClient: httpClient, reader: reader, apiKey: apiKey, source: source}, nil
}

// Fetch は視点に対応するパノラマ JPEG を返します。
// 取得失敗は説明段で唯一のハード失敗であり domain.ErrSourceImageUnavailable に
// 分類されます。元画像なしでは後段に意味がないためです。
func (f *Fetcher) Fetch(ctx context.Context, vp domain.Viewpoint) ([]byte, error) {
	uri := f.sourceURI(vp)

	var data []byte
	var err error
	if strings.HasPrefix(uri, "gs://") {
		data, err = f.readRemote(ctx, uri)
	} else {
		data, err = f.httpClient.FetchBytes(ctx, uri)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceImageUnavailable, err)
	}

	jpegData, err := imgutil.NormalizeJPEG(data, jpegQuality)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceImageUnavailable, err)
	}
	return jpegData, nil
}

func (f *Fetcher) readRemote(ctx context.Context, uri string) ([]byte, error) {
	rc, err := f.reader.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// sourceURI は取得元 URI を組み立てます。gs:// の場合は視点から決まる
// 固定名のオブジェクト（オフライン開発用フィクスチャ）を参照します。
func (f *Fetcher) sourceURI(vp domain.Viewpoint) string {
	if strings.HasPrefix(f.source, "gs://") {
		return fmt.Sprintf("%s/%s_%s_%s_%s.jpg",
			strings.TrimSuffix(f.source, "/"),
			coord(vp.Latitude), coord(vp.Longitude), coord(vp.Heading), coord(vp.Pitch))
	}

	v := url.Values{}
	v.Set("size", fmt.Sprintf("%dx%d", panoramaWidth, panoramaHeight))
	v.Set("location", coord(vp.Latitude)+","+coord(vp.Longitude))
	v.Set("heading", coord(vp.Heading))
	v.Set("pitch", coord(vp.Pitch))
	v.Set("key", f.apiKey)
	return f.source + "?" + v.Encode()
}

func coord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
