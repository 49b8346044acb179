package credentials

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataStrategy_Token(t *testing.T) {
	ctx := context.Background()

	t.Run("成功時はトークンと有効期限を返す", func(t *testing.T) {
		var gotFlavor string
		doer := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
			gotFlavor = req.Header.Get("Metadata-Flavor")
			return jsonResponse(http.StatusOK, `{"access_token":"meta-token","expires_in":3600,"token_type":"Bearer"}`), nil
		}}

		s := NewMetadataStrategy(doer)
		token, err := s.Token(ctx)

		require.NoError(t, err)
		assert.Equal(t, "meta-token", token.Value)
		assert.False(t, token.ExpiresAt.IsZero())
		assert.Equal(t, "Google", gotFlavor, "メタデータサーバ必須ヘッダが付与されるはず")
	})

	t.Run("ネットワーク到達不能はエラー（フォールスルー対象）", func(t *testing.T) {
		doer := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("no route to host")
		}}

		_, err := NewMetadataStrategy(doer).Token(ctx)
		assert.Error(t, err)
	})

	t.Run("非 2xx はエラー", func(t *testing.T) {
		doer := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusNotFound, "not found"), nil
		}}

		_, err := NewMetadataStrategy(doer).Token(ctx)
		assert.Error(t, err)
	})

	t.Run("空のトークンはエラー", func(t *testing.T) {
		doer := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"access_token":"","expires_in":0}`), nil
		}}

		_, err := NewMetadataStrategy(doer).Token(ctx)
		assert.Error(t, err)
	})
}

func TestGcloudStrategy_Token(t *testing.T) {
	ctx := context.Background()

	t.Run("標準出力をトリムしてトークンとして採用する", func(t *testing.T) {
		runner := &mockRunner{stdout: []byte("gcloud-token\n")}

		s := NewGcloudStrategy(runner)
		token, err := s.Token(ctx)

		require.NoError(t, err)
		assert.Equal(t, "gcloud-token", token.Value)
		assert.Equal(t, "gcloud", runner.name)
		assert.Equal(t, []string{"auth", "print-access-token"}, runner.args)
	})

	t.Run("非ゼロ終了は失敗", func(t *testing.T) {
		runner := &mockRunner{err: errors.New("exit status 1")}

		_, err := NewGcloudStrategy(runner).Token(ctx)
		assert.Error(t, err)
	})

	t.Run("標準エラー出力がある場合は失敗", func(t *testing.T) {
		runner := &mockRunner{stdout: []byte("tok"), stderr: []byte("WARNING: credentials expired")}

		_, err := NewGcloudStrategy(runner).Token(ctx)
		assert.Error(t, err)
	})

	t.Run("空の標準出力は失敗", func(t *testing.T) {
		runner := &mockRunner{stdout: []byte("  \n")}

		_, err := NewGcloudStrategy(runner).Token(ctx)
		assert.Error(t, err)
	})
}
