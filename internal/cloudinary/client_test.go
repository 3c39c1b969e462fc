package cloudinary

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClient(baseURL string) *Client {
	c := New("demo", "key", "secret", "qrattend")
	c.BaseURL = baseURL
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

func TestNewRequiresCredentials(t *testing.T) {
	assert.Nil(t, New("", "key", "secret", ""))
	assert.Nil(t, New("demo", "key", "", ""))
	assert.NotNil(t, New("demo", "key", "secret", ""))
}

func TestSignExcludesKeyAndSorts(t *testing.T) {
	c := fixedClient("")
	got := c.sign(map[string]string{
		"timestamp": "1700000000",
		"api_key":   "key",
		"public_id": "session-1",
		"folder":    "qrattend",
	})
	want := fmt.Sprintf("%x", sha1.Sum([]byte("folder=qrattend&public_id=session-1&timestamp=1700000000secret")))
	assert.Equal(t, want, got)
}

func TestUploadPNG(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/image/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "session-1", r.FormValue("public_id"))
		assert.Equal(t, "key", r.FormValue("api_key"))
		assert.NotEmpty(t, r.FormValue("signature"))

		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		assert.Equal(t, []byte("png-bytes"), data)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"public_id":"qrattend/session-1","secure_url":"https://cdn/x.png","width":256,"height":256}`))
	}))
	defer srv.Close()

	res, err := fixedClient(srv.URL).UploadPNG(context.Background(), []byte("png-bytes"), "session-1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/x.png", res.SecureURL)
	assert.Equal(t, 256, res.Width)
}

func TestUploadPNGFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Invalid Signature"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := fixedClient(srv.URL).UploadPNG(context.Background(), []byte("x"), "s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
