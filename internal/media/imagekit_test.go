package media

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arzuno-builder-server/internal/config"
)

func newTestService() *Service {
	return NewService(config.ImageKitConfig{
		PublicKey:   "public_test",
		PrivateKey:  "private_test",
		URLEndpoint: "https://ik.imagekit.io/demo/",
	})
}

func TestConfigured(t *testing.T) {
	assert.True(t, newTestService().Configured())
	assert.False(t, NewService(config.ImageKitConfig{}).Configured())
}

func TestGenerateAuthParams(t *testing.T) {
	s := newTestService()

	params, err := s.GenerateAuthParams(30 * time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, params.Token)
	assert.Greater(t, params.Expire, time.Now().Unix())

	// 签名必须能用私钥重算验证
	mac := hmac.New(sha1.New, []byte("private_test"))
	mac.Write([]byte(params.Token + strconv.FormatInt(params.Expire, 10)))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), params.Signature)
}

func TestGenerateAuthParams_NotConfigured(t *testing.T) {
	s := NewService(config.ImageKitConfig{})
	_, err := s.GenerateAuthParams(time.Minute)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestTransformURL(t *testing.T) {
	s := newTestService()

	tests := []struct {
		name       string
		filePath   string
		transforms []Transform
		expected   string
	}{
		{
			name:     "无变换",
			filePath: "photos/a.png",
			expected: "https://ik.imagekit.io/demo/photos/a.png",
		},
		{
			name:       "缩放",
			filePath:   "/photos/a.png",
			transforms: []Transform{{Kind: "resize", Width: 300, Height: 200}},
			expected:   "https://ik.imagekit.io/demo/tr:w-300,h-200,c-at_max/photos/a.png",
		},
		{
			name:     "多个变换串联",
			filePath: "a.png",
			transforms: []Transform{
				{Kind: "resize", Width: 300, Height: 200},
				{Kind: "dropshadow"},
			},
			expected: "https://ik.imagekit.io/demo/tr:w-300,h-200,c-at_max:e-shadow/a.png",
		},
		{
			name:       "智能放大",
			filePath:   "a.png",
			transforms: []Transform{{Kind: "upscale"}},
			expected:   "https://ik.imagekit.io/demo/tr:e-upscale/a.png",
		},
		{
			name:       "背景移除",
			filePath:   "a.png",
			transforms: []Transform{{Kind: "bgremove"}},
			expected:   "https://ik.imagekit.io/demo/tr:e-removedotbg/a.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.TransformURL(tt.filePath, tt.transforms)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestTransformURL_UnknownKind(t *testing.T) {
	s := newTestService()
	_, err := s.TransformURL("a.png", []Transform{{Kind: "sepia"}})
	assert.Error(t, err)
}

func TestTransformURL_NotConfigured(t *testing.T) {
	s := NewService(config.ImageKitConfig{})
	_, err := s.TransformURL("a.png", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestVerifyLoad(t *testing.T) {
	t.Run("可加载的图片", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte("fake-png-bytes"))
		}))
		defer server.Close()

		s := newTestService()
		assert.NoError(t, s.VerifyLoad(context.Background(), server.URL))
	})

	t.Run("非 200 状态码", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		s := newTestService()
		assert.ErrorIs(t, s.VerifyLoad(context.Background(), server.URL), ErrLoadFailed)
	})

	t.Run("内容类型不是图片", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html>not an image</html>"))
		}))
		defer server.Close()

		s := newTestService()
		assert.ErrorIs(t, s.VerifyLoad(context.Background(), server.URL), ErrLoadFailed)
	})

	t.Run("连接失败", func(t *testing.T) {
		s := newTestService()
		assert.ErrorIs(t, s.VerifyLoad(context.Background(), "http://127.0.0.1:1/none.png"), ErrLoadFailed)
	})
}
