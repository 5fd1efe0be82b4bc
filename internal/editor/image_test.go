package editor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVerifier 可控的图片可加载性校验
type fakeVerifier struct {
	err  error
	urls []string
}

func (v *fakeVerifier) VerifyLoad(_ context.Context, url string) error {
	v.urls = append(v.urls, url)
	return v.err
}

func TestGetImageInfo(t *testing.T) {
	e := newTestEditor(t)

	info, err := e.GetImageInfo("el-4")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.png", info.Src)
	assert.Equal(t, "pic", info.Alt)
}

func TestGetImageInfo_NotAnImage(t *testing.T) {
	e := newTestEditor(t)

	_, err := e.GetImageInfo("el-3")
	assert.ErrorIs(t, err, ErrNotAnImage)
}

func TestSetImageAlt(t *testing.T) {
	e := newTestEditor(t)

	require.NoError(t, e.SetImageAlt("el-4", "a better description"))

	info, err := e.GetImageInfo("el-4")
	require.NoError(t, err)
	assert.Equal(t, "a better description", info.Alt)
}

func TestSetImageSize(t *testing.T) {
	e := newTestEditor(t)

	require.NoError(t, e.SetImageSize("el-4", 320, 240))

	doc, err := e.Document()
	require.NoError(t, err)
	assert.Contains(t, doc, "width: 320px")
	assert.Contains(t, doc, "height: 240px")
}

func TestSetImageSize_IgnoresNonPositive(t *testing.T) {
	e := newTestEditor(t)

	require.NoError(t, e.SetImageSize("el-4", 320, 0))

	doc, err := e.Document()
	require.NoError(t, err)
	assert.Contains(t, doc, "width: 320px")
	assert.NotContains(t, doc, "height:")
}

func TestSetImageSize_NotAnImage(t *testing.T) {
	e := newTestEditor(t)
	assert.ErrorIs(t, e.SetImageSize("el-2", 100, 100), ErrNotAnImage)
}

func TestReplaceImageSrc(t *testing.T) {
	e := newTestEditor(t)
	v := &fakeVerifier{}

	err := e.ReplaceImageSrc(context.Background(), "el-4", "https://example.com/b.png", v)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/b.png"}, v.urls)

	info, err := e.GetImageInfo("el-4")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/b.png", info.Src)
}

func TestReplaceImageSrc_VerifyFailureKeepsOriginal(t *testing.T) {
	e := newTestEditor(t)
	v := &fakeVerifier{err: errors.New("broken image")}

	err := e.ReplaceImageSrc(context.Background(), "el-4", "https://example.com/broken.png", v)
	assert.Error(t, err)

	// 校验失败时原地址保持不变
	info, err := e.GetImageInfo("el-4")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.png", info.Src)
}

func TestReplaceImageSrc_NilVerifierSkipsCheck(t *testing.T) {
	e := newTestEditor(t)

	err := e.ReplaceImageSrc(context.Background(), "el-4", "https://example.com/c.png", nil)
	require.NoError(t, err)

	info, err := e.GetImageInfo("el-4")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/c.png", info.Src)
}
