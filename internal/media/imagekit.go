// Package media 封装 ImageKit 媒体服务
// 提供上传鉴权、服务端上传、URL 变换和图片可加载性校验
package media

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"arzuno-builder-server/internal/config"
	"arzuno-builder-server/pkg/util"
)

// uploadEndpoint ImageKit 的上传接口地址
const uploadEndpoint = "https://upload.imagekit.io/api/v1/files/upload"

// 定义错误类型
var (
	ErrNotConfigured = errors.New("media: imagekit is not configured")
	ErrLoadFailed    = errors.New("media: image failed to load")
)

// Transform 一次 URL 变换
// Kind 取值: resize / dropshadow / upscale / bgremove
type Transform struct {
	Kind   string `json:"kind"`
	Width  int    `json:"width,omitempty"`  // resize 专用
	Height int    `json:"height,omitempty"` // resize 专用
}

// AuthParams 前端直传所需的鉴权参数
// 前端拿到这三个值后直接调用 ImageKit 的上传接口
type AuthParams struct {
	Token     string `json:"token"`     // 一次性随机令牌
	Expire    int64  `json:"expire"`    // 过期时间戳（秒）
	Signature string `json:"signature"` // HMAC-SHA1 签名
}

// UploadResult 上传结果
type UploadResult struct {
	FileID   string `json:"fileId"`   // ImageKit 文件标识
	Name     string `json:"name"`     // 文件名
	URL      string `json:"url"`      // 可访问的完整 URL
	FilePath string `json:"filePath"` // 端点内的相对路径
}

// Service ImageKit 媒体服务
type Service struct {
	publicKey   string
	privateKey  string
	urlEndpoint string // 形如 https://ik.imagekit.io/your_id
	httpClient  *http.Client
}

// NewService 创建媒体服务实例
// 参数:
//   - cfg: ImageKit 配置
//
// 返回:
//   - *Service: 服务实例
func NewService(cfg config.ImageKitConfig) *Service {
	return &Service{
		publicKey:   cfg.PublicKey,
		privateKey:  cfg.PrivateKey,
		urlEndpoint: strings.TrimRight(cfg.URLEndpoint, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Configured 检查服务是否已配置
func (s *Service) Configured() bool {
	return s.privateKey != "" && s.urlEndpoint != ""
}

// GenerateAuthParams 生成前端直传的鉴权参数
// 签名算法: HMAC-SHA1(token + expire, privateKey)，与 ImageKit
// 服务端 SDK 的实现一致
// 参数:
//   - validity: 鉴权参数的有效期
//
// 返回:
//   - *AuthParams: 鉴权参数
//   - error: 服务未配置
func (s *Service) GenerateAuthParams(validity time.Duration) (*AuthParams, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}

	token := util.GenerateUUID()
	expire := time.Now().Add(validity).Unix()

	mac := hmac.New(sha1.New, []byte(s.privateKey))
	mac.Write([]byte(token + strconv.FormatInt(expire, 10)))
	signature := hex.EncodeToString(mac.Sum(nil))

	return &AuthParams{
		Token:     token,
		Expire:    expire,
		Signature: signature,
	}, nil
}

// Upload 服务端上传图片
// 用于 AI 配图流程，前端不经手图片数据
// 参数:
//   - ctx: 上下文
//   - fileName: 目标文件名
//   - data: 图片数据
//
// 返回:
//   - *UploadResult: 上传结果
//   - error: 服务未配置、网络错误或上游拒绝
func (s *Service) Upload(ctx context.Context, fileName string, data []byte) (*UploadResult, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := writer.WriteField("fileName", fileName); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadEndpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	// ImageKit 的服务端接口用私钥做 Basic Auth，密码为空
	req.SetBasicAuth(s.privateKey, "")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media: upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("media: upload rejected with status %d: %s", resp.StatusCode, string(msg))
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("media: decode upload response: %w", err)
	}
	return &result, nil
}

// TransformURL 构造带变换参数的图片 URL
// 变换通过 URL 路径段表达，多个变换用冒号串联:
//
//	https://ik.imagekit.io/id/tr:w-300,h-200,c-at_max:e-shadow/photo.jpg
//
// 参数:
//   - filePath: 端点内的相对路径
//   - transforms: 变换列表，按顺序应用
//
// 返回:
//   - string: 变换后的 URL，无变换时返回原始 URL
//   - error: 服务未配置或变换类型未知
func (s *Service) TransformURL(filePath string, transforms []Transform) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}

	filePath = strings.TrimLeft(filePath, "/")
	if len(transforms) == 0 {
		return s.urlEndpoint + "/" + filePath, nil
	}

	segments := make([]string, 0, len(transforms))
	for _, t := range transforms {
		seg, err := transformSegment(t)
		if err != nil {
			return "", err
		}
		segments = append(segments, seg)
	}

	return s.urlEndpoint + "/tr:" + strings.Join(segments, ":") + "/" + filePath, nil
}

// transformSegment 把一次变换翻译成 URL 参数段
func transformSegment(t Transform) (string, error) {
	switch t.Kind {
	case "resize":
		// c-at_max 保持宽高比，在给定框内缩放
		return fmt.Sprintf("w-%d,h-%d,c-at_max", t.Width, t.Height), nil
	case "dropshadow":
		return "e-shadow", nil
	case "upscale":
		return "e-upscale", nil
	case "bgremove":
		return "e-removedotbg", nil
	default:
		return "", fmt.Errorf("media: unknown transform kind %q", t.Kind)
	}
}

// GeneratePlaceholder 生成占位图并上传
// AI 配图在没有接入真正的生图模型前，用 placehold.co
// 按描述文本生成占位图，走一遍完整的上传管线
// 参数:
//   - ctx: 上下文
//   - text: 占位图上显示的文本
//   - width: 宽度（像素）
//   - height: 高度（像素）
//
// 返回:
//   - *UploadResult: 上传结果
//   - error: 生成或上传失败
func (s *Service) GeneratePlaceholder(ctx context.Context, text string, width, height int) (*UploadResult, error) {
	if width <= 0 {
		width = 600
	}
	if height <= 0 {
		height = 400
	}

	src := fmt.Sprintf("https://placehold.co/%dx%d.png?text=%s",
		width, height, url.QueryEscape(text))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media: fetch placeholder: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media: placeholder source returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return nil, err
	}

	return s.Upload(ctx, util.GenerateUploadFileName("png"), data)
}

// VerifyLoad 校验图片 URL 可加载
// 编辑器替换图片前调用，失败的变换（如配额用尽）不会写进页面
// 参数:
//   - ctx: 上下文
//   - imageURL: 图片地址
//
// 返回:
//   - error: 无法加载时返回 ErrLoadFailed
func (s *Service) VerifyLoad(ctx context.Context, imageURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	defer resp.Body.Close()
	// 消费掉响应体以复用连接，内容本身不需要
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024*1024))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrLoadFailed, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return fmt.Errorf("%w: unexpected content type %s", ErrLoadFailed, contentType)
	}
	return nil
}
