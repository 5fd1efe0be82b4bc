package editor

import (
	"context"
	"strconv"
)

// ImageVerifier 图片可加载性校验
// 由媒体服务实现，替换 src 前先确认新地址能正常加载
type ImageVerifier interface {
	// VerifyLoad 确认 URL 指向一张可加载的图片
	VerifyLoad(ctx context.Context, url string) error
}

// ImageInfo 图片元素的当前信息
type ImageInfo struct {
	Src string `json:"src"` // 图片地址
	Alt string `json:"alt"` // 替代文本
}

// GetImageInfo 读取图片元素的信息
// 参数:
//   - nodeID: 元素标识
//
// 返回:
//   - *ImageInfo: 图片信息
//   - error: 节点不存在或不是图片
func (e *Editor) GetImageInfo(nodeID string) (*ImageInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.nodes[nodeID]
	if !ok {
		return nil, ErrNodeNotFound
	}
	if !isImage(n) {
		return nil, ErrNotAnImage
	}
	return &ImageInfo{
		Src: getAttr(n, "src"),
		Alt: getAttr(n, "alt"),
	}, nil
}

// SetImageAlt 设置图片的替代文本
// 参数:
//   - nodeID: 元素标识
//   - alt: 替代文本
//
// 返回:
//   - error: 节点不存在或不是图片
func (e *Editor) SetImageAlt(nodeID, alt string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.nodes[nodeID]
	if !ok {
		return ErrNodeNotFound
	}
	if !isImage(n) {
		return ErrNotAnImage
	}
	setAttr(n, "alt", alt)
	return nil
}

// SetImageSize 设置图片的显示尺寸
// 写入内联样式而不是 width/height 属性，
// 避免与生成片段里的 Tailwind 类产生属性层面的冲突
// 参数:
//   - nodeID: 元素标识
//   - width: 宽度（像素），<= 0 时不设置
//   - height: 高度（像素），<= 0 时不设置
//
// 返回:
//   - error: 节点不存在或不是图片
func (e *Editor) SetImageSize(nodeID string, width, height int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.nodes[nodeID]
	if !ok {
		return ErrNodeNotFound
	}
	if !isImage(n) {
		return ErrNotAnImage
	}

	if width > 0 {
		setStyleProp(n, "width", strconv.Itoa(width)+"px")
	}
	if height > 0 {
		setStyleProp(n, "height", strconv.Itoa(height)+"px")
	}
	return nil
}

// ReplaceImageSrc 替换图片地址
// 先校验新地址可加载，校验通过才写入 DOM；
// 校验失败时原地址保持不变，调用方可把错误反馈给前端
// 参数:
//   - ctx: 上下文
//   - nodeID: 元素标识
//   - newSrc: 新的图片地址（可能是变换后的 URL 或新上传的图片）
//   - verifier: 可加载性校验，传 nil 跳过校验
//
// 返回:
//   - error: 节点不存在、不是图片或校验失败
func (e *Editor) ReplaceImageSrc(ctx context.Context, nodeID, newSrc string, verifier ImageVerifier) error {
	// 校验在锁外进行，网络请求不应阻塞其他编辑操作
	e.mu.Lock()
	n, ok := e.nodes[nodeID]
	if !ok {
		e.mu.Unlock()
		return ErrNodeNotFound
	}
	if !isImage(n) {
		e.mu.Unlock()
		return ErrNotAnImage
	}
	e.mu.Unlock()

	if verifier != nil {
		if err := verifier.VerifyLoad(ctx, newSrc); err != nil {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// 校验期间节点可能已被文本编辑移除，重新查一次
	n, ok = e.nodes[nodeID]
	if !ok {
		return ErrNodeNotFound
	}
	setAttr(n, "src", newSrc)
	return nil
}
