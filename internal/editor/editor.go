// Package editor 实现预览页面的直接编辑能力
// 服务端持有页面片段的 DOM 树，前端只上报指针和键盘事件，
// 所有修改都在服务端的树上进行，再把序列化结果推回预览端
package editor

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// 定义错误类型
var (
	ErrNodeNotFound = errors.New("editor: node not found") // 节点不存在
	ErrNotAnImage   = errors.New("editor: node is not an image")
)

// State 编辑器的交互状态
type State int

// 编辑器状态常量
const (
	StateIdle     State = iota // 空闲，没有悬停和选中
	StateHovering              // 指针悬停在某个元素上
	StateSelected              // 某个元素被选中
)

// 编辑器施加的视觉标记
// 悬停用蓝色虚线，选中用红色实线，二者都带偏移避免贴边
const (
	hoverOutline    = "2px dashed #3b82f6"
	selectedOutline = "2px solid #ef4444"
	outlineOffset   = "2px"
)

// nodeIDAttr 编辑器分配给每个元素的标识属性
// 前端上报事件时携带该标识
const nodeIDAttr = "data-editor-id"

// Editor 单个画框的编辑会话
// 从画框当前保存的片段构建，编辑期间渲染器暂停推送，
// 会话结束时把修改后的片段写回
type Editor struct {
	mu       sync.Mutex
	root     *html.Node            // 容器节点，children 即片段的顶层元素
	nodes    map[string]*html.Node // 标识到节点的映射
	nextID   int                   // 标识分配计数
	state    State                 // 当前交互状态
	hovered  string                // 悬停元素的标识
	selected string                // 选中元素的标识
}

// New 从 HTML 片段构建编辑会话
// 片段按 body 上下文解析，解析器的容错与浏览器一致
// 参数:
//   - fragment: 画框当前保存的 HTML 片段
//
// 返回:
//   - *Editor: 编辑会话
//   - error: 解析错误
func New(fragment string) (*Editor, error) {
	ctx := &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
	children, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return nil, err
	}

	// 挂到一个容器节点下，便于统一遍历和序列化
	root := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	for _, child := range children {
		root.AppendChild(child)
	}

	e := &Editor{
		root:  root,
		nodes: make(map[string]*html.Node),
	}
	e.assignIDs(root)
	return e, nil
}

// assignIDs 按文档顺序给所有元素节点分配标识
func (e *Editor) assignIDs(n *html.Node) {
	if n.Type == html.ElementNode && n != e.root {
		e.nextID++
		id := "el-" + strconv.Itoa(e.nextID)
		setAttr(n, nodeIDAttr, id)
		e.nodes[id] = n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		e.assignIDs(child)
	}
}

// State 返回当前交互状态
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Selected 返回当前选中元素的标识
// 没有选中时返回空字符串
func (e *Editor) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// Hovered 返回当前悬停元素的标识
func (e *Editor) Hovered() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hovered
}

// PointerOver 处理指针进入元素
// 选中的元素不再叠加悬停标记
// 参数:
//   - nodeID: 元素标识
//
// 返回:
//   - error: 节点不存在
func (e *Editor) PointerOver(nodeID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.nodes[nodeID]
	if !ok {
		return ErrNodeNotFound
	}
	if nodeID == e.selected {
		return nil
	}

	// 清掉旧的悬停标记
	if e.hovered != "" && e.hovered != e.selected {
		if old, ok := e.nodes[e.hovered]; ok {
			clearOutline(old)
		}
	}

	e.hovered = nodeID
	applyOutline(n, hoverOutline)
	if e.state == StateIdle {
		e.state = StateHovering
	}
	return nil
}

// PointerOut 处理指针离开元素
// 参数:
//   - nodeID: 元素标识
//
// 返回:
//   - error: 节点不存在
func (e *Editor) PointerOut(nodeID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.nodes[nodeID]
	if !ok {
		return ErrNodeNotFound
	}
	if e.hovered != nodeID {
		return nil
	}

	e.hovered = ""
	// 选中标记由 Escape 或重新选择清除，这里只清悬停标记
	if nodeID != e.selected {
		clearOutline(n)
	}
	if e.state == StateHovering {
		e.state = StateIdle
	}
	return nil
}

// Click 处理元素点击，建立选中
// 同一时刻最多只有一个元素被选中，点击新元素时
// 旧选中的标记和可编辑状态全部撤销
// 图片不进入文本编辑，只有选中标记
// 参数:
//   - nodeID: 元素标识
//
// 返回:
//   - error: 节点不存在
func (e *Editor) Click(nodeID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.nodes[nodeID]
	if !ok {
		return ErrNodeNotFound
	}

	// 撤销旧的选中
	if e.selected != "" && e.selected != nodeID {
		if old, ok := e.nodes[e.selected]; ok {
			clearOutline(old)
			removeAttr(old, "contenteditable")
		}
	}

	e.selected = nodeID
	e.hovered = ""
	e.state = StateSelected
	applyOutline(n, selectedOutline)

	// 图片不可进行内联文本编辑
	if !isImage(n) {
		setAttr(n, "contenteditable", "true")
	}
	return nil
}

// Escape 清除当前选中，回到空闲状态
func (e *Editor) Escape() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.selected != "" {
		if n, ok := e.nodes[e.selected]; ok {
			clearOutline(n)
			removeAttr(n, "contenteditable")
		}
	}
	if e.hovered != "" {
		if n, ok := e.nodes[e.hovered]; ok {
			clearOutline(n)
		}
	}
	e.selected = ""
	e.hovered = ""
	e.state = StateIdle
}

// UpdateText 替换元素的全部内容为纯文本
// 前端在 contenteditable 元素失焦时上报编辑后的文本
// 参数:
//   - nodeID: 元素标识
//   - text: 新的文本内容
//
// 返回:
//   - error: 节点不存在
func (e *Editor) UpdateText(nodeID, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.nodes[nodeID]
	if !ok {
		return ErrNodeNotFound
	}

	// 移除所有子节点，换成单个文本节点
	for n.FirstChild != nil {
		removed := n.FirstChild
		n.RemoveChild(removed)
		e.forgetSubtree(removed)
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return nil
}

// forgetSubtree 从标识映射中移除子树里的所有元素
func (e *Editor) forgetSubtree(n *html.Node) {
	if n.Type == html.ElementNode {
		if id := getAttr(n, nodeIDAttr); id != "" {
			delete(e.nodes, id)
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		e.forgetSubtree(child)
	}
}

// Document 序列化当前的编辑文档
// 保留编辑器的标识属性和视觉标记，用于推送给预览端
// 返回:
//   - string: HTML 片段
//   - error: 序列化错误
func (e *Editor) Document() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return renderChildren(e.root)
}

// Export 导出干净的片段
// 编辑会话结束时调用，剥离编辑器施加的所有痕迹:
// 标识属性、轮廓样式、contenteditable
// 返回:
//   - string: 可写回画框的 HTML 片段
//   - error: 序列化错误
func (e *Editor) Export() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	stripEditorArtifacts(e.root)
	// 剥离后当前会话的标记已失效，回到空闲状态
	e.selected = ""
	e.hovered = ""
	e.state = StateIdle
	return renderChildren(e.root)
}

// stripEditorArtifacts 递归剥离编辑器痕迹
func stripEditorArtifacts(n *html.Node) {
	if n.Type == html.ElementNode {
		removeAttr(n, nodeIDAttr)
		removeAttr(n, "contenteditable")
		clearOutline(n)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		stripEditorArtifacts(child)
	}
}

// renderChildren 序列化容器节点的所有子节点
func renderChildren(root *html.Node) (string, error) {
	var b strings.Builder
	for child := root.FirstChild; child != nil; child = child.NextSibling {
		if err := html.Render(&b, child); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// applyOutline 给元素施加轮廓标记
func applyOutline(n *html.Node, outline string) {
	setStyleProp(n, "outline", outline)
	setStyleProp(n, "outline-offset", outlineOffset)
}

// clearOutline 清除元素的轮廓标记
func clearOutline(n *html.Node) {
	removeStyleProp(n, "outline")
	removeStyleProp(n, "outline-offset")
}

// isImage 判断元素是否是图片
func isImage(n *html.Node) bool {
	return n.DataAtom == atom.Img
}

// getAttr 读取元素属性值，不存在返回空字符串
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// setAttr 设置元素属性，已存在则覆盖
func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// removeAttr 删除元素属性
func removeAttr(n *html.Node, key string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}
