package editor

import (
	"errors"
	"strings"

	"golang.org/x/net/html"
)

// ErrStyleNotAllowed 样式属性不在白名单内
var ErrStyleNotAllowed = errors.New("editor: style property not allowed")

// ErrClassExists 类名已存在
var ErrClassExists = errors.New("editor: class already present")

// allowedStyleProps 编辑面板允许修改的样式属性白名单
// 白名单之外的属性（position、z-index 等）容易把页面改坏，
// 需要更复杂的改动时应该走对话生成
var allowedStyleProps = map[string]bool{
	"text-align":       true,
	"font-size":        true,
	"color":            true,
	"background-color": true,
	"border-radius":    true,
	"padding":          true,
	"margin":           true,
	"width":            true,
	"height":           true,
}

// styleProp 一条内联样式声明
// 用切片而不是 map 保存，序列化时保持原有顺序
type styleProp struct {
	name  string
	value string
}

// parseStyleAttr 解析 style 属性值
// 按分号切分声明，按第一个冒号切分属性名和值
// 无法解析的声明丢弃
func parseStyleAttr(s string) []styleProp {
	var props []styleProp
	for _, decl := range strings.Split(s, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		idx := strings.Index(decl, ":")
		if idx <= 0 {
			continue
		}
		name := strings.TrimSpace(decl[:idx])
		value := strings.TrimSpace(decl[idx+1:])
		if name == "" || value == "" {
			continue
		}
		props = append(props, styleProp{name: strings.ToLower(name), value: value})
	}
	return props
}

// renderStyleAttr 把声明列表序列化回 style 属性值
func renderStyleAttr(props []styleProp) string {
	parts := make([]string, 0, len(props))
	for _, p := range props {
		parts = append(parts, p.name+": "+p.value)
	}
	return strings.Join(parts, "; ")
}

// setStyleProp 设置节点的一条内联样式
// 已存在同名声明时覆盖其值，保持位置不变
func setStyleProp(n *html.Node, name, value string) {
	props := parseStyleAttr(getAttr(n, "style"))
	found := false
	for i := range props {
		if props[i].name == name {
			props[i].value = value
			found = true
			break
		}
	}
	if !found {
		props = append(props, styleProp{name: name, value: value})
	}
	setAttr(n, "style", renderStyleAttr(props))
}

// removeStyleProp 删除节点的一条内联样式
// 删除后 style 属性为空时整个属性一并移除
func removeStyleProp(n *html.Node, name string) {
	props := parseStyleAttr(getAttr(n, "style"))
	kept := props[:0]
	for _, p := range props {
		if p.name != name {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		removeAttr(n, "style")
		return
	}
	setAttr(n, "style", renderStyleAttr(kept))
}

// getStyleProp 读取节点的一条内联样式，不存在返回空字符串
func getStyleProp(n *html.Node, name string) string {
	for _, p := range parseStyleAttr(getAttr(n, "style")) {
		if p.name == name {
			return p.value
		}
	}
	return ""
}

// SetStyle 设置元素的内联样式
// 只接受白名单内的属性
// 参数:
//   - nodeID: 元素标识
//   - name: 样式属性名（小写）
//   - value: 样式值
//
// 返回:
//   - error: 节点不存在或属性不在白名单内
func (e *Editor) SetStyle(nodeID, name, value string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if !allowedStyleProps[name] {
		return ErrStyleNotAllowed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.nodes[nodeID]
	if !ok {
		return ErrNodeNotFound
	}
	setStyleProp(n, name, value)
	return nil
}

// RemoveStyle 移除元素的一条内联样式
// 参数:
//   - nodeID: 元素标识
//   - name: 样式属性名
//
// 返回:
//   - error: 节点不存在或属性不在白名单内
func (e *Editor) RemoveStyle(nodeID, name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if !allowedStyleProps[name] {
		return ErrStyleNotAllowed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.nodes[nodeID]
	if !ok {
		return ErrNodeNotFound
	}
	removeStyleProp(n, name)
	return nil
}

// GetStyles 读取元素在白名单内的全部内联样式
// 用于编辑面板回显当前值
// 参数:
//   - nodeID: 元素标识
//
// 返回:
//   - map[string]string: 属性名到值的映射，只含白名单内已设置的属性
//   - error: 节点不存在
func (e *Editor) GetStyles(nodeID string) (map[string]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.nodes[nodeID]
	if !ok {
		return nil, ErrNodeNotFound
	}

	styles := make(map[string]string)
	for _, p := range parseStyleAttr(getAttr(n, "style")) {
		if allowedStyleProps[p.name] {
			styles[p.name] = p.value
		}
	}
	return styles, nil
}

// AddClass 给元素添加类名
// 类名已存在时拒绝，避免 class 属性里出现重复项
// 参数:
//   - nodeID: 元素标识
//   - class: 类名
//
// 返回:
//   - error: 节点不存在或类名已存在
func (e *Editor) AddClass(nodeID, class string) error {
	class = strings.TrimSpace(class)

	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.nodes[nodeID]
	if !ok {
		return ErrNodeNotFound
	}

	classes := strings.Fields(getAttr(n, "class"))
	for _, c := range classes {
		if c == class {
			return ErrClassExists
		}
	}
	classes = append(classes, class)
	setAttr(n, "class", strings.Join(classes, " "))
	return nil
}

// RemoveClass 移除元素的类名
// 类名不存在时静默返回
// 参数:
//   - nodeID: 元素标识
//   - class: 类名
//
// 返回:
//   - error: 节点不存在
func (e *Editor) RemoveClass(nodeID, class string) error {
	class = strings.TrimSpace(class)

	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.nodes[nodeID]
	if !ok {
		return ErrNodeNotFound
	}

	classes := strings.Fields(getAttr(n, "class"))
	kept := classes[:0]
	for _, c := range classes {
		if c != class {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		removeAttr(n, "class")
		return nil
	}
	setAttr(n, "class", strings.Join(kept, " "))
	return nil
}

// ClassList 返回元素当前的类名列表
// 参数:
//   - nodeID: 元素标识
//
// 返回:
//   - []string: 类名列表
//   - error: 节点不存在
func (e *Editor) ClassList(nodeID string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.nodes[nodeID]
	if !ok {
		return nil, ErrNodeNotFound
	}
	return strings.Fields(getAttr(n, "class")), nil
}
