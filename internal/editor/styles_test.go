package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetStyle(t *testing.T) {
	e := newTestEditor(t)

	require.NoError(t, e.SetStyle("el-3", "color", "#ff0000"))
	require.NoError(t, e.SetStyle("el-3", "font-size", "18px"))

	styles, err := e.GetStyles("el-3")
	require.NoError(t, err)
	assert.Equal(t, "#ff0000", styles["color"])
	assert.Equal(t, "18px", styles["font-size"])
}

func TestSetStyle_OverwritesValue(t *testing.T) {
	e := newTestEditor(t)

	require.NoError(t, e.SetStyle("el-3", "color", "#ff0000"))
	require.NoError(t, e.SetStyle("el-3", "color", "#00ff00"))

	styles, err := e.GetStyles("el-3")
	require.NoError(t, err)
	assert.Equal(t, "#00ff00", styles["color"])
}

func TestSetStyle_WhitelistEnforced(t *testing.T) {
	e := newTestEditor(t)

	assert.ErrorIs(t, e.SetStyle("el-3", "position", "absolute"), ErrStyleNotAllowed)
	assert.ErrorIs(t, e.SetStyle("el-3", "z-index", "9999"), ErrStyleNotAllowed)
	assert.ErrorIs(t, e.RemoveStyle("el-3", "display"), ErrStyleNotAllowed)
}

func TestSetStyle_NameNormalized(t *testing.T) {
	e := newTestEditor(t)

	// 属性名大小写和首尾空白不敏感
	require.NoError(t, e.SetStyle("el-3", " Color ", "#123456"))

	styles, err := e.GetStyles("el-3")
	require.NoError(t, err)
	assert.Equal(t, "#123456", styles["color"])
}

func TestRemoveStyle(t *testing.T) {
	e := newTestEditor(t)

	require.NoError(t, e.SetStyle("el-3", "padding", "8px"))
	require.NoError(t, e.RemoveStyle("el-3", "padding"))

	styles, err := e.GetStyles("el-3")
	require.NoError(t, err)
	assert.NotContains(t, styles, "padding")

	// style 属性清空后整个属性移除
	doc, err := e.Document()
	require.NoError(t, err)
	assert.NotContains(t, doc, "style=")
}

func TestSetStyle_UnknownNode(t *testing.T) {
	e := newTestEditor(t)
	assert.ErrorIs(t, e.SetStyle("el-99", "color", "#fff"), ErrNodeNotFound)
}

func TestAddClass(t *testing.T) {
	e := newTestEditor(t)

	require.NoError(t, e.AddClass("el-2", "text-center"))

	classes, err := e.ClassList("el-2")
	require.NoError(t, err)
	assert.Contains(t, classes, "text-center")
}

func TestAddClass_RejectsDuplicate(t *testing.T) {
	e := newTestEditor(t)

	// el-1 已有 class="hero"
	assert.ErrorIs(t, e.AddClass("el-1", "hero"), ErrClassExists)

	classes, err := e.ClassList("el-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"hero"}, classes)
}

func TestRemoveClass(t *testing.T) {
	e := newTestEditor(t)

	require.NoError(t, e.AddClass("el-1", "rounded"))
	require.NoError(t, e.RemoveClass("el-1", "hero"))

	classes, err := e.ClassList("el-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"rounded"}, classes)
}

func TestRemoveClass_MissingIsNoop(t *testing.T) {
	e := newTestEditor(t)
	assert.NoError(t, e.RemoveClass("el-2", "not-there"))
}

func TestParseStyleAttr(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []styleProp
	}{
		{
			name:  "多条声明",
			input: "color: red; font-size: 12px",
			expected: []styleProp{
				{name: "color", value: "red"},
				{name: "font-size", value: "12px"},
			},
		},
		{
			name:  "值里带冒号",
			input: "background-image: url(http://a.com/b.png)",
			expected: []styleProp{
				{name: "background-image", value: "url(http://a.com/b.png)"},
			},
		},
		{
			name:     "空声明和残缺声明丢弃",
			input:    ";; color ;: red; width: 10px;",
			expected: []styleProp{{name: "width", value: "10px"}},
		},
		{
			name:     "空字符串",
			input:    "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseStyleAttr(tt.input))
		})
	}
}
