package editor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 标识按文档顺序分配:
// el-1 = div, el-2 = h1, el-3 = p, el-4 = img
const testFragment = `<div class="hero"><h1>Title</h1><p>Body text</p><img src="https://example.com/a.png" alt="pic"></div>`

func newTestEditor(t *testing.T) *Editor {
	t.Helper()
	e, err := New(testFragment)
	require.NoError(t, err)
	return e
}

func TestNew_AssignsIDs(t *testing.T) {
	e := newTestEditor(t)

	doc, err := e.Document()
	require.NoError(t, err)
	assert.Contains(t, doc, `data-editor-id="el-1"`)
	assert.Contains(t, doc, `data-editor-id="el-4"`)
	assert.Equal(t, StateIdle, e.State())
}

func TestPointerOver(t *testing.T) {
	e := newTestEditor(t)

	require.NoError(t, e.PointerOver("el-2"))
	assert.Equal(t, StateHovering, e.State())
	assert.Equal(t, "el-2", e.Hovered())

	doc, err := e.Document()
	require.NoError(t, err)
	assert.Contains(t, doc, "outline: 2px dashed #3b82f6")
	assert.Contains(t, doc, "outline-offset: 2px")
}

func TestPointerOver_MovesHighlight(t *testing.T) {
	e := newTestEditor(t)

	require.NoError(t, e.PointerOver("el-2"))
	require.NoError(t, e.PointerOver("el-3"))
	assert.Equal(t, "el-3", e.Hovered())

	// 悬停标记同一时刻只有一个
	doc, err := e.Document()
	require.NoError(t, err)
	assert.Equal(t, 1, countOccurrences(doc, "2px dashed #3b82f6"))
}

func TestPointerOut(t *testing.T) {
	e := newTestEditor(t)

	require.NoError(t, e.PointerOver("el-2"))
	require.NoError(t, e.PointerOut("el-2"))

	assert.Equal(t, StateIdle, e.State())
	assert.Empty(t, e.Hovered())

	doc, err := e.Document()
	require.NoError(t, err)
	assert.NotContains(t, doc, "outline:")
}

func TestPointerOver_SelectedExcluded(t *testing.T) {
	e := newTestEditor(t)

	require.NoError(t, e.Click("el-2"))
	require.NoError(t, e.PointerOver("el-2"))

	// 选中的元素不叠加悬停标记
	doc, err := e.Document()
	require.NoError(t, err)
	assert.Contains(t, doc, "2px solid #ef4444")
	assert.NotContains(t, doc, "2px dashed #3b82f6")
}

func TestClick_SelectsAndEnablesEditing(t *testing.T) {
	e := newTestEditor(t)

	require.NoError(t, e.Click("el-3"))
	assert.Equal(t, StateSelected, e.State())
	assert.Equal(t, "el-3", e.Selected())

	doc, err := e.Document()
	require.NoError(t, err)
	assert.Contains(t, doc, "2px solid #ef4444")
	assert.Contains(t, doc, `contenteditable="true"`)
}

func TestClick_SelectionExclusive(t *testing.T) {
	e := newTestEditor(t)

	require.NoError(t, e.Click("el-2"))
	require.NoError(t, e.Click("el-3"))

	assert.Equal(t, "el-3", e.Selected())

	// 旧选中的标记和可编辑状态全部撤销
	doc, err := e.Document()
	require.NoError(t, err)
	assert.Equal(t, 1, countOccurrences(doc, "2px solid #ef4444"))
	assert.Equal(t, 1, countOccurrences(doc, `contenteditable="true"`))
}

func TestClick_ImageNotEditable(t *testing.T) {
	e := newTestEditor(t)

	require.NoError(t, e.Click("el-4"))
	assert.Equal(t, "el-4", e.Selected())

	doc, err := e.Document()
	require.NoError(t, err)
	assert.Contains(t, doc, "2px solid #ef4444")
	assert.NotContains(t, doc, "contenteditable")
}

func TestEscape(t *testing.T) {
	e := newTestEditor(t)

	require.NoError(t, e.Click("el-2"))
	e.Escape()

	assert.Equal(t, StateIdle, e.State())
	assert.Empty(t, e.Selected())

	doc, err := e.Document()
	require.NoError(t, err)
	assert.NotContains(t, doc, "outline:")
	assert.NotContains(t, doc, "contenteditable")
}

func TestUpdateText(t *testing.T) {
	e := newTestEditor(t)

	require.NoError(t, e.UpdateText("el-3", "edited content"))

	doc, err := e.Document()
	require.NoError(t, err)
	assert.Contains(t, doc, "edited content")
	assert.NotContains(t, doc, "Body text")
}

func TestUpdateText_ForgetsReplacedSubtree(t *testing.T) {
	e := newTestEditor(t)

	// el-1 的子树被替换后，原来的子元素标识全部失效
	require.NoError(t, e.UpdateText("el-1", "flat"))
	assert.ErrorIs(t, e.Click("el-2"), ErrNodeNotFound)
	assert.ErrorIs(t, e.Click("el-4"), ErrNodeNotFound)
}

func TestUpdateText_UnknownNode(t *testing.T) {
	e := newTestEditor(t)
	assert.ErrorIs(t, e.UpdateText("el-99", "x"), ErrNodeNotFound)
}

func TestExport_StripsEditorArtifacts(t *testing.T) {
	e := newTestEditor(t)

	require.NoError(t, e.PointerOver("el-2"))
	require.NoError(t, e.Click("el-3"))
	require.NoError(t, e.UpdateText("el-3", "edited"))

	out, err := e.Export()
	require.NoError(t, err)

	assert.Contains(t, out, "edited")
	assert.NotContains(t, out, "data-editor-id")
	assert.NotContains(t, out, "contenteditable")
	assert.NotContains(t, out, "outline")
	assert.Equal(t, StateIdle, e.State())
}

func TestExport_KeepsUserStyles(t *testing.T) {
	e := newTestEditor(t)

	require.NoError(t, e.Click("el-3"))
	require.NoError(t, e.SetStyle("el-3", "color", "#333"))

	out, err := e.Export()
	require.NoError(t, err)

	// 用户设置的样式保留，编辑器的轮廓标记剥离
	assert.Contains(t, out, "color: #333")
	assert.NotContains(t, out, "#ef4444")
}

func countOccurrences(s, sub string) int {
	return strings.Count(s, sub)
}
