package codefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-code-generate-api/internal/config"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	ws, err := NewWorkspace(&config.StorageConfig{OutputRoot: t.TempDir()})
	require.NoError(t, err)
	return ws
}

func TestParseHTMLCodeBlock(t *testing.T) {
	text := "以下是生成的页面：\n```html\n<!DOCTYPE html>\n<html></html>\n```\n完成"
	result := ParseHTML(text)
	assert.Equal(t, "<!DOCTYPE html>\n<html></html>", result.HTMLCode)
}

func TestParseHTMLFallbackToRawText(t *testing.T) {
	text := "<!DOCTYPE html>\n<html><body>hi</body></html>"
	result := ParseHTML(text)
	assert.Equal(t, text, result.HTMLCode)
}

func TestParseMultiFile(t *testing.T) {
	text := "```html\n<div>app</div>\n```\n说明文字\n```css\nbody { margin: 0; }\n```\n```js\nconsole.log(1)\n```"
	result := ParseMultiFile(text)
	assert.Equal(t, "<div>app</div>", result.HTMLCode)
	assert.Equal(t, "body { margin: 0; }", result.CSSCode)
	assert.Equal(t, "console.log(1)", result.JSCode)
}

func TestParseMultiFileJavascriptAlias(t *testing.T) {
	text := "```javascript\nalert(1)\n```"
	result := ParseMultiFile(text)
	assert.Equal(t, "alert(1)", result.JSCode)
	assert.Empty(t, result.HTMLCode)
}

func TestWriteFileRejectsTraversal(t *testing.T) {
	ws := newTestWorkspace(t)

	_, err := ws.WriteFile("app-1", "../escape.txt", "x")
	assert.Error(t, err)

	_, err = ws.WriteFile("app-1", "/etc/passwd", "x")
	assert.Error(t, err)
}

func TestWriteFileNestedPath(t *testing.T) {
	ws := newTestWorkspace(t)

	path, err := ws.WriteFile("app-1", "src/components/App.vue", "<template/>")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<template/>", string(data))
	assert.Equal(t, filepath.Join(ws.AppDir("app-1"), "src", "components", "App.vue"), path)
}

func TestSaveMultiFileSkipsEmptyParts(t *testing.T) {
	ws := newTestWorkspace(t)

	dir, err := ws.SaveMultiFile("app-2", MultiFileResult{HTMLCode: "<p/>", CSSCode: ""})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "index.html"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "style.css"))
	assert.True(t, os.IsNotExist(err))
}
