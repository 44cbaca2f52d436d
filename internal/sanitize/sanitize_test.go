package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignite/campaign-engine/internal/model"
)

func TestSanitizeStripsEditorArtifacts(t *testing.T) {
	html := `<div contenteditable="true" data-slate-zero-width="n"><p>Hello</p></div>`
	out := Sanitize(html, nil)
	assert.NotContains(t, out, "contenteditable")
	assert.NotContains(t, out, "data-slate-zero-width")
	assert.Contains(t, out, "Hello")
}

func TestSanitizeKeepsBlobKeyDataAttr(t *testing.T) {
	html := `<img data-blob-key="logo" data-editor-id="123" src="data:image/png;base64,xx">`
	out := Sanitize(html, nil)
	assert.Contains(t, out, `data-blob-key="logo"`)
	assert.NotContains(t, out, "data-editor-id")
}

func TestSanitizePreservesClassAndStyle(t *testing.T) {
	html := `<p class="ql-align-center" style="color:red">Hi</p>`
	out := Sanitize(html, nil)
	assert.Contains(t, out, `class="ql-align-center"`)
	assert.Contains(t, out, `style="color:red"`)
}

func TestSanitizeInjectsFrameworkStylesheetOnce(t *testing.T) {
	html := `<p class="ql-align-center">Hi</p>`
	out := Sanitize(html, nil)
	assert.Contains(t, out, "data-engine-stylesheet")
	assert.Equal(t, 1, countOccurrences(out, "data-engine-stylesheet"))

	out2 := Sanitize(out, nil)
	assert.Equal(t, 1, countOccurrences(out2, "data-engine-stylesheet"), "re-sanitizing must not duplicate the stylesheet")
}

func TestSanitizeCollapsesEmptyParagraphs(t *testing.T) {
	out := Sanitize(`<p><br></p><p>Real content</p><p></p>`, nil)
	assert.Contains(t, out, "&nbsp;")
	assert.Contains(t, out, "Real content")
}

func TestSanitizeRewritesInlineImagesToCID(t *testing.T) {
	html := `<img data-blob-key="banner" src="data:image/png;base64,xx">`
	images := []model.InlineImage{{BlobKey: "banner", ContentID: "banner-cid"}}
	out := Sanitize(html, images)
	assert.Contains(t, out, `src="cid:banner-cid"`)
}

func TestSanitizeLeavesUnmatchedImageUnchanged(t *testing.T) {
	html := `<img data-blob-key="unknown" src="data:image/png;base64,xx">`
	out := Sanitize(html, []model.InlineImage{{BlobKey: "other", ContentID: "other-cid"}})
	assert.Contains(t, out, "data:image/png;base64,xx")
}

func TestSanitizeStripsScriptsAndEventHandlers(t *testing.T) {
	html := `<script>alert(1)</script><a href="#" onclick="evil()">click</a>`
	out := Sanitize(html, nil)
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "onclick")
	assert.Contains(t, out, "click")
}

func TestSanitizeIsIdempotent(t *testing.T) {
	html := `<div contenteditable="true"><p class="ql-align-center">Hello <img data-blob-key="x" src="data:image/png;base64,aa"></p></div>`
	images := []model.InlineImage{{BlobKey: "x", ContentID: "x-cid"}}
	once := Sanitize(html, images)
	twice := Sanitize(once, images)
	assert.Equal(t, once, twice)
}

func TestSanitizeMalformedInputDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		Sanitize("<div><p>unterminated", nil)
	})
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
		}
	}
	return count
}
