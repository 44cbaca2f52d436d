// Package sanitize implements the HTML Sanitizer: a pure transformation
// of an authored HTML fragment into an email-safe document
// (SPEC_FULL.md §4.2). It never fails — malformed input is handled
// best-effort by the underlying tokenizer — and every transformation is
// idempotent over its own output, so running Sanitize twice is safe.
//
// Grounded on the teacher's goquery-based DOM traversal in
// internal/api/isp_agent_learner.go, applied here to CSS-selector-driven
// attribute manipulation instead of scraping.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ignite/campaign-engine/internal/model"
)

// BlobKeyAttr is the single author-facing data-* attribute preserved
// through step 2; it marks an <img> as referencing a campaign attachment
// by blob key. The sanitizer's own stylesheetMarker is also kept.
const BlobKeyAttr = "data-blob-key"

const stylesheetMarker = "data-engine-stylesheet"

// frameworkCSS gives editor-framework classes (alignment, indent,
// size/font presets) a meaning outside the editor that produced them, so
// recipients render the author's intent without the framework present.
const frameworkCSS = `
.ql-align-center{text-align:center}
.ql-align-right{text-align:right}
.ql-align-justify{text-align:justify}
.ql-indent-1{padding-left:3em}
.ql-indent-2{padding-left:6em}
.ql-indent-3{padding-left:9em}
.ql-size-small{font-size:0.75em}
.ql-size-large{font-size:1.5em}
.ql-size-huge{font-size:2.5em}
.ql-font-serif{font-family:Georgia,serif}
.ql-font-monospace{font-family:Monaco,monospace}
`

var (
	editorAttrs = []string{"contenteditable", "spellcheck", "autocorrect", "autocapitalize"}

	editorScratchSelector = "[data-editor-scratch], [data-slate-zero-width], [data-editor-clipboard]"

	emptyParagraphRE = regexp.MustCompile(`^\s*(?:<br\s*/?>)?\s*$`)
)

// Sanitize transforms html per the seven ordered, idempotent
// transformations in SPEC_FULL.md §4.2. images maps inline attachments
// to the content-id their cid: reference should use.
func Sanitize(html string, images []model.InlineImage) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// Best-effort: nothing we can parse, return input unchanged.
		return html
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	// The parser places <style> blocks that open the fragment in <head>;
	// move them back so they are part of the output.
	body.PrependSelection(doc.Find("head style"))

	stripEditorArtifacts(body)
	stripDataAttrs(body)
	// class and style are never touched: preserved verbatim by omission.
	injectFrameworkStylesheet(body)
	collapseEmptyParagraphs(body)
	rewriteInlineImages(body, images)
	stripScriptsAndEventHandlers(body)

	out, err := body.Html()
	if err != nil {
		return html
	}
	// The renderer writes non-breaking spaces as raw U+00A0; emit the
	// entity so collapsed paragraphs read <p>&nbsp;</p>.
	return strings.ReplaceAll(out, " ", "&nbsp;")
}

// 1. Strip editor framework artifacts.
func stripEditorArtifacts(body *goquery.Selection) {
	body.Find(editorScratchSelector).Remove()
	body.Find("*").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range editorAttrs {
			s.RemoveAttr(attr)
		}
	})
}

// 2. Strip data-* attributes except BlobKeyAttr.
func stripDataAttrs(body *goquery.Selection) {
	body.Find("*").Each(func(_ int, s *goquery.Selection) {
		if len(s.Nodes) == 0 {
			return
		}
		var toRemove []string
		for _, attr := range s.Nodes[0].Attr {
			if strings.HasPrefix(attr.Key, "data-") && attr.Key != BlobKeyAttr && attr.Key != stylesheetMarker {
				toRemove = append(toRemove, attr.Key)
			}
		}
		for _, key := range toRemove {
			s.RemoveAttr(key)
		}
	})
}

// 4b. Inject the framework stylesheet once.
func injectFrameworkStylesheet(body *goquery.Selection) {
	if body.Find("style[" + stylesheetMarker + "]").Length() > 0 {
		return
	}
	tag := fmt.Sprintf(`<style %s="1">%s</style>`, stylesheetMarker, frameworkCSS)
	body.PrependHtml(tag)
}

// 5. Collapse <p><br></p> / <p>\s*</p> to <p>&nbsp;</p>; drop fully empty <p></p>.
func collapseEmptyParagraphs(body *goquery.Selection) {
	body.Find("p").Each(func(_ int, s *goquery.Selection) {
		inner, err := s.Html()
		if err != nil {
			return
		}
		if inner == "" {
			s.Remove()
			return
		}
		if emptyParagraphRE.MatchString(inner) {
			s.SetHtml("&nbsp;")
		}
	})
}

// 6. Rewrite inline image references to cid: form.
func rewriteInlineImages(body *goquery.Selection, images []model.InlineImage) {
	byBlobKey := make(map[string]string, len(images))
	for _, img := range images {
		byBlobKey[img.BlobKey] = img.ContentID
	}

	body.Find("img").Each(func(_ int, s *goquery.Selection) {
		blobKey, hasBlobKey := s.Attr(BlobKeyAttr)
		if !hasBlobKey {
			return
		}

		contentID, ok := byBlobKey[blobKey]
		if !ok {
			return
		}
		s.SetAttr("src", "cid:"+contentID)
	})
}

// 7. Remove <script> elements and on* attributes.
func stripScriptsAndEventHandlers(body *goquery.Selection) {
	body.Find("script").Remove()
	body.Find("*").Each(func(_ int, s *goquery.Selection) {
		if len(s.Nodes) == 0 {
			return
		}
		var toRemove []string
		for _, attr := range s.Nodes[0].Attr {
			if strings.HasPrefix(strings.ToLower(attr.Key), "on") {
				toRemove = append(toRemove, attr.Key)
			}
		}
		for _, key := range toRemove {
			s.RemoveAttr(key)
		}
	})
}
