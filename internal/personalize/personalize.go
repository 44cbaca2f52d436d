// Package personalize implements the Dispatch Worker's merge-field
// substitution step (SPEC_FULL.md §4.4 step 4): {{first_name}},
// {{last_name}}, {{email}}, {{company}}, {{agency_name}}, and any other
// field present on the recipient's contact record are substituted into
// subject and body text. Unknown placeholders are left literal.
//
// Built on github.com/osteele/liquid, a teacher dependency otherwise
// unused by any component in scope (DESIGN.md). The engine/parse/render
// call shape is grounded on the teacher's
// internal/mailing/template_engine.go TemplateService, but the
// "leave unknown placeholders literal" requirement is not something
// Liquid does on its own — by default it renders an undefined variable
// as empty. This package gets there by binding every {{tag}} found in
// the source text that has no value on the contact record to its own
// source text (spacing included), so Liquid's ordinary substitution
// reproduces it unchanged. Where one unknown tag appears with different
// spacing, every occurrence takes the spelling of the first.
package personalize

import (
	"regexp"
	"sync"

	"github.com/osteele/liquid"
)

var tagRE = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// Contact is the set of personalization fields known for one recipient.
// Missing fields are simply absent from the map; callers build this from
// whatever contact record lookup is available (SPEC_FULL.md: "absence of
// a record for an address is not an error").
type Contact map[string]string

// Engine wraps a liquid.Engine for merge-field substitution.
type Engine struct {
	liquid *liquid.Engine
	mu     sync.Mutex
}

// New constructs a personalization Engine.
func New() *Engine {
	return &Engine{liquid: liquid.NewEngine()}
}

// Render substitutes every {{field}} placeholder in text against contact,
// leaving unrecognized placeholders as their original literal text.
func (e *Engine) Render(text string, contact Contact) string {
	bindings := bindingsFor(text, contact)

	e.mu.Lock()
	tpl, err := e.liquid.ParseString(text)
	e.mu.Unlock()
	if err != nil {
		// Malformed template syntax: fail open, return source unchanged
		// rather than drop the message body.
		return text
	}

	out, err := tpl.RenderString(bindings)
	if err != nil {
		return text
	}
	return out
}

func bindingsFor(text string, contact Contact) map[string]any {
	bindings := make(map[string]any, len(contact))
	for k, v := range contact {
		bindings[k] = v
	}

	for _, match := range tagRE.FindAllStringSubmatch(text, -1) {
		tag := match[1]
		if _, known := bindings[tag]; known {
			continue
		}
		bindings[tag] = match[0]
	}
	return bindings
}
