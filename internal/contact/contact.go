// Package contact implements read-only lookups of the Contact Record
// the Dispatch Worker personalizes against (SPEC_FULL.md §4.4 step 4,
// glossary "Contact Record"): a free-form field map keyed by recipient
// address, absence of which is not an error.
package contact

import "context"

// Record is a recipient's personalization fields, keyed by merge-field
// name (first_name, last_name, email, company, agency_name, and any
// additional fields a campaign's contact source supplies).
type Record map[string]string

// Lookup is the interface the Dispatch Worker depends on.
type Lookup interface {
	// Get returns the contact record for address, or ok=false if none
	// exists. A missing record is not an error (SPEC_FULL.md §4.4 edge
	// cases): personalization proceeds with empty known fields.
	Get(ctx context.Context, address string) (Record, bool, error)
}
