// Package domain contains core business entities and rules.
package domain

import "strconv"

// Quote is an immutable quotation with its author.
// This is a domain entity - it has no knowledge of external systems.
type Quote struct {
	// Author is who said or wrote the quote.
	Author string

	// Text is the quotation itself.
	Text string
}

// String renders the quote the way the front page shows it.
func (q Quote) String() string {
	return q.Text + " ~ " + q.Author
}

// Catalog is the fixed, ordered collection of quotes available for the
// lifetime of the process. A Catalog is never empty and never mutated after
// construction.
type Catalog struct {
	quotes []Quote
}

// NewCatalog builds a catalog from the given quotes.
// The slice is copied so later changes by the caller are not observed.
// Returns a validation error if quotes is empty or any entry lacks text.
func NewCatalog(quotes []Quote) (*Catalog, error) {
	if len(quotes) == 0 {
		return nil, NewValidationError("quotes", "catalog must contain at least one quote")
	}

	owned := make([]Quote, len(quotes))
	for i, q := range quotes {
		if q.Text == "" {
			return nil, NewValidationErrorWithValue("quotes["+strconv.Itoa(i)+"].text", "cannot be empty", q)
		}

		owned[i] = q
	}

	return &Catalog{quotes: owned}, nil
}

// Len returns the number of quotes in the catalog.
func (c *Catalog) Len() int {
	return len(c.quotes)
}

// At returns the quote at index i.
// Returns a NotFoundError when i is outside [0, Len()).
func (c *Catalog) At(i int) (Quote, error) {
	if i < 0 || i >= len(c.quotes) {
		return Quote{}, NewNotFoundError("quote", strconv.Itoa(i))
	}

	return c.quotes[i], nil
}

// Slice returns a copy of the quotes in [offset, offset+limit), clamped to
// the catalog bounds.
func (c *Catalog) Slice(offset, limit int) []Quote {
	if offset < 0 {
		offset = 0
	}

	if offset >= len(c.quotes) || limit <= 0 {
		return []Quote{}
	}

	end := min(offset+limit, len(c.quotes))

	out := make([]Quote, end-offset)
	copy(out, c.quotes[offset:end])

	return out
}

// DefaultQuotes returns the built-in programming quotes.
func DefaultQuotes() []Quote {
	return []Quote{
		{Author: "Anonymous", Text: "The best thing about a boolean is even if you are wrong, you are only off by a bit."},
		{Author: "Louis Srygley", Text: "Without requirements or design, programming is the art of adding bugs to an empty text file."},
		{Author: "Ralph Johnson", Text: "Before software can be reusable it first has to be usable."},
		{Author: "Anonymous", Text: "The best method for accelerating a computer is the one that boosts it by 9.8 m/s2"},
		{Author: "Oktal", Text: "I think Microsoft named .Net so it wouldn’t show up in a Unix directory listing"},
		{Author: "Gerald Weinberg", Text: "If builders built buildings the way programmers wrote programs, then the first woodpecker that came along would destroy civilization."},
		{Author: "Alan J. Perlis", Text: "There are two ways to write error-free programs; only the third one works"},
		{Author: "Anonymous", Text: "Ready, fire, aim: the fast approach to software development. Ready, aim, aim, aim, aim: the slow approach to software development"},
		{Author: "Anonymous", Text: "It’s not a bug – it’s an undocumented feature."},
		{Author: "Jessica Gaston", Text: "One man’s crappy software is another man’s full-time job."},
		{Author: "Doug Linder", Text: "A good programmer is someone who always looks both ways before crossing a one-way street"},
	}
}
