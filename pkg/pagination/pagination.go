package pagination

// Offset-based page/limit pagination, matching the storefront admin table
// contract (page numbers plus an X-Total-Count header).

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any page query can request.
	MaxLimit = 100
)

// Params holds page/limit inputs from controllers. A zero Params means
// "everything", mirroring the unpaginated admin listing.
type Params struct {
	Page  int
	Limit int
}

// IsZero reports whether pagination was requested at all.
func (p Params) IsZero() bool {
	return p.Page == 0 && p.Limit == 0
}

// Normalize clamps the params to sane bounds. Page is 1-based.
func (p Params) Normalize() Params {
	if p.IsZero() {
		return p
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset returns the row offset for the normalized page.
func (p Params) Offset() int {
	norm := p.Normalize()
	if norm.IsZero() {
		return 0
	}
	return (norm.Page - 1) * norm.Limit
}
