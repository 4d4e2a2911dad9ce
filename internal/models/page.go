package models

// PageRequest selects a zero-based page of a listing.
type PageRequest struct {
	Page int
	Size int
}

// Normalize clamps the request to sane bounds.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = 10
	}
	if p.Size > 100 {
		p.Size = 100
	}
	return p
}

// Offset returns the row offset for the page.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// Page is a single page of results with paging metadata.
type Page struct {
	Content       any   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"total_elements"`
	TotalPages    int64 `json:"total_pages"`
}

// NewPage assembles a Page from a result slice and the total row count.
func NewPage(content any, req PageRequest, total int64) Page {
	pages := total / int64(req.Size)
	if total%int64(req.Size) != 0 {
		pages++
	}
	return Page{
		Content:       content,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    pages,
	}
}
