package domain

import "math"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageRequest is a zero-based page index plus page size.
type PageRequest struct {
	Page int
	Size int
}

// Normalize clamps the request into a valid range.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	// Keep Offset within a 32-bit range.
	if maxPage := math.MaxInt32 / p.Size; p.Page > maxPage {
		p.Page = maxPage
	}
	return p
}

// Offset returns the row offset for SQL LIMIT/OFFSET queries.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// Page is the paginated list envelope shared by all list endpoints.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`
}

// NewPage builds a page envelope. Content beyond the page size is truncated
// so len(Content) never exceeds Size.
func NewPage[T any](content []T, total int64, req PageRequest) Page[T] {
	req = req.Normalize()
	if content == nil {
		content = []T{}
	}
	if len(content) > req.Size {
		content = content[:req.Size]
	}
	totalPages := int((total + int64(req.Size) - 1) / int64(req.Size))
	return Page[T]{
		Content:       content,
		TotalElements: total,
		TotalPages:    totalPages,
		Number:        req.Page,
		Size:          req.Size,
		First:         req.Page == 0,
		Last:          req.Page >= totalPages-1,
	}
}

// MapPage converts the content of a page, keeping its metadata.
func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, len(p.Content))
	for i, v := range p.Content {
		out[i] = fn(v)
	}
	return Page[U]{
		Content:       out,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
		Number:        p.Number,
		Size:          p.Size,
		First:         p.First,
		Last:          p.Last,
	}
}
