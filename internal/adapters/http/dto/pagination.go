package dto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// DefaultLimit is the default number of items per page.
const DefaultLimit = 20

// MaxLimit is the maximum allowed items per page.
const MaxLimit = 100

// ErrInvalidCursor is returned when cursor decoding fails.
var ErrInvalidCursor = errors.New("invalid cursor")

// PaginationRequest represents pagination parameters from the request.
type PaginationRequest struct {
	// Cursor is an opaque string from a previous response's NextCursor.
	Cursor string `form:"cursor" json:"cursor"`

	// Limit is the maximum number of items to return (1-100, default 20).
	Limit int `form:"limit" json:"limit" validate:"omitempty,gte=1,lte=100"`
}

// GetLimit returns the limit with defaults applied.
func (p *PaginationRequest) GetLimit() int {
	if p.Limit <= 0 {
		return DefaultLimit
	}

	return min(p.Limit, MaxLimit)
}

// Offset returns the position encoded in the cursor, 0 for the first page.
func (p *PaginationRequest) Offset() (int, error) {
	if p.Cursor == "" {
		return 0, nil
	}

	data, err := DecodeCursor(p.Cursor)
	if err != nil {
		return 0, err
	}

	return data.Offset, nil
}

// PaginatedResponse is a generic paginated response structure.
type PaginatedResponse[T any] struct {
	// Items is the array of items for this page.
	Items []T `json:"items"`

	// NextCursor is the cursor to use for the next page.
	// Empty if there are no more items.
	NextCursor string `json:"nextCursor,omitempty"`

	// HasMore indicates whether there are more items after this page.
	HasMore bool `json:"hasMore"`

	// Total is the size of the whole collection.
	Total int `json:"total"`
}

// NewPaginatedResponse builds a page of items read at offset from a
// collection of total items.
func NewPaginatedResponse[T any](items []T, offset, total int) *PaginatedResponse[T] {
	if items == nil {
		items = []T{}
	}

	next := offset + len(items)
	hasMore := len(items) > 0 && next < total

	resp := &PaginatedResponse[T]{
		Items:   items,
		HasMore: hasMore,
		Total:   total,
	}

	if hasMore {
		resp.NextCursor = EncodeCursor(&CursorData{Offset: next})
	}

	return resp
}

// CursorData contains the data encoded in a pagination cursor.
// The catalog is immutable, so a plain offset is stable.
type CursorData struct {
	Offset int `json:"o"`
}

// EncodeCursor encodes cursor data to a base64 string.
func EncodeCursor(data *CursorData) string {
	if data == nil {
		return ""
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return ""
	}

	return base64.RawURLEncoding.EncodeToString(jsonBytes)
}

// DecodeCursor decodes a base64 cursor string to cursor data.
func DecodeCursor(encoded string) (*CursorData, error) {
	jsonBytes, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var data CursorData
	if err := json.Unmarshal(jsonBytes, &data); err != nil {
		return nil, ErrInvalidCursor
	}

	if data.Offset < 0 {
		return nil, ErrInvalidCursor
	}

	return &data, nil
}
