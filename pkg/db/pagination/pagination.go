package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

var ErrInvalidCursor = errors.New("invalid_cursor")

type Pagination struct {
	PageToken string `form:"page_token" json:"page_token,omitempty"`
	PageSize  int    `form:"page_size" json:"page_size,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

// Cursor points at the last row of the previous page.
type Cursor struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

func EncodeCursor(c Cursor) (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, ErrInvalidCursor
	}
	if c.ID == "" {
		return nil, ErrInvalidCursor
	}
	return &c, nil
}

// BuildCursorPageInfo expects items to hold up to pageSize+1 rows; the extra
// row only signals that another page exists.
func BuildCursorPageInfo[T any](items []T, pageSize int32, cursorOf func(T) string) *PageInfo {
	if pageSize <= 0 {
		return nil
	}
	info := &PageInfo{}
	if len(items) > int(pageSize) {
		info.HasMore = true
		info.NextPageToken = cursorOf(items[pageSize-1])
	}
	return info
}
