package views

import (
	"strconv"

	"github.com/clipstream/backend/internal/apperror"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

// PageRequest is a 1-based page selection over an ordered result set.
type PageRequest struct {
	Page  int
	Limit int
}

// PageInfo describes the slice of results a page holds.
type PageInfo struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasNext bool `json:"hasNextPage"`
}

// ParsePageRequest coerces raw query values into a PageRequest. Empty values
// take the defaults; non-numeric or non-positive values are rejected.
func ParsePageRequest(pageStr, limitStr string) (PageRequest, error) {
	req := PageRequest{Page: defaultPage, Limit: defaultLimit}

	if pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			return PageRequest{}, apperror.Validation("page must be a positive integer")
		}
		req.Page = page
	}

	if limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			return PageRequest{}, apperror.Validation("limit must be a positive integer")
		}
		req.Limit = limit
	}

	return req, nil
}

// slice returns the [start, end) bounds of the page within a result set of
// the given size. Pages past the end yield an empty range.
func (r PageRequest) slice(total int) (int, int) {
	start := (r.Page - 1) * r.Limit
	if start > total {
		start = total
	}
	end := start + r.Limit
	if end > total {
		end = total
	}
	return start, end
}

// info summarises the page against the full result size.
func (r PageRequest) info(total int) PageInfo {
	return PageInfo{
		Page:    r.Page,
		Limit:   r.Limit,
		Total:   total,
		HasNext: r.Page*r.Limit < total,
	}
}
