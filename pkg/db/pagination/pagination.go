package pagination

import "gorm.io/gorm"

const (
	DefaultPageSize = 25
	MaxPageSize     = 250
)

// Pagination carries page/size query parameters.
type Pagination struct {
	Page int `form:"page,default=1"`
	Size int `form:"size,default=25" validate:"gte=1,lte=250"`
}

// PageInfo is returned in response meta.
type PageInfo struct {
	Page        int   `json:"page"`
	Size        int   `json:"size"`
	Total       int64 `json:"total"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
}

// Normalize clamps page and size into their allowed ranges.
func (p Pagination) Normalize() Pagination {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset returns the row offset for the current page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Size
}

// Apply adds LIMIT/OFFSET to the statement.
func (p Pagination) Apply(stmt *gorm.DB) *gorm.DB {
	return stmt.Offset(p.Offset()).Limit(p.Size)
}

// BuildPageInfo derives page metadata from the total row count.
func BuildPageInfo(p Pagination, total int64) PageInfo {
	return PageInfo{
		Page:        p.Page,
		Size:        p.Size,
		Total:       total,
		HasNext:     int64(p.Offset()+p.Size) < total,
		HasPrevious: p.Page > 1,
	}
}
