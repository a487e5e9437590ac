package option

import "gorm.io/gorm"

// QueryOption mutates a list statement before it runs.
type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type paginationOption struct {
	limit  int
	offset int
}

func (p paginationOption) Apply(stmt *gorm.DB) *gorm.DB {
	if p.limit > 0 {
		stmt = stmt.Limit(p.limit)
	}
	if p.offset > 0 {
		stmt = stmt.Offset(p.offset)
	}
	return stmt
}

// ApplyPagination limits a query to page rows, fetching one extra to detect a next page.
func ApplyPagination(limit int) QueryOption {
	if limit <= 0 {
		return paginationOption{}
	}
	return paginationOption{limit: limit + 1}
}

func ApplyOffset(offset int) QueryOption {
	return paginationOption{offset: offset}
}

type orderOption struct {
	clause string
}

func (o orderOption) Apply(stmt *gorm.DB) *gorm.DB {
	return stmt.Order(o.clause)
}

func ApplyOrder(clause string) QueryOption {
	return orderOption{clause: clause}
}

// Apply runs every option against stmt in order.
func Apply(stmt *gorm.DB, opts ...QueryOption) *gorm.DB {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		stmt = opt.Apply(stmt)
	}
	return stmt
}
