// Package table renders uniquely keyed row collections as page-sliced grids.
//
// A Table is configured once with typed columns and rendered per request
// into a View, which templates and the JSON API consume directly.
package table

import "fmt"

// PlaceholderRows is the number of shimmer rows shown while loading.
const PlaceholderRows = 3

// EmptyText is the message of the single row rendered for an empty dataset.
const EmptyText = "No data found"

// ControlKind names a pagination control.
type ControlKind string

const (
	ControlFirst ControlKind = "first"
	ControlPrev  ControlKind = "prev"
	ControlNext  ControlKind = "next"
	ControlLast  ControlKind = "last"
)

// Control is a navigation button with its precomputed target page.
type Control struct {
	Kind     ControlKind `json:"kind"`
	Page     int         `json:"page"`
	Disabled bool        `json:"disabled"`
}

type Header struct {
	Title string `json:"title"`
	Style string `json:"style,omitempty"`
}

type RowView struct {
	Key         string `json:"key,omitempty"`
	Cells       []Cell `json:"cells"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// View is the rendered state of a table for one page.
type View struct {
	Headers     []Header  `json:"headers"`
	Rows        []RowView `json:"rows"`
	Loading     bool      `json:"loading"`
	Empty       bool      `json:"empty"`
	EmptyText   string    `json:"emptyText,omitempty"`
	Page        int       `json:"page"`
	PageSize    int       `json:"pageSize"`
	TotalPages  int       `json:"totalPages"`
	Total       int       `json:"total"`
	StartIndex  int       `json:"startIndex"`
	EndIndex    int       `json:"endIndex"`
	Controls    []Control `json:"controls,omitempty"`
	ColumnCount int       `json:"columnCount"`
}

// HasControls reports whether navigation should be shown.
func (v View) HasControls() bool { return len(v.Controls) > 0 }

type Option func(*config)

type config struct {
	pageSize int
}

// WithPageSize overrides DefaultPageSize.
func WithPageSize(n int) Option {
	return func(c *config) { c.pageSize = n }
}

// Table is an immutable column configuration over rows of type T.
type Table[T Row] struct {
	columns  []Column[T]
	pageSize int
}

// New validates the column set and returns a table.
func New[T Row](columns []Column[T], opts ...Option) (*Table[T], error) {
	cfg := config{pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.pageSize <= 0 {
		return nil, ErrInvalidPageSize
	}
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	for i, col := range columns {
		if col == nil {
			return nil, fmt.Errorf("column %d: %w", i, ErrNilColumn)
		}
		if err := col.validate(); err != nil {
			return nil, err
		}
	}
	cols := make([]Column[T], len(columns))
	copy(cols, columns)
	return &Table[T]{columns: cols, pageSize: cfg.pageSize}, nil
}

// MustNew is New for static column sets known to be valid.
func MustNew[T Row](columns []Column[T], opts ...Option) *Table[T] {
	t, err := New(columns, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table[T]) PageSize() int { return t.pageSize }

// NewPager returns a pager sized for this table.
func (t *Table[T]) NewPager() *Pager { return NewPager(t.pageSize) }

// PageAt renders rows at the requested page, clamped into range.
func (t *Table[T]) PageAt(rows []T, page int, loading bool) View {
	pager := t.NewPager()
	pager.Observe(len(rows))
	pager.SetPage(page)
	return t.Render(rows, pager, loading)
}

// Render slices rows according to pager. A nil pager renders page 1 and a
// zero Pager takes the table's page size.
func (t *Table[T]) Render(rows []T, pager *Pager, loading bool) View {
	if pager == nil {
		pager = t.NewPager()
	} else if pager.pageSize <= 0 {
		pager.pageSize = t.pageSize
	}
	pager.Observe(len(rows))

	view := View{
		Headers:     make([]Header, 0, len(t.columns)),
		Loading:     loading,
		Page:        pager.Page(),
		PageSize:    pager.PageSize(),
		TotalPages:  pager.TotalPages(),
		Total:       pager.Total(),
		ColumnCount: len(t.columns),
	}
	for _, col := range t.columns {
		view.Headers = append(view.Headers, Header{Title: col.header(), Style: col.style()})
	}

	if loading {
		view.Rows = make([]RowView, PlaceholderRows)
		for i := range view.Rows {
			view.Rows[i] = RowView{Placeholder: true, Cells: make([]Cell, len(t.columns))}
		}
		return view
	}

	if len(rows) == 0 {
		view.Empty = true
		view.EmptyText = EmptyText
		return view
	}

	start, end := pager.bounds()
	view.StartIndex = start + 1
	view.EndIndex = end
	view.Rows = make([]RowView, 0, end-start)
	for _, row := range rows[start:end] {
		rv := RowView{Key: row.RowKey(), Cells: make([]Cell, 0, len(t.columns))}
		for _, col := range t.columns {
			rv.Cells = append(rv.Cells, col.cell(row))
		}
		view.Rows = append(view.Rows, rv)
	}

	if view.TotalPages > 1 {
		view.Controls = []Control{
			{Kind: ControlFirst, Page: 1, Disabled: !pager.HasPrev()},
			{Kind: ControlPrev, Page: Clamp(pager.Page()-1, view.TotalPages), Disabled: !pager.HasPrev()},
			{Kind: ControlNext, Page: Clamp(pager.Page()+1, view.TotalPages), Disabled: !pager.HasNext()},
			{Kind: ControlLast, Page: view.TotalPages, Disabled: !pager.HasNext()},
		}
	}
	return view
}

// CheckKeys reports the first duplicated row key.
func CheckKeys[T Row](rows []T) error {
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		key := row.RowKey()
		if _, ok := seen[key]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
		}
		seen[key] = struct{}{}
	}
	return nil
}
