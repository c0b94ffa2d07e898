package table

// Row is any record with a key that is unique across the full dataset.
type Row interface {
	RowKey() string
}

// Tone tags a cell or action for styling (badge colour, button intent).
type Tone string

const (
	ToneNone    Tone = ""
	ToneSuccess Tone = "success"
	ToneDanger  Tone = "danger"
	ToneWarning Tone = "warning"
	ToneInfo    Tone = "info"
)

// Cell is the rendered content of one table cell.
type Cell struct {
	Text    string   `json:"text"`
	Tone    Tone     `json:"tone,omitempty"`
	Badge   bool     `json:"badge,omitempty"`
	Actions []Action `json:"actions,omitempty"`
}

// Action is a row-level control rendered inside an action column.
type Action struct {
	Label  string `json:"label"`
	Method string `json:"method"`
	URL    string `json:"url"`
	Tone   Tone   `json:"tone,omitempty"`
}

// Column is either a DataColumn or an ActionColumn.
type Column[T any] interface {
	header() string
	style() string
	cell(row T) Cell
	validate() error
}

// DataColumn derives its cell from a typed accessor. Render, when set,
// replaces the plain Value text.
type DataColumn[T any] struct {
	Header string
	Style  string
	Value  func(T) string
	Render func(T) Cell
}

func (c DataColumn[T]) header() string { return c.Header }
func (c DataColumn[T]) style() string  { return c.Style }

func (c DataColumn[T]) cell(row T) Cell {
	if c.Render != nil {
		return c.Render(row)
	}
	return Cell{Text: c.Value(row)}
}

func (c DataColumn[T]) validate() error {
	if c.Value == nil && c.Render == nil {
		return columnError(c.Header, ErrMissingAccessor)
	}
	return nil
}

// ActionColumn holds row controls and has no backing field, so Render is
// mandatory.
type ActionColumn[T any] struct {
	Header string
	Style  string
	Render func(T) []Action
}

func (c ActionColumn[T]) header() string { return c.Header }
func (c ActionColumn[T]) style() string  { return c.Style }

func (c ActionColumn[T]) cell(row T) Cell {
	return Cell{Actions: c.Render(row)}
}

func (c ActionColumn[T]) validate() error {
	if c.Render == nil {
		return columnError(c.Header, ErrMissingRenderer)
	}
	return nil
}

// Text is shorthand for a DataColumn backed by a string accessor.
func Text[T any](header string, value func(T) string) DataColumn[T] {
	return DataColumn[T]{Header: header, Value: value}
}

// Badge renders the accessor value as a badge whose tone is chosen by toneOf.
func Badge[T any](header string, value func(T) string, toneOf func(string) Tone) DataColumn[T] {
	return DataColumn[T]{
		Header: header,
		Value:  value,
		Render: func(row T) Cell {
			text := value(row)
			tone := ToneNone
			if toneOf != nil {
				tone = toneOf(text)
			}
			return Cell{Text: text, Tone: tone, Badge: true}
		},
	}
}
