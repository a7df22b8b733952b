package data

import (
	"fmt"
	"time"
)

// Kind is the storage type of a Column.
type Kind int

const (
	Float Kind = iota
	Bool
	Category
	Time
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Category:
		return "category"
	case Time:
		return "time"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps the names printed by Kind.String back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "float":
		return Float, nil
	case "bool":
		return Bool, nil
	case "category":
		return Category, nil
	case "time":
		return Time, nil
	}
	return 0, fmt.Errorf("data: unknown column kind %q", s)
}

// Column is one named, typed column. Exactly one of the value slices is
// populated, selected by Kind.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Bools   []bool
	Strings []string
	Times   []time.Time
}

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	switch c.Kind {
	case Float:
		return len(c.Floats)
	case Bool:
		return len(c.Bools)
	case Category:
		return len(c.Strings)
	case Time:
		return len(c.Times)
	}
	return 0
}

func FloatColumn(name string, v []float64) *Column {
	return &Column{Name: name, Kind: Float, Floats: v}
}

func BoolColumn(name string, v []bool) *Column {
	return &Column{Name: name, Kind: Bool, Bools: v}
}

func CategoryColumn(name string, v []string) *Column {
	return &Column{Name: name, Kind: Category, Strings: v}
}

func TimeColumn(name string, v []time.Time) *Column {
	return &Column{Name: name, Kind: Time, Times: v}
}

// Frame is an ordered set of equal-length columns. A Frame is not modified
// after construction; callers share it freely across goroutines.
type Frame struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// NewFrame validates that names are unique and lengths agree.
func NewFrame(cols ...*Column) (*Frame, error) {
	f := &Frame{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("data: column %d is nil", i)
		}
		if _, dup := f.index[c.Name]; dup {
			return nil, fmt.Errorf("data: duplicate column %q", c.Name)
		}
		if i == 0 {
			f.rows = c.Len()
		} else if c.Len() != f.rows {
			return nil, fmt.Errorf("data: column %q has %d rows, want %d", c.Name, c.Len(), f.rows)
		}
		f.index[c.Name] = i
		f.cols = append(f.cols, c)
	}
	return f, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.rows }

// Columns returns the columns in schema order.
func (f *Frame) Columns() []*Column { return f.cols }

// Column looks a column up by name.
func (f *Frame) Column(name string) (*Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.cols[i], true
}

// Names returns the column names in schema order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.cols))
	for i, c := range f.cols {
		out[i] = c.Name
	}
	return out
}

// CheckChronological verifies that the named time column is strictly
// ascending, i.e. sorted with no duplicate dates.
func (f *Frame) CheckChronological(name string) error {
	c, ok := f.Column(name)
	if !ok {
		return fmt.Errorf("data: column %q not found", name)
	}
	if c.Kind != Time {
		return fmt.Errorf("data: column %q is %s, not time", name, c.Kind)
	}
	for i := 1; i < len(c.Times); i++ {
		if !c.Times[i].After(c.Times[i-1]) {
			return fmt.Errorf("data: column %q not strictly ascending at row %d (%s after %s)",
				name, i, c.Times[i].Format(time.DateOnly), c.Times[i-1].Format(time.DateOnly))
		}
	}
	return nil
}
