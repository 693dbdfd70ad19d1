package diag

import (
	"fmt"
	"slices"
	"strings"
)

// Collector accumulates diagnostics for one compilation. It is append-only;
// ordering and duplicate suppression happen in Sorted.
type Collector struct {
	diags []Diagnostic
}

// Add records a diagnostic.
func (c *Collector) Add(kind Kind, loc Location, args ...Arg) {
	c.diags = append(c.diags, New(kind, loc, args...))
}

// Append records already-built diagnostics.
func (c *Collector) Append(ds ...Diagnostic) {
	c.diags = append(c.diags, ds...)
}

// Len is the number of diagnostics recorded so far, duplicates included.
// Phases compare it before and after running.
func (c *Collector) Len() int {
	return len(c.diags)
}

// Sorted returns the diagnostics ordered by location with exact duplicates
// removed. Diagnostics at the same location are ordered by kind and text so
// duplicates end up adjacent.
func (c *Collector) Sorted() []Diagnostic {
	out := slices.Clone(c.diags)
	slices.SortStableFunc(out, func(a, b Diagnostic) int {
		switch {
		case a.Loc.Before(b.Loc):
			return -1
		case b.Loc.Before(a.Loc):
			return 1
		case a.Kind != b.Kind:
			return int(a.Kind) - int(b.Kind)
		}
		return strings.Compare(a.Message(), b.Message())
	})
	return slices.Compact(out)
}

// Err returns nil when nothing was recorded, otherwise the sorted
// diagnostics as an *Errors.
func (c *Collector) Err() error {
	if c.Len() == 0 {
		return nil
	}
	return &Errors{Diagnostics: c.Sorted()}
}

// Errors is the error form of a failed compilation.
type Errors struct {
	Diagnostics []Diagnostic
}

func (e *Errors) Unwrap() []error {
	errs := make([]error, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		errs[i] = d
	}
	return errs
}

func (e *Errors) Error() string {
	if len(e.Diagnostics) == 1 {
		return e.Diagnostics[0].Error()
	}
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = d.Error()
	}
	return fmt.Sprintf("%d errors:\n%s", len(e.Diagnostics), strings.Join(msgs, "\n"))
}
