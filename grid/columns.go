package grid

// Breakpoint maps a minimum container width to a column count.
type Breakpoint struct {
	MinWidth float64
	Columns  int
}

// DefaultBreakpoints: one column on phones up to four on wide screens.
var DefaultBreakpoints = []Breakpoint{
	{MinWidth: 0, Columns: 1},
	{MinWidth: 640, Columns: 2},
	{MinWidth: 1024, Columns: 3},
	{MinWidth: 1280, Columns: 4},
}

// ColumnsFor returns the column count of the widest breakpoint that width
// reaches. bps must be sorted by MinWidth; nil means DefaultBreakpoints.
// The result is never below 1.
func ColumnsFor(width float64, bps []Breakpoint) int {
	if bps == nil {
		bps = DefaultBreakpoints
	}
	cols := 1
	for _, bp := range bps {
		if width < bp.MinWidth {
			break
		}
		cols = bp.Columns
	}
	return max(cols, 1)
}
