package grid

import "math"

// Compute returns the render window for items under layout and vp.
// It has no side effects; the caller hands Window.Prefetch to a preloader.
// ScrollOffset is clamped to [0, TotalHeight-ContainerHeight], so an
// overscrolled viewport yields the last rows, never an empty window.
func Compute[T Item](items []T, layout Layout, vp Viewport) (Window[T], error) {
	cols := vp.Columns
	if err := layout.validate(cols); err != nil {
		return Window[T]{}, err
	}
	rowHeight := layout.RowHeight()
	w := Window[T]{EndRow: -1, EndIndex: -1, RowHeight: rowHeight}

	n := len(items)
	if n == 0 {
		return w, nil
	}
	rows := (n + cols - 1) / cols
	w.TotalHeight = float64(rows) * rowHeight

	height := math.Max(vp.ContainerHeight, 0)
	offset := clamp(vp.ScrollOffset, 0, math.Max(0, w.TotalHeight-height))

	start := max(0, int(math.Floor(offset/rowHeight))-layout.Overscan)
	start = min(start, rows-1)
	span := max(1, int(math.Ceil(height/rowHeight))+2*layout.Overscan)
	end := min(rows-1, start+span-1)

	w.StartRow, w.EndRow = start, end
	w.StartIndex = start * cols
	w.Items = make([]VisibleItem[T], 0, (end-start+1)*cols)

	width := 100 / float64(cols)
	for row := start; row <= end; row++ {
		top := float64(row) * rowHeight
		for col := 0; col < cols; col++ {
			idx := row*cols + col
			if idx >= n {
				break
			}
			w.Items = append(w.Items, VisibleItem[T]{
				Item:  items[idx],
				Index: idx,
				Row:   row,
				Col:   col,
				Style: Style{
					Top:          top,
					LeftPercent:  float64(col) * width,
					WidthPercent: width,
					Height:       layout.ItemHeight,
				},
			})
			w.EndIndex = idx
		}
	}

	if next := end + 1; next < rows {
		for idx := next * cols; idx < min(n, (next+1)*cols); idx++ {
			if url := items[idx].ImageURL(); url != "" {
				w.Prefetch = append(w.Prefetch, url)
			}
		}
	}
	return w, nil
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
