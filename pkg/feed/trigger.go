package feed

// Rect is the bounding box of a row relative to the viewport top.
type Rect struct {
	Y      float64
	Height float64
}

// ShouldLoadNext reports whether the last visible row is within three row
// heights of the viewport top.
func ShouldLoadNext(last Rect) bool {
	return last.Y-3*last.Height < 0
}

// Viewport models a scrolled list of equally tall rows. It stands in for a
// browser window when the feed runs headless.
type Viewport struct {
	RowHeight float64
	Rows      int
	ScrollY   float64
}

// LastRowRect returns the position of the last row.
func (v *Viewport) LastRowRect() Rect {
	top := float64(v.Rows-1)*v.RowHeight - v.ScrollY
	return Rect{Y: top, Height: v.RowHeight}
}

// ScrollTo sets the scroll offset, clamped at zero.
func (v *Viewport) ScrollTo(y float64) {
	if y < 0 {
		y = 0
	}
	v.ScrollY = y
}

// ScrollToEnd scrolls until the end of the list reaches the viewport top.
func (v *Viewport) ScrollToEnd() {
	v.ScrollTo(float64(v.Rows) * v.RowHeight)
}

// Append adds n rows below the current ones.
func (v *Viewport) Append(n int) {
	if n > 0 {
		v.Rows += n
	}
}
