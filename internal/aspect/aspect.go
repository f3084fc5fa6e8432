// Package aspect computes the 16:9 canvas layout used to pillarbox or
// letterbox a video without cropping or scaling it.
package aspect

import (
	"errors"
	"fmt"
)

// Target ratio is 16:9.
const (
	RatioWidth  = 16
	RatioHeight = 9
)

// ErrInvalidDimensions is returned when width or height is not positive.
var ErrInvalidDimensions = errors.New("invalid dimensions: width and height must be positive")

// Layout describes where a source picture sits inside the 16:9 canvas.
// At most one of PadX and PadY is nonzero.
type Layout struct {
	// SrcWidth and SrcHeight are the source frame dimensions.
	SrcWidth  int
	SrcHeight int
	// Width and Height are the canvas dimensions.
	Width  int
	Height int
	// PadX is the left offset of the source inside the canvas.
	PadX int
	// PadY is the top offset of the source inside the canvas.
	PadY int
}

// Compute derives the canvas layout for a width x height source.
//
// Sources narrower than 16:9 keep their height and get bars on the left and
// right. Sources at or wider than 16:9 keep their width and get bars on the
// top and bottom. The odd pixel of an odd padding difference ends up on the
// right or bottom.
func Compute(width, height int) (Layout, error) {
	if width <= 0 || height <= 0 {
		return Layout{}, fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, width, height)
	}

	l := Layout{SrcWidth: width, SrcHeight: height}

	if width*RatioHeight < height*RatioWidth {
		l.Width = roundDiv(height*RatioWidth, RatioHeight)
		l.Height = height
		l.PadX = (l.Width - width) / 2
		return l, nil
	}

	l.Width = width
	l.Height = roundDiv(width*RatioHeight, RatioWidth)
	l.PadY = (l.Height - height) / 2
	return l, nil
}

// IsIdentity reports whether the canvas equals the source, i.e. the source
// is already 16:9 and no bars are added.
func (l Layout) IsIdentity() bool {
	return l.Width == l.SrcWidth && l.Height == l.SrcHeight
}

// Ratio returns the canvas width/height ratio.
func (l Layout) Ratio() float64 {
	if l.Height == 0 {
		return 0
	}
	return float64(l.Width) / float64(l.Height)
}

// SourceRatio returns the source width/height ratio.
func (l Layout) SourceRatio() float64 {
	if l.SrcHeight == 0 {
		return 0
	}
	return float64(l.SrcWidth) / float64(l.SrcHeight)
}

// String formats the layout for logs.
func (l Layout) String() string {
	return fmt.Sprintf("%dx%d -> %dx%d (pad %d,%d)", l.SrcWidth, l.SrcHeight, l.Width, l.Height, l.PadX, l.PadY)
}

// roundDiv returns num/den rounded half up for non-negative operands.
func roundDiv(num, den int) int {
	return (2*num + den) / (2 * den)
}
