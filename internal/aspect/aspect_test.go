package aspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_Scenarios(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		want          Layout
	}{
		{
			name:  "4:3 gets pillarboxed",
			width: 640, height: 480,
			want: Layout{SrcWidth: 640, SrcHeight: 480, Width: 853, Height: 480, PadX: 106, PadY: 0},
		},
		{
			name:  "exact 16:9 is unchanged",
			width: 1920, height: 1080,
			want: Layout{SrcWidth: 1920, SrcHeight: 1080, Width: 1920, Height: 1080},
		},
		{
			name:  "square is narrower than 16:9",
			width: 1000, height: 1000,
			want: Layout{SrcWidth: 1000, SrcHeight: 1000, Width: 1778, Height: 1000, PadX: 389},
		},
		{
			name:  "ultrawide gets letterboxed",
			width: 2560, height: 1080,
			want: Layout{SrcWidth: 2560, SrcHeight: 1080, Width: 2560, Height: 1440, PadY: 180},
		},
		{
			name:  "portrait phone video",
			width: 1080, height: 1920,
			want: Layout{SrcWidth: 1080, SrcHeight: 1920, Width: 3413, Height: 1920, PadX: 1166},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(tt.width, tt.height)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompute_InvalidDimensions(t *testing.T) {
	for _, dims := range [][2]int{{0, 100}, {100, 0}, {-1, 100}, {100, -5}} {
		_, err := Compute(dims[0], dims[1])
		assert.ErrorIs(t, err, ErrInvalidDimensions, "dims %v", dims)
	}
}

func TestCompute_Properties(t *testing.T) {
	for w := 1; w <= 400; w += 7 {
		for h := 1; h <= 400; h += 11 {
			l, err := Compute(w, h)
			require.NoError(t, err)

			if l.Width < w || l.Height < h {
				t.Fatalf("%dx%d: canvas %dx%d crops the source", w, h, l.Width, l.Height)
			}
			if l.PadX != 0 && l.PadY != 0 {
				t.Fatalf("%dx%d: both paddings set (%d,%d)", w, h, l.PadX, l.PadY)
			}
			if l.PadX < 0 || l.PadY < 0 {
				t.Fatalf("%dx%d: negative padding (%d,%d)", w, h, l.PadX, l.PadY)
			}
			if l.PadX+w > l.Width || l.PadY+h > l.Height {
				t.Fatalf("%dx%d: source does not fit at offset (%d,%d) in %dx%d", w, h, l.PadX, l.PadY, l.Width, l.Height)
			}

			switch {
			case w*9 < h*16:
				assert.Equal(t, h, l.Height, "narrow source keeps height")
				assert.Zero(t, l.PadY)
			case w*9 > h*16:
				assert.Equal(t, w, l.Width, "wide source keeps width")
				assert.Zero(t, l.PadX)
			default:
				assert.True(t, l.IsIdentity(), "16:9 source must be unchanged")
			}
		}
	}
}

func TestCompute_OddDifferenceDropsRemainder(t *testing.T) {
	// 90x100 -> 178x100, difference 88, even split.
	l, err := Compute(90, 100)
	require.NoError(t, err)
	assert.Equal(t, 178, l.Width)
	assert.Equal(t, 44, l.PadX)

	// 91x100 -> difference 87, left bar 43, right bar 44.
	l, err = Compute(91, 100)
	require.NoError(t, err)
	assert.Equal(t, 43, l.PadX)
	assert.Equal(t, 44, l.Width-l.SrcWidth-l.PadX)
}

func TestLayout_Ratios(t *testing.T) {
	l, err := Compute(640, 480)
	require.NoError(t, err)

	assert.InDelta(t, 4.0/3.0, l.SourceRatio(), 1e-9)
	assert.InDelta(t, 16.0/9.0, l.Ratio(), 0.01)
	assert.False(t, l.IsIdentity())
	assert.Equal(t, "640x480 -> 853x480 (pad 106,0)", l.String())

	assert.Zero(t, Layout{}.Ratio())
	assert.Zero(t, Layout{}.SourceRatio())
}
