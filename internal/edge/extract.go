// Package edge extracts the 1-pixel borders of a fragment and scores how well
// two borders line up.
//
// Pixels are packed as 0xRRGGBB (alpha dropped, non-premultiplied), so an
// edge is a plain []uint32 that can be compared without touching the source
// image again.
package edge

import (
	"fmt"
	"image"
	"image/color"

	"puzzled/internal/types"
)

// Edge is an ordered sequence of packed RGB pixels.
type Edge []uint32

// Pack converts a colour to 0xRRGGBB.
func Pack(c color.Color) uint32 {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return uint32(n.R)<<16 | uint32(n.G)<<8 | uint32(n.B)
}

// Unpack splits a packed pixel into its channels.
func Unpack(p uint32) (r, g, b int) {
	return int(p>>16) & 0xFF, int(p>>8) & 0xFF, int(p) & 0xFF
}

// Extract returns the border of img on the given side. Left/right borders run
// top to bottom, top/bottom borders run left to right.
func Extract(img image.Image, side types.Direction) (Edge, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("extract %s edge of %dx%d image: %w", side, b.Dx(), b.Dy(), types.ErrPrecondition)
	}

	switch side {
	case types.Left:
		return column(img, b.Min.X), nil
	case types.Right:
		return column(img, b.Max.X-1), nil
	case types.Top:
		return row(img, b.Min.Y), nil
	case types.Bottom:
		return row(img, b.Max.Y-1), nil
	default:
		return nil, fmt.Errorf("extract edge: unknown side %s: %w", side, types.ErrPrecondition)
	}
}

func column(img image.Image, x int) Edge {
	b := img.Bounds()
	out := make(Edge, 0, b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		out = append(out, Pack(img.At(x, y)))
	}
	return out
}

func row(img image.Image, y int) Edge {
	b := img.Bounds()
	out := make(Edge, 0, b.Dx())
	for x := b.Min.X; x < b.Max.X; x++ {
		out = append(out, Pack(img.At(x, y)))
	}
	return out
}

// Borders holds all four edges of one fragment.
type Borders struct {
	Left   Edge
	Right  Edge
	Top    Edge
	Bottom Edge
}

// NewBorders extracts every side of img once.
func NewBorders(img image.Image) (Borders, error) {
	var bs Borders
	for _, side := range types.Directions {
		e, err := Extract(img, side)
		if err != nil {
			return Borders{}, err
		}
		switch side {
		case types.Left:
			bs.Left = e
		case types.Right:
			bs.Right = e
		case types.Top:
			bs.Top = e
		case types.Bottom:
			bs.Bottom = e
		}
	}
	return bs, nil
}

// Side returns the edge on the given side.
func (bs Borders) Side(d types.Direction) Edge {
	switch d {
	case types.Left:
		return bs.Left
	case types.Right:
		return bs.Right
	case types.Top:
		return bs.Top
	case types.Bottom:
		return bs.Bottom
	}
	return nil
}
