// Package preview renders a board's strokes to a debug bitmap, replacing
// the teacher's ASCII-art dump of stroke points with an actual image.
package preview

import (
	"bytes"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// canvasSize is the canonical coordinate system spec.md's Point assumes:
// both axes in [0,255].
const canvasSize = 256

// Point is one raw stroke coordinate, matching hanzilookup.Point's range.
type Point struct{ X, Y uint8 }

// Stroke is an ordered sequence of points rendered as connected line
// segments.
type Stroke struct{ Points []Point }

// Render rasterizes strokes onto a white canvasSize x canvasSize canvas,
// center-crops it to a square (a no-op here since the canvas is already
// square, but keeps the pipeline correct if canvasSize ever changes),
// then scales it to width x height and returns the PNG-encoded bytes.
// Zero width/height defaults to canvasSize.
func Render(strokes []Stroke, width, height int) ([]byte, error) {
	if width <= 0 {
		width = canvasSize
	}
	if height <= 0 {
		height = canvasSize
	}

	canvas := image.NewGray(image.Rect(0, 0, canvasSize, canvasSize))
	for i := range canvas.Pix {
		canvas.Pix[i] = 0xFF
	}
	for _, s := range strokes {
		drawStroke(canvas, s)
	}

	squared := imaging.CropCenter(canvas, canvasSize, canvasSize)

	scaled := image.NewGray(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), squared, squared.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, scaled, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo is a convenience wrapper around Render for http.Handler bodies.
func WriteTo(w io.Writer, strokes []Stroke, width, height int) error {
	b, err := Render(strokes, width, height)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func drawStroke(img *image.Gray, s Stroke) {
	black := color.Gray{Y: 0x00}
	for i := 1; i < len(s.Points); i++ {
		drawLine(img, s.Points[i-1], s.Points[i], black)
	}
	if len(s.Points) == 1 {
		p := s.Points[0]
		img.SetGray(int(p.X), int(p.Y), black)
	}
}

// drawLine rasterizes a line segment with Bresenham's algorithm.
func drawLine(img *image.Gray, a, b Point, c color.Gray) {
	x0, y0 := int(a.X), int(a.Y)
	x1, y1 := int(b.X), int(b.Y)

	dx := abs(x1 - x0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	dy := -abs(y1 - y0)
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		img.SetGray(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
