// Package charts renders line figures to PNG files in scratch storage.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Default figure size in pixels. The ratio matches the 160mm wide slot the report gives each chart.
const (
	DefaultWidth  = 960
	DefaultHeight = 336
)

// Series is one plotted line; the x value of each point is its frame index.
type Series struct {
	Name   string
	Color  string // hex, e.g. "ff7f0e"
	Values []float64
}

// Figure is a titled chart with labelled axes. Width and Height override the renderer size when set.
type Figure struct {
	Title  string
	XLabel string
	YLabel string
	Series []Series
	Width  int
	Height int
}

// Renderer draws figures at a fixed size.
type Renderer struct {
	Width  int
	Height int
}

// NewRenderer returns a renderer with the default size
func NewRenderer() *Renderer {
	return &Renderer{Width: DefaultWidth, Height: DefaultHeight}
}

// Render draws fig and writes it to a new chart-*.png file in dir.
func (r *Renderer) Render(fig Figure, dir string) (string, error) {
	img, err := r.draw(fig)
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp(dir, "chart-*.png")
	if err != nil {
		return "", fmt.Errorf("create chart file: %w", err)
	}
	path := f.Name()
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("encode %q: %w", fig.Title, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write %q: %w", fig.Title, err)
	}
	return path, nil
}

// RenderAll renders figs in order. On failure the files already written are removed.
func (r *Renderer) RenderAll(figs []Figure, dir string) ([]string, error) {
	paths := make([]string, 0, len(figs))
	for _, fig := range figs {
		path, err := r.Render(fig, dir)
		if err != nil {
			return nil, errors.Join(err, Remove(paths))
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Remove deletes rendered chart files, reporting every failure.
func Remove(paths []string) error {
	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Renderer) draw(fig Figure) (image.Image, error) {
	if len(fig.Series) == 0 {
		return nil, fmt.Errorf("figure %q has no series", fig.Title)
	}

	series := make([]chart.Series, 0, len(fig.Series))
	for _, s := range fig.Series {
		if len(s.Values) < 2 {
			return nil, fmt.Errorf("figure %q: series %q needs at least 2 values", fig.Title, s.Name)
		}
		xs := make([]float64, len(s.Values))
		for i := range xs {
			xs[i] = float64(i)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: s.Values,
			Style: chart.Style{
				StrokeColor: drawing.ColorFromHex(s.Color),
				StrokeWidth: 2,
			},
		})
	}

	width, height := r.Width, r.Height
	if fig.Width > 0 {
		width = fig.Width
	}
	if fig.Height > 0 {
		height = fig.Height
	}

	ch := chart.Chart{
		Title:      fig.Title,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 12}},
		XAxis:      chart.XAxis{Name: fig.XLabel},
		YAxis:      chart.YAxis{Name: fig.YLabel},
		Series:     series,
	}
	if len(series) > 1 {
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render %q: %w", fig.Title, err)
	}
	src, err := png.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", fig.Title, err)
	}

	// fpdf embeds an extra soft-mask image for PNGs with an alpha channel
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.White, image.Point{}, draw.Src)
	draw.Draw(dst, b, src, b.Min, draw.Over)
	return dst, nil
}
