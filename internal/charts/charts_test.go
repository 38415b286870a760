package charts

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int, base float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = base + float64(i)
	}
	return out
}

func testFigure(title string) Figure {
	return Figure{
		Title:  title,
		XLabel: "Frames",
		YLabel: "Angle (deg)",
		Series: []Series{
			{Name: "Right", Color: "1f77b4", Values: ramp(10, 100)},
			{Name: "Left", Color: "ff7f0e", Values: ramp(10, 80)},
		},
	}
}

func dirEntries(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return entries
}

func TestRenderWritesOpaquePNG(t *testing.T) {
	dir := t.TempDir()
	r := &Renderer{Width: 400, Height: 200}

	path, err := r.Render(testFigure("Knee Joint Angles"), dir)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, ".png", filepath.Ext(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 400, 200), img.Bounds())
	opaque, ok := img.(interface{ Opaque() bool })
	require.True(t, ok)
	assert.True(t, opaque.Opaque())
}

func TestRenderIsDeterministic(t *testing.T) {
	r := NewRenderer()
	fig := Figure{
		Title:  "Upper Body Vertical Position",
		XLabel: "Frames",
		YLabel: "Y-coordinates",
		Series: []Series{{Name: "Upper body", Color: "ff7f0e", Values: ramp(70, 480)}},
	}

	a, err := r.Render(fig, t.TempDir())
	require.NoError(t, err)
	b, err := r.Render(fig, t.TempDir())
	require.NoError(t, err)

	ab, err := os.ReadFile(a)
	require.NoError(t, err)
	bb, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(ab, bb))
}

func TestRenderRejectsEmptyFigure(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer()

	_, err := r.Render(Figure{Title: "empty"}, dir)
	assert.Error(t, err)

	_, err = r.Render(Figure{Title: "short", Series: []Series{{Name: "one", Values: []float64{1}}}}, dir)
	assert.Error(t, err)

	assert.Empty(t, dirEntries(t, dir))
}

func TestRenderMissingDirectory(t *testing.T) {
	_, err := NewRenderer().Render(testFigure("x"), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestRenderAllKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	paths, err := NewRenderer().RenderAll([]Figure{testFigure("a"), testFigure("b"), testFigure("c")}, dir)
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Len(t, dirEntries(t, dir), 3)

	require.NoError(t, Remove(paths))
	assert.Empty(t, dirEntries(t, dir))
}

func TestRenderAllCleansUpOnFailure(t *testing.T) {
	dir := t.TempDir()
	figs := []Figure{testFigure("a"), testFigure("b"), {Title: "broken"}}

	paths, err := NewRenderer().RenderAll(figs, dir)
	assert.Error(t, err)
	assert.Nil(t, paths)
	assert.Empty(t, dirEntries(t, dir))
}

func TestRenderFigureSizeOverride(t *testing.T) {
	fig := testFigure("sized")
	fig.Width = 321

	path, err := (&Renderer{Width: 400, Height: 200}).Render(fig, t.TempDir())
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 321, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
}
