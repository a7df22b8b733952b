// Package plotting renders backtest reports as PNG charts: one
// actual-vs-predicted overlay per block and model, and R² by block per model.
package plotting

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"demandlab/pkg/report"
)

// Tile size of one overlay in a block grid.
var (
	TileWidth  = 5 * vg.Inch
	TileHeight = 3 * vg.Inch
)

// R2ChartFile is the file name WriteAll uses for the R² comparison.
const R2ChartFile = "r2_by_block.png"

// Overlay plots the actual and predicted test vectors of one pair against
// row index. A failed pair shows the actual line only.
func Overlay(s report.Series) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Block %d: %s", s.Block, s.Model)
	p.X.Label.Text = "row"
	p.Y.Label.Text = "demand"
	p.Legend.Top = true

	actual := seriesXYs(s.Start, s.Actual)
	if len(s.Predicted) == 0 {
		p.Title.Text += " (failed)"
		if err := plotutil.AddLinePoints(p, "actual", actual); err != nil {
			return nil, err
		}
		return p, nil
	}
	if err := plotutil.AddLinePoints(p,
		"actual", actual,
		"predicted", seriesXYs(s.Start, s.Predicted),
	); err != nil {
		return nil, err
	}
	return p, nil
}

// SaveGrid lays plots out in a grid of cols columns and writes one PNG.
func SaveGrid(path string, plots []*plot.Plot, cols int) error {
	if len(plots) == 0 {
		return fmt.Errorf("plotting: nothing to draw for %s", path)
	}
	if cols <= 0 || cols > len(plots) {
		cols = len(plots)
	}
	rows := (len(plots) + cols - 1) / cols

	grid := make([][]*plot.Plot, rows)
	for j := range grid {
		grid[j] = make([]*plot.Plot, cols)
		for i := range grid[j] {
			if k := j*cols + i; k < len(plots) {
				grid[j][i] = plots[k]
			}
		}
	}

	img := vgimg.New(TileWidth*vg.Length(cols), TileHeight*vg.Length(rows))
	dc := draw.New(img)
	t := draw.Tiles{
		Rows:      rows,
		Cols:      cols,
		PadX:      vg.Millimeter,
		PadY:      vg.Millimeter,
		PadTop:    vg.Points(2),
		PadBottom: vg.Points(2),
		PadLeft:   vg.Points(2),
		PadRight:  vg.Points(2),
	}
	canvases := plot.Align(grid, t, dc)
	for j := range grid {
		for i := range grid[j] {
			if grid[j][i] != nil {
				grid[j][i].Draw(canvases[j][i])
			}
		}
	}

	w, err := os.Create(path)
	if err != nil {
		return err
	}
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// R2Chart draws one line per model of R² against block id. Undefined
// blocks are left out of the line.
func R2Chart(r *report.Report) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "R² by block"
	p.X.Label.Text = "block"
	p.Y.Label.Text = "R²"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	byModel := r.R2ByModel()
	for i, name := range r.Models {
		pts := make(plotter.XYs, 0, len(byModel[name]))
		for k, v := range byModel[name] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(r.Winners[k].Block), Y: v})
		}
		if len(pts) == 0 {
			continue
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, err
		}
		c := plotutil.Color(i)
		line.Color = c
		points.Color = c
		points.Shape = plotutil.Shape(i)
		p.Add(line, points)
		p.Legend.Add(name, line, points)
	}
	// a horizontal reference at R² = 0
	zero := plotter.NewFunction(func(float64) float64 { return 0 })
	zero.Color = color.Gray{Y: 128}
	zero.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(zero)
	return p, nil
}

// WriteAll writes block_<id>.png (one tile per model) for every block and
// the R² comparison into dir, returning the written paths.
func WriteAll(dir string, r *report.Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create plot dir: %w", err)
	}
	var written []string
	for _, w := range r.Winners {
		series := r.BlockSeries(w.Block)
		plots := make([]*plot.Plot, 0, len(series))
		for _, s := range series {
			p, err := Overlay(s)
			if err != nil {
				return written, fmt.Errorf("overlay block %d %s: %w", s.Block, s.Model, err)
			}
			plots = append(plots, p)
		}
		path := filepath.Join(dir, fmt.Sprintf("block_%d.png", w.Block))
		if err := SaveGrid(path, plots, 0); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	p, err := R2Chart(r)
	if err != nil {
		return written, err
	}
	path := filepath.Join(dir, R2ChartFile)
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return written, err
	}
	return append(written, path), nil
}

func seriesXYs(start int, v []float64) plotter.XYs {
	pts := make(plotter.XYs, len(v))
	for i := range v {
		pts[i].X = float64(start + i)
		pts[i].Y = v[i]
	}
	return pts
}
