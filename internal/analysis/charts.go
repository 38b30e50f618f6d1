package analysis

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/polzovatel/flightcheck/internal/flight"
)

// ErrNoData is returned by chart renderers when there is nothing to draw.
var ErrNoData = errors.New("no chart data")

const (
	chartW    = 960
	chartH    = 600
	margin    = 70
	histoBins = 20
)

var (
	white   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black   = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	grid    = color.RGBA{R: 220, G: 220, B: 220, A: 255}
	skyblue = color.RGBA{R: 135, G: 206, B: 235, A: 255}
	green   = color.RGBA{R: 144, G: 238, B: 144, A: 255}
	coral   = color.RGBA{R: 240, G: 128, B: 128, A: 255}
	empty   = color.RGBA{R: 235, G: 235, B: 235, A: 255}
)

type canvas struct {
	img *image.RGBA
}

func newCanvas(w, h int) *canvas {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(white), image.Point{}, draw.Src)
	return &canvas{img: img}
}

func (c *canvas) fill(r image.Rectangle, col color.Color) {
	draw.Draw(c.img, r.Intersect(c.img.Bounds()), image.NewUniform(col), image.Point{}, draw.Over)
}

func (c *canvas) outline(r image.Rectangle, col color.Color) {
	c.fill(image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1), col)
	c.fill(image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y), col)
	c.fill(image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y), col)
	c.fill(image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y), col)
}

// text draws s with its baseline starting at (x, y).
func (c *canvas) text(s string, x, y int, col color.Color) {
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(s)
}

// centred draws s horizontally centred on x.
func (c *canvas) centred(s string, x, y int, col color.Color) {
	c.text(s, x-len([]rune(s))*7/2, y, col)
}

func (c *canvas) axes() image.Rectangle {
	plot := image.Rect(margin, margin, chartW-margin, chartH-margin)
	for i := 0; i <= 5; i++ {
		y := plot.Max.Y - i*plot.Dy()/5
		c.fill(image.Rect(plot.Min.X, y, plot.Max.X, y+1), grid)
	}
	c.outline(plot, black)
	return plot
}

func (c *canvas) save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, c.img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// Histogram buckets vals into n equal-width bins over [min, max].
func Histogram(vals []float64, n int) (counts []int, lo, width float64) {
	if len(vals) == 0 || n <= 0 {
		return nil, 0, 0
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	width = (hi - lo) / float64(n)
	counts = make([]int, n)
	for _, v := range vals {
		i := n - 1
		if width > 0 {
			i = int((v - lo) / width)
		}
		if i >= n {
			i = n - 1
		}
		counts[i]++
	}
	return counts, lo, width
}

// PriceDistributionChart renders a 20-bin price histogram with min, max and
// average noted in the corner.
func PriceDistributionChart(recs []flight.Record, path string) error {
	prices := Prices(recs)
	if len(prices) == 0 {
		return ErrNoData
	}
	counts, lo, width := Histogram(prices, histoBins)
	peak := 0
	for _, n := range counts {
		peak = max(peak, n)
	}

	c := newCanvas(chartW, chartH)
	plot := c.axes()
	barW := plot.Dx() / histoBins
	for i, n := range counts {
		h := n * plot.Dy() / peak
		bar := image.Rect(plot.Min.X+i*barW+1, plot.Max.Y-h, plot.Min.X+(i+1)*barW-1, plot.Max.Y)
		c.fill(bar, skyblue)
		c.outline(bar, black)
		if i%4 == 0 {
			c.centred(fmt.Sprintf("%.0f", lo+float64(i)*width), bar.Min.X, plot.Max.Y+16, black)
		}
	}
	s := Summarize(recs)
	c.centred("Flight price distribution", chartW/2, margin/2, black)
	c.centred("Price (TL)", chartW/2, chartH-margin/3, black)
	c.text(fmt.Sprintf("peak %d flights", peak), 8, margin-8, black)
	c.text(fmt.Sprintf("Min: %.0f TL", s.Min), plot.Max.X-150, plot.Min.Y+20, black)
	c.text(fmt.Sprintf("Max: %.0f TL", s.Max), plot.Max.X-150, plot.Min.Y+36, black)
	c.text(fmt.Sprintf("Avg: %.0f TL", s.Avg), plot.Max.X-150, plot.Min.Y+52, black)
	return c.save(path)
}

// AirlineComparisonChart renders min, average and max price bars per airline.
func AirlineComparisonChart(recs []flight.Record, path string) error {
	stats := SortedStats(recs)
	if len(stats) == 0 {
		return ErrNoData
	}
	top := 0.0
	for _, st := range stats {
		top = math.Max(top, st.Max)
	}

	c := newCanvas(chartW, chartH)
	plot := c.axes()
	group := plot.Dx() / len(stats)
	barW := max(group/4, 2)
	height := func(v float64) int { return int(v / top * float64(plot.Dy())) }
	for i, st := range stats {
		x := plot.Min.X + i*group + group/8
		for j, bar := range []struct {
			v   float64
			col color.Color
		}{{st.Min, green}, {st.Avg, skyblue}, {st.Max, coral}} {
			r := image.Rect(x+j*barW, plot.Max.Y-height(bar.v), x+(j+1)*barW, plot.Max.Y)
			c.fill(r, bar.col)
			c.outline(r, black)
		}
		c.centred(st.Airline, plot.Min.X+i*group+group/2, plot.Max.Y+16, black)
	}
	c.centred("Airline price comparison", chartW/2, margin/2, black)
	legend := []struct {
		label string
		col   color.Color
	}{{"Min", green}, {"Avg", skyblue}, {"Max", coral}}
	for i, l := range legend {
		y := plot.Min.Y + 10 + i*18
		c.fill(image.Rect(plot.Max.X-90, y, plot.Max.X-78, y+12), l.col)
		c.text(l.label, plot.Max.X-72, y+11, black)
	}
	c.text(fmt.Sprintf("%.0f TL", top), 8, plot.Min.Y+4, black)
	return c.save(path)
}

// HourlyHeatmapChart renders HourlyMatrix as a yellow-to-red grid with the
// mean price written in each filled cell.
func HourlyHeatmapChart(recs []flight.Record, path string) error {
	m := HourlyMatrix(recs)
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range m {
		for _, v := range row {
			if !math.IsNaN(v) {
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
		}
	}
	if math.IsInf(lo, 1) {
		return ErrNoData
	}

	c := newCanvas(chartW, chartH)
	plot := image.Rect(margin*2, margin, chartW-margin, chartH-margin)
	cellW, cellH := plot.Dx()/6, plot.Dy()/4
	rows := []string{"Night 00-05", "Morning 06-11", "Noon 12-17", "Evening 18-23"}
	for i, row := range m {
		for j, v := range row {
			r := image.Rect(plot.Min.X+j*cellW, plot.Min.Y+i*cellH, plot.Min.X+(j+1)*cellW, plot.Min.Y+(i+1)*cellH)
			if math.IsNaN(v) {
				c.fill(r, empty)
			} else {
				c.fill(r, heat(v, lo, hi))
				c.centred(fmt.Sprintf("%.0f", v), r.Min.X+cellW/2, r.Min.Y+cellH/2+4, black)
			}
			c.outline(r, white)
		}
		c.text(rows[i], 8, plot.Min.Y+i*cellH+cellH/2+4, black)
	}
	for j := 0; j < 6; j++ {
		c.centred(fmt.Sprintf("+%d:00", j), plot.Min.X+j*cellW+cellW/2, plot.Max.Y+16, black)
	}
	c.centred("Mean price by departure hour", chartW/2, margin/2, black)
	return c.save(path)
}

// heat maps v in [lo, hi] onto a yellow to red ramp.
func heat(v, lo, hi float64) color.Color {
	t := 0.0
	if hi > lo {
		t = (v - lo) / (hi - lo)
	}
	return color.RGBA{
		R: uint8(255 - 55*t),
		G: uint8(235 - 200*t),
		B: uint8(160 - 130*t),
		A: 255,
	}
}
