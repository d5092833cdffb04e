package chart

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"nexo-alert/internal/ledger"
)

var ErrNoData = errors.New("no price points to draw")

const maxTicks = 6

type Renderer struct {
	Symbol string
	Width  int
	Height int
}

func NewRenderer(symbol string, width, height int) *Renderer {
	return &Renderer{Symbol: symbol, Width: width, Height: height}
}

// Render draws the series as a PNG line chart with a dashed threshold line.
func (r *Renderer) Render(series []ledger.SeriesPoint, threshold float64) ([]byte, error) {
	if len(series) == 0 {
		return nil, ErrNoData
	}

	xs := make([]float64, len(series))
	ys := make([]float64, len(series))
	for i, p := range series {
		xs[i] = p.X
		ys[i] = p.Price
	}

	maxX := math.Max(xs[len(xs)-1], 1)
	lo, hi := yBounds(ys, threshold)
	line := gochart.ColorBlue

	graph := gochart.Chart{
		Title:  fmt.Sprintf("%s Price (USD)", r.Symbol),
		Width:  r.Width,
		Height: r.Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: gochart.XAxis{
			Name:  "Time",
			Range: &gochart.ContinuousRange{Min: 0, Max: maxX},
			Ticks: ticks(series),
		},
		YAxis: gochart.YAxis{
			Name:  "Price (USD)",
			Range: &gochart.ContinuousRange{Min: lo, Max: hi},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.2f", f)
				}
				return ""
			},
		},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    r.Symbol,
				XValues: xs,
				YValues: ys,
				Style: gochart.Style{
					StrokeColor: line,
					StrokeWidth: 2,
					DotColor:    line,
					DotWidth:    3,
				},
			},
			gochart.ContinuousSeries{
				Name:    "Threshold",
				XValues: []float64{0, maxX},
				YValues: []float64{threshold, threshold},
				Style: gochart.Style{
					StrokeColor:     drawing.ColorRed,
					StrokeWidth:     1,
					StrokeDashArray: []float64{5, 5},
				},
			},
		},
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.Bytes(), nil
}

// yBounds pads the price range so a flat series still has a drawable axis.
func yBounds(ys []float64, threshold float64) (float64, float64) {
	lo, hi := threshold, threshold
	for _, y := range ys {
		lo = math.Min(lo, y)
		hi = math.Max(hi, y)
	}
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = math.Max(math.Abs(hi)*0.05, 0.01)
	}
	return math.Max(lo-pad, 0), hi + pad
}

func ticks(series []ledger.SeriesPoint) []gochart.Tick {
	step := (len(series) + maxTicks - 1) / maxTicks
	if step < 1 {
		step = 1
	}
	var out []gochart.Tick
	for i := 0; i < len(series); i += step {
		label := series[i].Label
		if label == "" {
			label = fmt.Sprintf("%d", i+1)
		}
		out = append(out, gochart.Tick{Value: series[i].X, Label: label})
	}
	return out
}
