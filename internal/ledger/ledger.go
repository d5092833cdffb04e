// Package ledger keeps the rolling price history behind the chart and the
// period-over-period change line.
package ledger

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

var ErrMalformed = errors.New("malformed price line")

var hundred = decimal.NewFromInt(100)

// Point is one sample. Date is zero for undated ledgers, where the position
// in the list stands in for time.
type Point struct {
	Date  time.Time
	Price decimal.Decimal
}

func (p Point) Dated() bool { return !p.Date.IsZero() }

// String renders the stored form: "<price>" or "<YYYY-MM-DD>,<price>".
func (p Point) String() string {
	if p.Dated() {
		return p.Date.Format(DateLayout) + "," + p.Price.String()
	}
	return p.Price.String()
}

func ParsePoint(line string) (Point, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Point{}, fmt.Errorf("%w: empty", ErrMalformed)
	}

	var p Point
	raw := line
	if date, price, ok := strings.Cut(line, ","); ok {
		d, err := time.Parse(DateLayout, strings.TrimSpace(date))
		if err != nil {
			return Point{}, fmt.Errorf("%w: %q: %v", ErrMalformed, line, err)
		}
		p.Date = d
		raw = strings.TrimSpace(price)
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		return Point{}, fmt.Errorf("%w: %q: %v", ErrMalformed, line, err)
	}
	if price.IsNegative() {
		return Point{}, fmt.Errorf("%w: %q: negative price", ErrMalformed, line)
	}
	p.Price = price
	return p, nil
}

type Options struct {
	Cap   int  // retention window, <= 0 keeps everything
	Dated bool // one point per calendar date
}

type Ledger struct {
	points []Point
	opts   Options
}

func New(points []Point, opts Options) *Ledger {
	return &Ledger{points: slices.Clone(points), opts: opts}
}

func (l *Ledger) Len() int { return len(l.points) }

func (l *Ledger) Points() []Point { return slices.Clone(l.points) }

// Record appends a sample taken at at. In a dated ledger an existing point
// for the same calendar date is removed first. The ledger is then trimmed
// from the front down to the retention cap.
func (l *Ledger) Record(price decimal.Decimal, at time.Time) {
	p := Point{Price: price}
	if l.opts.Dated {
		y, m, d := at.Date()
		p.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		l.points = slices.DeleteFunc(l.points, func(q Point) bool {
			return q.Dated() && q.Date.Equal(p.Date)
		})
	}
	l.points = append(l.points, p)

	if l.opts.Cap > 0 && len(l.points) > l.opts.Cap {
		l.points = slices.Clone(l.points[len(l.points)-l.opts.Cap:])
	}
}

func (l *Ledger) Lines() []string {
	lines := make([]string, len(l.points))
	for i, p := range l.points {
		lines[i] = p.String()
	}
	return lines
}

type Direction int

const (
	NoChange Direction = iota
	Increase
	Decrease
)

func (d Direction) String() string {
	switch d {
	case Increase:
		return "increase"
	case Decrease:
		return "decrease"
	default:
		return "no change"
	}
}

type Change struct {
	Current   decimal.Decimal
	Previous  decimal.Decimal
	Delta     decimal.Decimal
	Percent   float64
	Direction Direction
}

// Change compares the newest point with the one before it. A lone point is
// compared with itself, and a zero previous price yields a zero percent.
func (l *Ledger) Change() Change {
	n := len(l.points)
	if n == 0 {
		return Change{}
	}
	current := l.points[n-1].Price
	previous := current
	if n > 1 {
		previous = l.points[n-2].Price
	}
	return compare(current, previous)
}

func compare(current, previous decimal.Decimal) Change {
	c := Change{
		Current:  current,
		Previous: previous,
		Delta:    current.Sub(previous),
	}
	if !previous.IsZero() {
		c.Percent = c.Delta.Div(previous).Mul(hundred).InexactFloat64()
	}
	switch c.Delta.Sign() {
	case 1:
		c.Direction = Increase
	case -1:
		c.Direction = Decrease
	default:
		c.Direction = NoChange
	}
	return c
}

// SeriesPoint is one chart sample: X is the position in the ledger, Label the
// date when the ledger is dated.
type SeriesPoint struct {
	X     float64
	Label string
	Price float64
}

func (l *Ledger) Series() []SeriesPoint {
	series := make([]SeriesPoint, len(l.points))
	for i, p := range l.points {
		sp := SeriesPoint{X: float64(i), Price: p.Price.InexactFloat64()}
		if p.Dated() {
			sp.Label = p.Date.Format(DateLayout)
		}
		series[i] = sp
	}
	return series
}
