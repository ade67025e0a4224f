package treemap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"sort"

	"github.com/mjpieters/pyright-analysis-action/internal/report"
)

const (
	svgWidth    = 700
	svgHeight   = 500
	titleHeight = 32
	padding     = 3
	fontSize    = 12
	charWidth   = 7
)

type rect struct {
	X, Y, W, H float64
}

func (r rect) inset(d float64) rect {
	w, h := math.Max(r.W-2*d, 0), math.Max(r.H-2*d, 0)
	return rect{X: r.X + d, Y: r.Y + d, W: w, H: h}
}

// squarify lays out values, sorted in descending order, into r so that each
// rectangle's area is proportional to its value and aspect ratios stay close to 1.
func squarify(values []float64, r rect) []rect {
	out := make([]rect, 0, len(values))
	if len(values) == 0 || r.W <= 0 || r.H <= 0 {
		for range values {
			out = append(out, rect{X: r.X, Y: r.Y})
		}
		return out
	}

	var total float64
	for _, v := range values {
		total += v
	}
	if total <= 0 {
		for range values {
			out = append(out, rect{X: r.X, Y: r.Y})
		}
		return out
	}
	scale := r.W * r.H / total
	areas := make([]float64, len(values))
	for i, v := range values {
		areas[i] = v * scale
	}

	var row []float64
	for _, a := range areas {
		side := math.Min(r.W, r.H)
		if len(row) == 0 || worst(append(row, a), side) <= worst(row, side) {
			row = append(row, a)
			continue
		}
		var placed []rect
		placed, r = layoutRow(row, r)
		out = append(out, placed...)
		row = []float64{a}
	}
	placed, _ := layoutRow(row, r)
	return append(out, placed...)
}

// worst is the largest aspect ratio in row when laid along a side of length w.
func worst(row []float64, w float64) float64 {
	var sum float64
	lo, hi := math.Inf(1), 0.0
	for _, a := range row {
		sum += a
		lo = math.Min(lo, a)
		hi = math.Max(hi, a)
	}
	if sum == 0 || lo == 0 || w == 0 {
		return math.Inf(1)
	}
	return math.Max(w*w*hi/(sum*sum), sum*sum/(w*w*lo))
}

func layoutRow(row []float64, r rect) ([]rect, rect) {
	var sum float64
	for _, a := range row {
		sum += a
	}
	out := make([]rect, 0, len(row))
	if r.W <= 0 || r.H <= 0 {
		for range row {
			out = append(out, rect{X: r.X, Y: r.Y})
		}
		return out, r
	}
	if r.W >= r.H {
		width := sum / r.H
		y := r.Y
		for _, a := range row {
			h := a / width
			out = append(out, rect{X: r.X, Y: y, W: width, H: h})
			y += h
		}
		return out, rect{X: r.X + width, Y: r.Y, W: r.W - width, H: r.H}
	}
	height := sum / r.W
	x := r.X
	for _, a := range row {
		w := a / height
		out = append(out, rect{X: x, Y: r.Y, W: w, H: height})
		x += w
	}
	return out, rect{X: r.X, Y: r.Y + height, W: r.W, H: r.H - height}
}

type svgBuilder struct {
	buf bytes.Buffer
}

func (b *svgBuilder) printf(format string, args ...any) {
	fmt.Fprintf(&b.buf, format, args...)
}

func (b *svgBuilder) text(s string) {
	_ = xml.EscapeText(&b.buf, []byte(s))
}

func (b *svgBuilder) node(n *report.Node, r rect) {
	b.printf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" stroke="#ffffff" stroke-width="1">`,
		r.X, r.Y, r.W, r.H, colour(n.Counts))
	b.buf.WriteString("<title>")
	b.text(fmt.Sprintf("%s: %.1f%% known (%d of %d)",
		n.ID, n.Counts.Completeness()*100, n.Counts.WithKnownType, n.Counts.Total()))
	b.buf.WriteString("</title></rect>\n")
}

func (b *svgBuilder) label(s string, r rect) {
	maxChars := int((r.W - 2*padding) / charWidth)
	if maxChars < 2 || r.H < fontSize+2*padding {
		return
	}
	runes := []rune(s)
	if len(runes) > maxChars {
		runes = append(runes[:maxChars-1], '…')
	}
	b.printf(`<text x="%.1f" y="%.1f" font-family="sans-serif" font-size="%d" fill="#222222">`,
		r.X+padding, r.Y+padding+fontSize, fontSize)
	b.text(string(runes))
	b.buf.WriteString("</text>\n")
}

// visibleChildren returns the children with at least one symbol, largest first.
func visibleChildren(n *report.Node) []*report.Node {
	var out []*report.Node
	for _, c := range n.Children {
		if c.Counts.Total() > 0 {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Counts.Total() > out[j].Counts.Total()
	})
	return out
}

func layout(nodes []*report.Node, r rect) []rect {
	values := make([]float64, len(nodes))
	for i, n := range nodes {
		values[i] = float64(n.Counts.Total())
	}
	return squarify(values, r)
}

// SVG renders a static preview of the two top levels of the treemap, scaled by scale.
func (f *Figure) SVG(scale float64) []byte {
	if scale <= 0 {
		scale = 1
	}
	var b svgBuilder
	b.printf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		int(svgWidth*scale), int(svgHeight*scale), svgWidth, svgHeight)
	b.printf(`<rect width="%d" height="%d" fill="#ffffff"/>`+"\n", svgWidth, svgHeight)
	b.printf(`<text x="%d" y="%d" font-family="sans-serif" font-size="16" fill="#222222">`, padding*3, titleHeight-10)
	b.text(f.Title())
	b.buf.WriteString("</text>\n")

	area := rect{X: padding, Y: titleHeight, W: svgWidth - 2*padding, H: svgHeight - titleHeight - padding}
	b.node(f.Root, area)
	b.label(f.Root.Label, area)

	inner := area.inset(padding)
	inner.Y += fontSize + padding
	inner.H = math.Max(inner.H-fontSize-padding, 0)
	top := visibleChildren(f.Root)
	for i, r := range layout(top, inner) {
		n := top[i]
		b.node(n, r)
		b.label(n.Label, r)

		sub := r.inset(padding)
		sub.Y += fontSize + padding
		sub.H = math.Max(sub.H-fontSize-padding, 0)
		children := visibleChildren(n)
		for j, cr := range layout(children, sub) {
			b.node(children[j], cr)
			b.label(children[j].Label, cr)
		}
	}
	b.buf.WriteString("</svg>\n")
	return b.buf.Bytes()
}
