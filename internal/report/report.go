// Package report prints a gathered snapshot to the console.
package report

import (
	"fmt"
	"io"

	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/floats"
)

// PrintValues writes one "index => value" line per point.
func PrintValues(w io.Writer, values []float64) error {
	for i, v := range values {
		if _, err := fmt.Fprintf(w, "%4d => %6.6f\n", i, v); err != nil {
			return err
		}
	}
	return nil
}

// PlotOptions controls the terminal plot.
type PlotOptions struct {
	Width   int
	Height  int
	Caption string
}

// Plot draws values as an ASCII line chart. Long series are reduced to
// Width columns by taking the extreme of each bucket so peaks survive.
func Plot(w io.Writer, values []float64, opts PlotOptions) error {
	if len(values) == 0 {
		return nil
	}
	if opts.Width <= 0 {
		opts.Width = 100
	}
	if opts.Height <= 0 {
		opts.Height = 20
	}
	series := Downsample(values, opts.Width)
	graph := asciigraph.Plot(series,
		asciigraph.Height(opts.Height),
		asciigraph.Caption(opts.Caption),
	)
	_, err := fmt.Fprintln(w, graph)
	return err
}

// Downsample reduces values to at most n points, keeping the sample with the
// largest magnitude in each bucket.
func Downsample(values []float64, n int) []float64 {
	if n <= 0 || len(values) <= n {
		return append([]float64(nil), values...)
	}
	out := make([]float64, n)
	for b := 0; b < n; b++ {
		lo := b * len(values) / n
		hi := (b + 1) * len(values) / n
		bucket := values[lo:hi]
		hiIdx, loIdx := floats.MaxIdx(bucket), floats.MinIdx(bucket)
		if bucket[hiIdx] >= -bucket[loIdx] {
			out[b] = bucket[hiIdx]
		} else {
			out[b] = bucket[loIdx]
		}
	}
	return out
}
