// Package bench turns repeated timing trials into summary statistics and
// writes them to an append-only plain-text log.
package bench

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/stat"
)

// DefaultTrials is the number of reruns of a benchmark.
const DefaultTrials = 10

// Summary describes a finished benchmark.
type Summary struct {
	Steps  int
	Points int
	Times  []float64
	Mean   float64
	StdDev float64
}

// Trials returns the number of timed trials.
func (s Summary) Trials() int { return len(s.Times) }

// Summarize computes the arithmetic mean and population standard deviation
// of the trial times in seconds.
func Summarize(steps, points int, times []float64) Summary {
	s := Summary{Steps: steps, Points: points, Times: append([]float64(nil), times...)}
	if len(times) == 0 {
		return s
	}
	s.Mean, s.StdDev = stat.PopMeanStdDev(times, nil)
	return s
}

// Sink receives benchmark results.
type Sink interface {
	Trial(index int, seconds float64) error
	Summary(s Summary) error
}

// Log writes one line per trial and one summary line.
type Log struct {
	w io.Writer
}

// NewLog returns a Log writing to w.
func NewLog(w io.Writer) *Log { return &Log{w: w} }

// Trial writes a trial line.
func (l *Log) Trial(index int, seconds float64) error {
	_, err := fmt.Fprintf(l.w, "Run %2d: %10.8f seconds\n", index, seconds)
	return err
}

// Summary writes the summary line.
func (l *Log) Summary(s Summary) error {
	_, err := fmt.Fprintf(l.w, "Running for %5d timesteps with %10d points took %10.8f seconds with stddev = %10.8f after %2d reruns.\n",
		s.Steps, s.Points, s.Mean, s.StdDev, s.Trials())
	return err
}

// FileLog is a Log backed by a file opened for appending.
type FileLog struct {
	*Log
	f *os.File
}

// OpenLog opens path for appending, creating it and its directory.
func OpenLog(path string) (*FileLog, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("bench.OpenLog: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("bench.OpenLog: %w", err)
	}
	return &FileLog{Log: NewLog(f), f: f}, nil
}

// Close closes the underlying file.
func (l *FileLog) Close() error { return l.f.Close() }

// Console reports progress to a terminal: the trial lines of Log and a
// closing mean/stddev line.
type Console struct {
	w io.Writer
}

// NewConsole returns a Console writing to w.
func NewConsole(w io.Writer) *Console { return &Console{w: w} }

// Trial writes the trial line.
func (c *Console) Trial(index int, seconds float64) error {
	return NewLog(c.w).Trial(index, seconds)
}

// Summary writes the closing line.
func (c *Console) Summary(s Summary) error {
	_, err := fmt.Fprintf(c.w, "Finished! Mean: %10.8f (Stddev:%10.8f)\n", s.Mean, s.StdDev)
	return err
}

// Multi fans results out to several sinks.
type Multi []Sink

// Trial forwards to every sink.
func (m Multi) Trial(index int, seconds float64) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Trial(index, seconds))
	}
	return errors.Join(errs...)
}

// Summary forwards to every sink.
func (m Multi) Summary(s Summary) error {
	var errs []error
	for _, sink := range m {
		errs = append(errs, sink.Summary(s))
	}
	return errors.Join(errs...)
}

// Discard drops all results.
var Discard Sink = discard{}

type discard struct{}

func (discard) Trial(int, float64) error { return nil }
func (discard) Summary(Summary) error    { return nil }
