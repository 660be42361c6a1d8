package bench

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizePopulationStatistics(t *testing.T) {
	s := Summarize(1000, 500, []float64{2, 4, 4, 4, 5, 5, 7, 9})

	assert.Equal(t, 8, s.Trials())
	assert.InDelta(t, 5.0, s.Mean, 1e-12)
	// Population (biased) standard deviation of the textbook sample.
	assert.InDelta(t, 2.0, s.StdDev, 1e-12)
}

func TestSummarizeSingleTrial(t *testing.T) {
	s := Summarize(1, 1, []float64{0.25})
	assert.Equal(t, 0.25, s.Mean)
	assert.Equal(t, 0.0, s.StdDev)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(1, 1, nil)
	assert.Zero(t, s.Trials())
	assert.False(t, math.IsNaN(s.Mean))
}

func TestSummarizeCopiesTimes(t *testing.T) {
	times := []float64{1, 2}
	s := Summarize(1, 1, times)
	times[0] = 100
	assert.Equal(t, []float64{1, 2}, s.Times)
}

func TestLogFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(&buf)
	require.NoError(t, l.Trial(3, 0.5))
	require.NoError(t, l.Summary(Summarize(1000, 1000, []float64{0.5, 0.5})))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Run  3: 0.50000000 seconds", lines[0])
	assert.Equal(t, "Running for  1000 timesteps with       1000 points took 0.50000000 seconds with stddev = 0.00000000 after  2 reruns.", lines[1])
}

func TestOpenLogAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "benchmark", "results.txt")

	for i := 0; i < 2; i++ {
		l, err := OpenLog(path)
		require.NoError(t, err)
		require.NoError(t, l.Trial(i, 1))
		require.NoError(t, l.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Run  0: 1.00000000 seconds\nRun  1: 1.00000000 seconds\n", string(data))
}

type failingSink struct{}

func (failingSink) Trial(int, float64) error { return errors.New("trial") }
func (failingSink) Summary(Summary) error    { return errors.New("summary") }

func TestMultiJoinsErrors(t *testing.T) {
	var buf bytes.Buffer
	m := Multi{NewLog(&buf), failingSink{}, Discard}

	assert.Error(t, m.Trial(0, 1))
	assert.Error(t, m.Summary(Summary{}))
	assert.Contains(t, buf.String(), "Run  0")
}

func TestMultiToLogAndConsole(t *testing.T) {
	var file, term bytes.Buffer
	m := Multi{NewLog(&file), NewConsole(&term)}
	require.NoError(t, m.Trial(0, 0.25))
	require.NoError(t, m.Summary(Summarize(10, 10, []float64{0.25, 0.75})))

	assert.Contains(t, file.String(), "after  2 reruns.")
	assert.Equal(t, "Run  0: 0.25000000 seconds\nFinished! Mean: 0.50000000 (Stddev:0.25000000)\n", term.String())
}
