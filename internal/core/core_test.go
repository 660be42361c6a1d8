package core

import (
	"testing"
	"time"
)

func TestCanvasLine(t *testing.T) {
	c := NewCanvas(5, 5)
	c.Line(0, 0, 4, 4, 2)
	for i := 0; i < 5; i++ {
		if c.At(i, i) != 2 {
			t.Fatalf("diagonal pixel %d not set", i)
		}
	}
	c.Clear()
	c.Line(3, 1, 3, 4, 1)
	for y := 1; y <= 4; y++ {
		if c.At(3, y) != 1 {
			t.Fatalf("vertical pixel %d not set", y)
		}
	}
	if c.At(3, 0) != 0 {
		t.Fatal("line overshot its end")
	}
}

func TestCanvasClipsOutside(t *testing.T) {
	c := NewCanvas(4, 3)
	c.Line(-10, 1, 10, 1, 1)
	for x := 0; x < 4; x++ {
		if c.At(x, 1) != 1 {
			t.Fatalf("pixel %d not set", x)
		}
	}
	c.Set(99, 99, 1)
	if c.At(99, 99) != 0 {
		t.Fatal("At outside the canvas must be 0")
	}
}

func TestCanvasLineFarEndpoints(t *testing.T) {
	c := NewCanvas(10, 10)
	c.Line(2, 5, 2, 1<<62, 1)
	for y := 5; y < 10; y++ {
		if c.At(2, y) != 1 {
			t.Fatalf("pixel %d not set", y)
		}
	}
	if c.At(2, 4) != 0 {
		t.Fatal("line extended above its start")
	}

	c.Clear()
	c.Line(-1<<62, -1<<62, -1<<61, 3, 1)
	for _, v := range c.Cells() {
		if v != 0 {
			t.Fatal("segment off the canvas drew pixels")
		}
	}

	c.Line(0, -1<<40, 9, 1<<40, 1)
	if c.At(4, 0) == 0 && c.At(5, 0) == 0 && c.At(4, 9) == 0 && c.At(5, 9) == 0 {
		t.Fatal("steep crossing segment not drawn")
	}
}

func TestFrameClock(t *testing.T) {
	f := NewFrameClock(20)
	if f.Period() != 50*time.Millisecond {
		t.Fatalf("period %v", f.Period())
	}
	start := time.Unix(100, 0)
	if !f.Due(start) {
		t.Fatal("first frame must be due")
	}
	if f.Due(start.Add(10 * time.Millisecond)) {
		t.Fatal("frame due too early")
	}
	if !f.Due(start.Add(50 * time.Millisecond)) {
		t.Fatal("frame not due after one period")
	}
	f.SetFPS(0)
	if f.Period() != time.Second/60 {
		t.Fatalf("fallback period %v", f.Period())
	}
}

func TestParameterSnapshot(t *testing.T) {
	s := ParameterSnapshot{Groups: []ParameterGroup{
		{Name: "Wave", Params: []Parameter{{Key: "speed", Label: "Wave speed", Value: "0.9"}}},
	}}
	p, ok := s.Lookup("speed")
	if !ok || p.Value != "0.9" {
		t.Fatalf("Lookup = %+v, %v", p, ok)
	}
	if _, ok := s.Lookup("missing"); ok {
		t.Fatal("unexpected parameter")
	}
	lines := s.Lines()
	if len(lines) != 2 || lines[1] != "  Wave speed: 0.9" {
		t.Fatalf("Lines = %q", lines)
	}
}
