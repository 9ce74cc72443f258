package mot

import (
	"image"
	"math"
	"testing"
)

const (
	eps = 0.00001
)

func TestEuclideanDistance(t *testing.T) {
	p1 := Point{X: 341, Y: 264}
	p2 := Point{X: 421, Y: 427}
	correnctAnswer := 181.57367
	answer := euclideanDistance(p1, p2)
	if math.Abs(answer-correnctAnswer) > eps {
		t.Errorf("Wrong answer: %v, correct answer: %v", answer, correnctAnswer)
	}
	if math.Abs(p1.DistanceTo(p2)-p2.DistanceTo(p1)) > eps {
		t.Errorf("Distance should be symmetric")
	}
}

func TestRectangleContains(t *testing.T) {
	rect := NewRect(0, 0, 10, 10)
	cases := []struct {
		point  Point
		inside bool
	}{
		{Point{X: 5, Y: 5}, true},
		{Point{X: 0, Y: 0}, true},
		{Point{X: 9.999, Y: 9.999}, true},
		{Point{X: 10, Y: 5}, false},
		{Point{X: 5, Y: 10}, false},
		{Point{X: -0.001, Y: 5}, false},
		{Point{X: 15, Y: 5}, false},
	}
	for _, c := range cases {
		if got := rect.Contains(c.point); got != c.inside {
			t.Errorf("Contains(%v) = %v, expected %v", c.point, got, c.inside)
		}
	}
}

func TestNewRectFrom(t *testing.T) {
	rect := NewRectFrom(image.Rect(200, 200, 400, 300))
	expected := Rectangle{X: 200, Y: 200, Width: 200, Height: 100}
	if rect != expected {
		t.Errorf("Wrong rectangle: %+v, expected: %+v", rect, expected)
	}
	if rect.Empty() {
		t.Errorf("Rectangle should not be empty")
	}
	if !NewRect(1, 1, 0, 5).Empty() {
		t.Errorf("Zero-width rectangle should be empty")
	}
}
