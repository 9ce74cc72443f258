package mot

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func stillTracker(t *testing.T, cfg Config) *Tracker {
	t.Helper()
	tracker, err := NewTracker(cfg, WithEstimatorFactory(newStillEstimator))
	if err != nil {
		t.Fatal(err)
	}
	return tracker
}

func TestTrackerBirth(t *testing.T) {
	tracker := stillTracker(t, DefaultConfig())
	result, err := tracker.Step([]Point{{X: 5, Y: 5}, {X: 9, Y: 9}})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Born) != 2 || result.Born[0] != 0 || result.Born[1] != 1 {
		t.Errorf("Expected tracks 0 and 1 to be born, got %v", result.Born)
	}
	if len(result.Tracks) != 2 {
		t.Errorf("Expected 2 active tracks, got %d", len(result.Tracks))
	}
	if result.Counts != (Counts{}) || len(result.Events) != 0 {
		t.Errorf("Counters must stay untouched, got %+v", result.Counts)
	}
	if result.Frame != 0 || tracker.Frame() != 1 {
		t.Errorf("Wrong frame counters: %d %d", result.Frame, tracker.Frame())
	}
}

func TestTrackerMatch(t *testing.T) {
	tracker := stillTracker(t, DefaultConfig())
	if _, err := tracker.Step([]Point{{X: 10, Y: 10}}); err != nil {
		t.Fatal(err)
	}
	result, err := tracker.Step([]Point{{X: 10, Y: 11}})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Assignment.Pairs) != 1 || result.Assignment.Cost != 1.0 {
		t.Fatalf("Expected single pair with cost 1.0, got %+v", result.Assignment)
	}
	if len(result.Born) != 0 || len(result.Tracks) != 1 {
		t.Fatalf("Expected track to be matched, not re-created")
	}
	track := result.Tracks[0]
	if track.ID != 0 || track.Age != 1 || track.TotalVisibleCount != 1 || track.TimeInvisible != 0 || len(track.History) != 2 {
		t.Errorf("Wrong track state %+v", track)
	}
}

func TestTrackerLoss(t *testing.T) {
	tracker := stillTracker(t, DefaultConfig())
	if _, err := tracker.Step([]Point{{X: 10, Y: 10}}); err != nil {
		t.Fatal(err)
	}
	// Any miss is fatal with default configuration
	result, err := tracker.Step(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Lost) != 1 || result.Lost[0].ID != 0 {
		t.Fatalf("Expected track 0 to be lost, got %+v", result.Lost)
	}
	if len(result.Tracks) != 0 {
		t.Errorf("Expected no active tracks, got %d", len(result.Tracks))
	}
	// Same place, but a new identity
	result, err = tracker.Step([]Point{{X: 10, Y: 10}})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Born) != 1 || result.Born[0] != 1 {
		t.Errorf("Expected new track 1, got %v", result.Born)
	}
	if len(tracker.Lost()) != 1 || tracker.Lost()[0].GetID() != 0 {
		t.Errorf("Lost collection should keep track 0")
	}
}

func TestTrackerDeleteBeforeCreate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxMatchDistance = 5
	tracker := stillTracker(t, cfg)
	if _, err := tracker.Step([]Point{{X: 0, Y: 0}}); err != nil {
		t.Fatal(err)
	}
	// Detection is out of gate: track 0 misses and is lost, detection gives birth to track 1
	result, err := tracker.Step([]Point{{X: 100, Y: 100}})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Lost) != 1 || result.Lost[0].ID != 0 {
		t.Fatalf("Expected track 0 to be lost, got %+v", result.Lost)
	}
	if len(result.Born) != 1 || result.Born[0] != 1 {
		t.Fatalf("Expected track 1 to be born, got %v", result.Born)
	}
	if len(result.Tracks) != 1 || result.Tracks[0].Age != 0 {
		t.Errorf("Newborn track must not be aged in the frame of its birth: %+v", result.Tracks)
	}
}

func TestTrackerDeparture(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Boundary = NewRect(0, 0, 10, 10)
	tracker := stillTracker(t, cfg)
	if _, err := tracker.Step([]Point{{X: 5, Y: 5}}); err != nil {
		t.Fatal(err)
	}
	result, err := tracker.Step([]Point{{X: 15, Y: 5}})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Events) != 1 || result.Events[0].Signal != Departure || result.Events[0].TrackID != 0 {
		t.Fatalf("Expected departure of track 0, got %+v", result.Events)
	}
	if result.Counts.Departures != 1 || result.Counts.Arrivals != 0 {
		t.Errorf("Wrong counters %+v", result.Counts)
	}
	// Staying outside does not count again
	result, err = tracker.Step([]Point{{X: 16, Y: 5}})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Events) != 0 || tracker.Counts().Departures != 1 {
		t.Errorf("Unexpected events %+v", result.Events)
	}
}

// walker produces positions of objects moving with constant velocity
type walker struct {
	start    Point
	velocity Point
	from     int
	to       int
}

func (w walker) at(frame int) (Point, bool) {
	if frame < w.from || frame > w.to {
		return Point{}, false
	}
	step := float64(frame - w.from)
	return Point{X: w.start.X + w.velocity.X*step, Y: w.start.Y + w.velocity.Y*step}, true
}

func TestTrackerKalmanScene(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Boundary = NewRect(200, 200, 200, 100)
	tracker, err := NewTracker(cfg)
	if err != nil {
		t.Fatal(err)
	}
	walkers := []walker{
		// Arrives from the left and stays inside
		{start: Point{X: 150, Y: 250}, velocity: Point{X: 3, Y: 0}, from: 0, to: 39},
		// Departs through the bottom edge
		{start: Point{X: 300, Y: 260}, velocity: Point{X: 0, Y: 4}, from: 0, to: 39},
		// Passes far above the boundary
		{start: Point{X: 50, Y: 50}, velocity: Point{X: 5, Y: 1}, from: 5, to: 39},
	}
	ages := make(map[int]int)
	for frame := 0; frame < 40; frame++ {
		detections := make([]Point, 0, len(walkers))
		for _, w := range walkers {
			if p, ok := w.at(frame); ok {
				detections = append(detections, p)
			}
		}
		result, err := tracker.Step(detections)
		if err != nil {
			t.Fatal(err)
		}
		for _, snapshot := range result.Tracks {
			if prev, ok := ages[snapshot.ID]; ok && snapshot.Age != prev+1 {
				t.Errorf("Frame %d: track %d aged from %d to %d", frame, snapshot.ID, prev, snapshot.Age)
			}
			ages[snapshot.ID] = snapshot.Age
			if snapshot.TotalVisibleCount > snapshot.Age {
				t.Errorf("Frame %d: track %d visible count exceeds age", frame, snapshot.ID)
			}
			if len(snapshot.History) != snapshot.TotalVisibleCount+1 {
				t.Errorf("Frame %d: track %d history length %d, visible %d", frame, snapshot.ID, len(snapshot.History), snapshot.TotalVisibleCount)
			}
		}
	}
	if len(tracker.Lost()) != 0 {
		t.Errorf("No track should be lost, got %d", len(tracker.Lost()))
	}
	if len(tracker.Tracks()) != 3 {
		t.Fatalf("Expected 3 tracks, got %d", len(tracker.Tracks()))
	}
	counts := tracker.Counts()
	if counts.Arrivals != 1 || counts.Departures != 1 {
		t.Errorf("Expected one arrival and one departure, got %+v", counts)
	}

	// Optional: CSV output
	file, err := os.Create(filepath.Join(t.TempDir(), "tracks.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"id", "track"})
	if err != nil {
		t.Fatal(err)
	}
	for _, snapshot := range tracker.Tracks() {
		data := make([]string, len(snapshot.History))
		for idx, pt := range snapshot.History {
			data[idx] = fmt.Sprintf("%f,%f", pt.X, pt.Y)
		}
		err = writer.Write([]string{fmt.Sprint(snapshot.ID), strings.Join(data, "|")})
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestTrackerDeferredMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Boundary = NewRect(0, 0, 10, 10)
	cfg.CrossingMode = CrossingModeDeferred
	tracker := stillTracker(t, cfg)
	frames := [][]Point{
		{{X: 20, Y: 5}, {X: 5, Y: 5}},
		{{X: 15, Y: 5}, {X: 6, Y: 5}},
		// Second object vanishes: lost with path in -> in
		{{X: 12, Y: 5}},
		{{X: 8, Y: 5}},
		{{X: 12, Y: 5}},
	}
	for _, detections := range frames {
		result, err := tracker.Step(detections)
		if err != nil {
			t.Fatal(err)
		}
		if len(result.Events) != 0 {
			t.Errorf("Deferred mode must not emit per-frame events")
		}
	}
	if tracker.Counts() != (Counts{}) {
		t.Errorf("Counters must stay zero until finish")
	}
	counts, flushed := tracker.Finish()
	if len(flushed) != 1 {
		t.Errorf("Expected single flushed track, got %d", len(flushed))
	}
	// First object: 20 -> 15 -> 12 -> 8 (arrival) -> 12 (departure)
	expected := Counts{Arrivals: 1, Departures: 1}
	if counts != expected {
		t.Errorf("Got %+v, expected %+v", counts, expected)
	}
	if _, err := tracker.Step(nil); err == nil {
		t.Errorf("Step after finish should fail")
	}
}

func TestNewTrackerInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Boundary = NewRect(0, 0, 0, 10)
	if _, err := NewTracker(cfg); err == nil {
		t.Errorf("Expected error for empty boundary")
	}
	cfg = DefaultConfig()
	cfg.MinArea = 2000
	if _, err := NewTracker(cfg); err == nil {
		t.Errorf("Expected error for inverted area bounds")
	}
}

func TestTrackerToleratedMiss(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTimeInvisible = 1
	tracker := stillTracker(t, cfg)
	frames := [][]Point{
		{{X: 10, Y: 10}},
		{{X: 11, Y: 10}},
		{{X: 12, Y: 10}},
		{{X: 13, Y: 10}},
		// Single miss is tolerated
		{},
		{{X: 14, Y: 10}},
	}
	var result FrameResult
	var err error
	for i, detections := range frames {
		result, err = tracker.Step(detections)
		if err != nil {
			t.Fatal(err)
		}
		if len(result.Tracks) != 1 || len(result.Lost) != 0 {
			t.Fatalf("Frame %d: expected single surviving track, got %d active and %d lost", i, len(result.Tracks), len(result.Lost))
		}
		track := result.Tracks[0]
		if track.ID != 0 {
			t.Fatalf("Frame %d: track was re-created with id %d", i, track.ID)
		}
		if track.Age != i || track.TotalVisibleCount > track.Age || len(track.History) != track.TotalVisibleCount+1 {
			t.Errorf("Frame %d: inconsistent counters %+v", i, track)
		}
	}
	track := result.Tracks[0]
	if track.Age != 5 || track.TotalVisibleCount != 4 || track.TimeInvisible != 0 {
		t.Errorf("Wrong counters after rematch: %+v", track)
	}
	if track.Position != (Point{X: 14, Y: 10}) {
		t.Errorf("Rematched track should end at last detection, got %s", track.Position)
	}
}

func TestTrackerRepeatsDepartureWhileInvisible(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Boundary = NewRect(0, 0, 10, 10)
	cfg.MaxTimeInvisible = 3
	tracker := stillTracker(t, cfg)
	frames := [][]Point{
		{{X: 5, Y: 5}},
		{{X: 6, Y: 5}},
		{{X: 7, Y: 5}},
		{{X: 8, Y: 5}},
		{{X: 15, Y: 5}},
		{},
		{},
	}
	// Last two history positions do not change while the track is invisible,
	// so the same transition is reported on every missed frame
	expectedDepartures := []int{0, 0, 0, 0, 1, 2, 3}
	for i, detections := range frames {
		result, err := tracker.Step(detections)
		if err != nil {
			t.Fatal(err)
		}
		if result.Counts.Departures != expectedDepartures[i] {
			t.Errorf("Frame %d: expected %d departures, got %d", i, expectedDepartures[i], result.Counts.Departures)
		}
	}
	if tracker.Counts().Arrivals != 0 {
		t.Errorf("Expected no arrivals, got %d", tracker.Counts().Arrivals)
	}
}

func TestTrackerRejectsNonFiniteDetections(t *testing.T) {
	tracker := stillTracker(t, DefaultConfig())
	if _, err := tracker.Step([]Point{{X: 0, Y: 0}, {X: 10, Y: 0}}); err != nil {
		t.Fatal(err)
	}
	for _, bad := range []Point{{X: math.NaN(), Y: 0}, {X: math.Inf(1), Y: 0}, {X: 0, Y: math.Inf(-1)}} {
		if _, err := tracker.Step([]Point{bad, {X: 1, Y: 0}}); err == nil {
			t.Errorf("Expected error for detection %v", bad)
		}
	}
	if tracker.Frame() != 1 || len(tracker.Tracks()) != 2 {
		t.Errorf("Rejected frames must not change tracker state: frame %d, tracks %d", tracker.Frame(), len(tracker.Tracks()))
	}
}
