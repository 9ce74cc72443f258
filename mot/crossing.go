package mot

// Boundary is the fixed region whose edge crossings are counted
type Boundary = Rectangle

// CrossingSignal classifies transition of a track between two consecutive positions
type CrossingSignal int

const (
	// Departure means track left the boundary region
	Departure CrossingSignal = -1
	// NoCrossing means both positions are on the same side of the boundary
	NoCrossing CrossingSignal = 0
	// Arrival means track entered the boundary region
	Arrival CrossingSignal = 1
)

func (signal CrossingSignal) String() string {
	switch signal {
	case Departure:
		return "departure"
	case Arrival:
		return "arrival"
	default:
		return "none"
	}
}

// CrossingEvent is a boundary crossing made by a track in the current frame
type CrossingEvent struct {
	TrackID int
	Signal  CrossingSignal
	From    Point
	To      Point
}

// Counts accumulates arrivals and departures
type Counts struct {
	Arrivals   int
	Departures int
}

// Add registers signal
func (counts *Counts) Add(signal CrossingSignal) {
	switch signal {
	case Arrival:
		counts.Arrivals++
	case Departure:
		counts.Departures++
	}
}

// Merge adds other counts
func (counts *Counts) Merge(other Counts) {
	counts.Arrivals += other.Arrivals
	counts.Departures += other.Departures
}

// ClassifyCrossing compares two consecutive positions against the boundary
func ClassifyCrossing(boundary Boundary, p1, p2 Point) CrossingSignal {
	wasInside := boundary.Contains(p1)
	isInside := boundary.Contains(p2)
	switch {
	case wasInside && !isInside:
		return Departure
	case !wasInside && isInside:
		return Arrival
	default:
		return NoCrossing
	}
}

// CheckCrossings inspects last two positions of every track.
// Tracks with less than two recorded positions are skipped; earlier history is ignored.
func CheckCrossings(tracks []*Track, boundary Boundary) []CrossingEvent {
	events := make([]CrossingEvent, 0)
	for _, track := range tracks {
		p1, p2, ok := track.LastTwo()
		if !ok {
			continue
		}
		signal := ClassifyCrossing(boundary, p1, p2)
		if signal == NoCrossing {
			continue
		}
		events = append(events, CrossingEvent{
			TrackID: track.id,
			Signal:  signal,
			From:    p1,
			To:      p2,
		})
	}
	return events
}

// CountHistoryCrossings sums transitions over every consecutive pair of positions
// in full histories of given tracks. It is the run-end alternative to CheckCrossings
func CountHistoryCrossings(tracks []*Track, boundary Boundary) Counts {
	counts := Counts{}
	for _, track := range tracks {
		counts.Merge(CountPathCrossings(track.locationHistory, boundary))
	}
	return counts
}

// CountPathCrossings sums transitions along a single path
func CountPathCrossings(path []Point, boundary Boundary) Counts {
	counts := Counts{}
	for i := 1; i < len(path); i++ {
		counts.Add(ClassifyCrossing(boundary, path[i-1], path[i]))
	}
	return counts
}
