package mot

// TrackStore holds active tracks in creation order and the tracks which have been lost.
// Creation order is the track index used by assignment within a frame.
type TrackStore struct {
	active []*Track
	byID   map[int]*Track
	lost   []*Track
	nextID int
}

// NewTrackStore creates empty store. First track gets identifier 0
func NewTrackStore() *TrackStore {
	return &TrackStore{
		active: make([]*Track, 0),
		byID:   make(map[int]*Track),
		lost:   make([]*Track, 0),
		nextID: 0,
	}
}

// Len returns number of active tracks
func (store *TrackStore) Len() int {
	return len(store.active)
}

// Active returns active tracks. Be careful: this is not copy of storage, but reference to it
func (store *TrackStore) Active() []*Track {
	return store.active
}

// Lost returns lost tracks in order of loss. Be careful: this is not copy of storage, but reference to it
func (store *TrackStore) Lost() []*Track {
	return store.lost
}

// Get returns active track by its identifier
func (store *TrackStore) Get(id int) (*Track, bool) {
	track, ok := store.byID[id]
	return track, ok
}

// Create registers new active track with a fresh identifier
func (store *TrackStore) Create(initial Point, factory EstimatorFactory) *Track {
	track := NewTrack(store.nextID, initial, factory(initial))
	store.nextID++
	store.active = append(store.active, track)
	store.byID[track.id] = track
	return track
}

// Sweep moves every track matching the policy's deletion predicate into the lost collection.
// Next active slice and newly lost slice are built in a single pass and then swapped in.
func (store *TrackStore) Sweep(policy LifecyclePolicy) []*Track {
	next := make([]*Track, 0, len(store.active))
	newlyLost := make([]*Track, 0)
	for _, track := range store.active {
		if policy.ShouldDelete(track) {
			newlyLost = append(newlyLost, track)
			continue
		}
		next = append(next, track)
	}
	for _, track := range newlyLost {
		delete(store.byID, track.id)
	}
	store.active = next
	store.lost = append(store.lost, newlyLost...)
	return newlyLost
}

// Flush moves all active tracks into the lost collection.
// Used at the end of a run when full histories are analysed.
func (store *TrackStore) Flush() []*Track {
	flushed := store.active
	store.active = make([]*Track, 0)
	store.byID = make(map[int]*Track)
	store.lost = append(store.lost, flushed...)
	return flushed
}
