package core

import (
	"sort"
	"sync"
	"time"

	"driveguide/pkg/clock"
	"driveguide/pkg/model"
	"driveguide/pkg/narrator"
)

// POIView is a POI as seen from the current location.
type POIView struct {
	model.POI
	Distance  float64         `json:"distance"`
	Bearing   float64         `json:"bearing"`
	Direction model.Direction `json:"direction"`
}

// Snapshot is an immutable copy of the application state.
type Snapshot struct {
	Location      *model.LocationSample `json:"location"`
	POIs          []POIView             `json:"pois"`
	Loading       bool                  `json:"loading"`
	LocationError string                `json:"locationError,omitempty"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

// State is the application store shared by the pipeline and the presentation
// surface. Observers receive a fresh snapshot after every change, in the order
// the changes were applied. Observers must not modify the State.
type State struct {
	clk clock.Clock

	// held from mutation until delivery so snapshots reach observers in order
	order sync.Mutex

	mu        sync.RWMutex
	loc       *model.LocationSample
	pois      []model.POI
	loading   bool
	locErr    string
	updatedAt time.Time

	subMu sync.RWMutex
	subs  []func(Snapshot)
}

// NewState creates an empty store.
func NewState(clk clock.Clock) *State {
	if clk == nil {
		clk = clock.Real{}
	}
	return &State{clk: clk}
}

// Subscribe registers fn for every state change.
func (s *State) Subscribe(fn func(Snapshot)) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs = append(s.subs, fn)
}

// SetLocation records the latest accepted sample and clears any location error.
func (s *State) SetLocation(loc model.LocationSample) {
	s.update(func() {
		l := loc
		s.loc = &l
		s.locErr = ""
	})
}

// SetPOIs replaces the current POI set.
func (s *State) SetPOIs(pois []model.POI) {
	s.update(func() { s.pois = pois })
}

// SetLoading marks a POI query as running or finished.
func (s *State) SetLoading(loading bool) {
	s.update(func() { s.loading = loading })
}

// SetLocationError records why no position fix is available.
func (s *State) SetLocationError(msg string) {
	s.update(func() { s.locErr = msg })
}

func (s *State) update(fn func()) {
	s.order.Lock()
	defer s.order.Unlock()

	s.mu.Lock()
	fn()
	s.updatedAt = s.clk.Now()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.subMu.RLock()
	subs := s.subs
	s.subMu.RUnlock()
	for _, sub := range subs {
		sub(snap)
	}
}

// Location returns the latest accepted sample.
func (s *State) Location() (model.LocationSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loc == nil {
		return model.LocationSample{}, false
	}
	return *s.loc, true
}

// POIs returns the current POI set.
func (s *State) POIs() []model.POI {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.POI, len(s.pois))
	copy(out, s.pois)
	return out
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	snap := Snapshot{
		Loading:       s.loading,
		LocationError: s.locErr,
		UpdatedAt:     s.updatedAt,
		POIs:          make([]POIView, 0, len(s.pois)),
	}
	if s.loc != nil {
		l := *s.loc
		snap.Location = &l
	}
	for _, p := range s.pois {
		v := POIView{POI: p}
		if s.loc != nil {
			c := narrator.Observe(*s.loc, p)
			v.Distance, v.Bearing, v.Direction = c.Distance, c.Bearing, c.Direction
		}
		snap.POIs = append(snap.POIs, v)
	}
	if s.loc != nil {
		sort.SliceStable(snap.POIs, func(i, k int) bool {
			return snap.POIs[i].Distance < snap.POIs[k].Distance
		})
	}
	return snap
}
