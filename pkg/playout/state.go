/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package playout

import (
	"sort"
	"sync"

	"github.com/openplayout/go-playout/pkg/layers"
	"github.com/openplayout/go-playout/pkg/log"
)

const (
	// CompletionSlack is the remaining-time tolerance below which an item
	// counts as finished. Telemetry samples arrive with jitter, the exact
	// zero crossing is rarely observed.
	CompletionSlack = 0.1
	// RearmSlack is the remaining time above which the completion latch is
	// cleared again. The gap between the two guards against re-arming on
	// samples that hover around the threshold.
	RearmSlack = 0.5
)

// LayerKey identifies one (channel, layer) pair of the playback server.
type LayerKey struct {
	Channel int `json:"channel"`
	Layer   int `json:"layer"`
}

// Item is one playlist entry. The playlist itself is owned by the hosting
// application, the store only reads it when resolving advances and fallback
// durations.
type Item struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Path       string  `json:"path"`
	Duration   float64 `json:"duration"`
	Image      bool    `json:"image"`
	StartMacro string  `json:"startMacro,omitempty"`
	EndMacro   string  `json:"endMacro,omitempty"`
}

// AdvanceIntent is the store's decision that playback should move on. The
// external command layer issues the actual transport command and clears the
// pending index afterwards; the store never talks to the server itself.
type AdvanceIntent struct {
	Key       LayerKey
	NextIndex int
	Stop      bool
}

const (
	EventState   = "state"
	EventAdvance = "advance"
	EventStop    = "stop"
)

// Event is pushed to the front-door consumer on every state change.
type Event struct {
	Kind     string        `json:"kind"`
	Snapshot LayerSnapshot `json:"snapshot"`
}

// LayerSnapshot is a copy of one layer's state, safe to hand out.
type LayerSnapshot struct {
	Channel        int     `json:"channel"`
	Layer          int     `json:"layer"`
	CurrentTime    float64 `json:"currentTime"`
	TotalTime      float64 `json:"totalTime"`
	CurrentFrame   int64   `json:"currentFrame"`
	TotalFrames    int64   `json:"totalFrames"`
	IsPlaying      bool    `json:"isPlaying"`
	IsPaused       bool    `json:"isPaused"`
	ProducerType   string  `json:"producerType,omitempty"`
	LastPath       string  `json:"lastPath,omitempty"`
	CurrentIndex   int     `json:"currentIndex"`
	PlaylistMode   bool    `json:"playlistMode"`
	LoopMode       bool    `json:"loopMode"`
	LoopItem       bool    `json:"loopItem"`
	LoopReported   bool    `json:"loopReported"`
	PendingAdvance *int    `json:"pendingAdvance,omitempty"`
	ItemCount      int     `json:"itemCount"`
}

type layerState struct {
	mu sync.Mutex

	key             LayerKey
	currentTime     float64
	totalTime       float64
	currentFrame    int64
	totalFrames     int64
	isPlaying       bool
	isPaused        bool
	producerType    string
	lastPath        string
	loopReported    bool
	currentIndex    int
	playlistMode    bool
	loopMode        bool
	loopItem        bool
	completionLatch bool
	pendingAdvance  *int
	items           []Item
}

// Store is the in-memory table of per-(channel, layer) playback state. Layer
// states are created lazily on first telemetry and never destroyed; telemetry
// for layers the application no longer tracks is absorbed harmlessly.
//
// All mutation of one layer is serialized under that layer's mutex, so timer
// callbacks and telemetry deliveries for the same layer never interleave.
type Store struct {
	mu     sync.Mutex
	layers map[LayerKey]*layerState
	events chan Event
}

func NewStore() *Store {
	return &Store{
		layers: make(map[LayerKey]*layerState),
		events: make(chan Event, 64),
	}
}

// Events is the push channel consumed by the remote-control front door.
// Sends never block; with no consumer events are dropped.
func (s *Store) Events() <-chan Event {
	return s.events
}

func (s *Store) publish(ev Event) {
	select {
	case s.events <- ev:
	default:
		log.Debug("Dropping %s event for channel %d layer %d, no consumer",
			ev.Kind, ev.Snapshot.Channel, ev.Snapshot.Layer)
	}
}

func (s *Store) layer(key LayerKey) *layerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.layers[key]
	if !ok {
		st = &layerState{
			key:          key,
			currentFrame: -1,
			totalFrames:  -1,
			currentIndex: -1,
		}
		s.layers[key] = st
	}
	return st
}

// LayerCount returns the number of tracked layers.
func (s *Store) LayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.layers)
}

// Apply folds one resolved telemetry message into layer state. The returned
// intent is non-nil exactly when this message completed the current item.
func (s *Store) Apply(res ResolvedAddress, args []layers.Argument) *AdvanceIntent {
	if !res.Addressed() || res.Kind == KindNone {
		return nil
	}
	st := s.layer(LayerKey{Channel: res.Channel, Layer: res.Layer})

	st.mu.Lock()
	var intent *AdvanceIntent
	switch res.Kind {
	case KindTime:
		intent = st.applyTime(args)
	case KindFrame:
		st.applyFrame(args)
	case KindPaused:
		// pause telemetry drives only the paused flag; isPlaying belongs
		// to explicit transport actions, otherwise an empty layer would be
		// reported as playing
		if paused, ok := firstBool(args); ok {
			st.isPaused = paused
		}
	case KindProducerType:
		if v, ok := firstString(args); ok {
			st.producerType = v
		}
	case KindLoop:
		if v, ok := firstBool(args); ok {
			st.loopReported = v
		}
	case KindPath:
		if v, ok := firstString(args); ok {
			st.lastPath = v
		}
	}
	snap := st.snapshotLocked()
	st.mu.Unlock()

	s.publish(Event{Kind: EventState, Snapshot: snap})
	if intent != nil {
		kind := EventAdvance
		if intent.Stop {
			kind = EventStop
		}
		s.publish(Event{Kind: kind, Snapshot: snap})
	}
	return intent
}

// CompleteItem marks the current item of a layer as finished, as if a
// time message had crossed the completion threshold. Used by the
// image-duration timer, which has no telemetry time stream to go by.
func (s *Store) CompleteItem(key LayerKey) *AdvanceIntent {
	st := s.layer(key)
	st.mu.Lock()
	var intent *AdvanceIntent
	if !st.completionLatch {
		st.completionLatch = true
		intent = st.resolveAdvanceLocked()
	}
	snap := st.snapshotLocked()
	st.mu.Unlock()

	if intent != nil {
		kind := EventAdvance
		if intent.Stop {
			kind = EventStop
		}
		s.publish(Event{Kind: kind, Snapshot: snap})
	}
	return intent
}

// SetPlaylist replaces the item list of a layer.
func (s *Store) SetPlaylist(key LayerKey, items []Item) {
	st := s.layer(key)
	st.mu.Lock()
	st.items = append([]Item(nil), items...)
	if st.currentIndex >= len(st.items) {
		st.currentIndex = -1
	}
	st.mu.Unlock()
}

// SetModes updates the auto-advance configuration flags of a layer.
func (s *Store) SetModes(key LayerKey, playlistMode, loopMode, loopItem bool) {
	st := s.layer(key)
	st.mu.Lock()
	st.playlistMode = playlistMode
	st.loopMode = loopMode
	st.loopItem = loopItem
	st.mu.Unlock()
}

// ItemStarted records that the command layer started playback of the item at
// index. It resets the telemetry-derived position and clears the completion
// latch so the new item gets its own completion event.
func (s *Store) ItemStarted(key LayerKey, index int) {
	st := s.layer(key)
	st.mu.Lock()
	st.currentIndex = index
	st.isPlaying = true
	st.isPaused = false
	st.currentTime = 0
	st.totalTime = 0
	st.currentFrame = -1
	st.totalFrames = -1
	st.completionLatch = false
	st.pendingAdvance = nil
	snap := st.snapshotLocked()
	st.mu.Unlock()
	s.publish(Event{Kind: EventState, Snapshot: snap})
}

// SetPlaying flips the transport-controlled playing flag.
func (s *Store) SetPlaying(key LayerKey, playing bool) {
	st := s.layer(key)
	st.mu.Lock()
	st.isPlaying = playing
	st.mu.Unlock()
}

// ClearAdvance is called by the command layer once it has acted on a pending
// advance, successfully or not.
func (s *Store) ClearAdvance(key LayerKey) {
	st := s.layer(key)
	st.mu.Lock()
	st.pendingAdvance = nil
	st.mu.Unlock()
}

// ItemAt returns the metadata of the item at index on a layer's playlist.
func (s *Store) ItemAt(key LayerKey, index int) (Item, bool) {
	st := s.layer(key)
	st.mu.Lock()
	defer st.mu.Unlock()
	if index < 0 || index >= len(st.items) {
		return Item{}, false
	}
	return st.items[index], true
}

// ActiveItem returns the metadata of the item currently playing on a layer.
func (s *Store) ActiveItem(key LayerKey) (Item, bool) {
	st := s.layer(key)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.activeItemLocked()
}

// Snapshot returns a copy of one layer's state.
func (s *Store) Snapshot(key LayerKey) (LayerSnapshot, error) {
	s.mu.Lock()
	st, ok := s.layers[key]
	s.mu.Unlock()
	if !ok {
		return LayerSnapshot{}, ErrLayerNotFound{Key: key}
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.snapshotLocked(), nil
}

// Snapshots returns copies of all tracked layers, ordered by channel then layer.
func (s *Store) Snapshots() []LayerSnapshot {
	s.mu.Lock()
	states := make([]*layerState, 0, len(s.layers))
	for _, st := range s.layers {
		states = append(states, st)
	}
	s.mu.Unlock()

	snaps := make([]LayerSnapshot, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		snaps = append(snaps, st.snapshotLocked())
		st.mu.Unlock()
	}
	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].Channel != snaps[j].Channel {
			return snaps[i].Channel < snaps[j].Channel
		}
		return snaps[i].Layer < snaps[j].Layer
	})
	return snaps
}

func (st *layerState) applyTime(args []layers.Argument) *AdvanceIntent {
	if len(args) == 0 {
		return nil
	}
	current, ok := args[0].AsFloat64()
	if !ok {
		return nil
	}
	st.currentTime = current
	if len(args) >= 2 {
		// two-float convention: elapsed and total; authoritative for total
		if total, ok := args[1].AsFloat64(); ok {
			st.totalTime = total
		}
	}

	total := st.totalTime
	if total <= 0 {
		// one-float servers never report a total; fall back to the active
		// playlist item's metadata duration before completion detection
		if item, ok := st.activeItemLocked(); ok {
			total = item.Duration
		}
	}
	if total <= 0 {
		return nil
	}

	remaining := total - current
	if remaining <= CompletionSlack {
		if st.completionLatch {
			return nil
		}
		st.completionLatch = true
		return st.resolveAdvanceLocked()
	}
	if remaining > RearmSlack {
		st.completionLatch = false
	}
	return nil
}

func (st *layerState) applyFrame(args []layers.Argument) {
	if len(args) == 0 {
		return
	}
	if v, ok := args[0].AsInt64(); ok {
		st.currentFrame = v
	}
	if len(args) >= 2 {
		if v, ok := args[1].AsInt64(); ok {
			st.totalFrames = v
		}
	}
}

func (st *layerState) activeItemLocked() (Item, bool) {
	if st.currentIndex < 0 || st.currentIndex >= len(st.items) {
		return Item{}, false
	}
	return st.items[st.currentIndex], true
}

// resolveAdvanceLocked turns a detected completion into an advance decision.
func (st *layerState) resolveAdvanceLocked() *AdvanceIntent {
	if !st.playlistMode {
		return nil
	}
	if st.loopItem {
		// the server repeats the item itself, nothing to advance
		return nil
	}
	n := len(st.items)
	if n == 0 {
		return nil
	}
	if st.currentIndex >= n-1 && !st.loopMode {
		// end of playlist: terminal stopped state
		st.isPlaying = false
		st.currentIndex = -1
		st.pendingAdvance = nil
		return &AdvanceIntent{Key: st.key, NextIndex: -1, Stop: true}
	}
	next := st.currentIndex + 1
	if next >= n {
		next = 0
	}
	idx := next
	st.pendingAdvance = &idx
	return &AdvanceIntent{Key: st.key, NextIndex: next}
}

func (st *layerState) snapshotLocked() LayerSnapshot {
	snap := LayerSnapshot{
		Channel:      st.key.Channel,
		Layer:        st.key.Layer,
		CurrentTime:  st.currentTime,
		TotalTime:    st.totalTime,
		CurrentFrame: st.currentFrame,
		TotalFrames:  st.totalFrames,
		IsPlaying:    st.isPlaying,
		IsPaused:     st.isPaused,
		ProducerType: st.producerType,
		LastPath:     st.lastPath,
		CurrentIndex: st.currentIndex,
		PlaylistMode: st.playlistMode,
		LoopMode:     st.loopMode,
		LoopItem:     st.loopItem,
		LoopReported: st.loopReported,
		ItemCount:    len(st.items),
	}
	if st.pendingAdvance != nil {
		idx := *st.pendingAdvance
		snap.PendingAdvance = &idx
	}
	return snap
}

func firstBool(args []layers.Argument) (bool, bool) {
	if len(args) == 0 {
		return false, false
	}
	if v, ok := args[0].AsBool(); ok {
		return v, true
	}
	// some server versions report flags as 0/1 integers
	if v, ok := args[0].AsInt64(); ok {
		return v != 0, true
	}
	return false, false
}

func firstString(args []layers.Argument) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	return args[0].AsString()
}
