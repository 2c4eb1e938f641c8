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
	"testing"

	"github.com/openplayout/go-playout/pkg/layers"
)

var testKey = LayerKey{Channel: 1, Layer: 10}

func timeRes() ResolvedAddress {
	return ResolvedAddress{Channel: testKey.Channel, Layer: testKey.Layer, Kind: KindTime, Property: "file/time"}
}

func applyTimeSample(s *Store, current, total float64) *AdvanceIntent {
	return s.Apply(timeRes(), []layers.Argument{layers.FloatArg(float32(current)), layers.FloatArg(float32(total))})
}

func newPlaylistStore(items ...Item) *Store {
	s := NewStore()
	s.SetPlaylist(testKey, items)
	s.SetModes(testKey, true, false, false)
	s.ItemStarted(testKey, 0)
	return s
}

func TestApply_time_single_advance(t *testing.T) {
	s := newPlaylistStore(Item{ID: "a"}, Item{ID: "b"})

	if intent := applyTimeSample(s, 9.85, 10); intent != nil {
		t.Errorf("0.15s remaining should not complete, got %+v", intent)
	}
	intent := applyTimeSample(s, 9.95, 10)
	if intent == nil {
		t.Fatal("0.05s remaining should complete")
	}
	if intent.Stop || intent.NextIndex != 1 {
		t.Errorf("unexpected intent: %+v", intent)
	}
	// latch holds: further samples at the threshold are silent
	if intent := applyTimeSample(s, 10.0, 10); intent != nil {
		t.Errorf("latched layer fired again: %+v", intent)
	}
	if intent := applyTimeSample(s, 9.92, 10); intent != nil {
		t.Errorf("hovering below the threshold fired again: %+v", intent)
	}

	snap, err := s.Snapshot(testKey)
	if err != nil {
		t.Fatal(err)
	}
	if snap.PendingAdvance == nil || *snap.PendingAdvance != 1 {
		t.Errorf("pending advance not recorded: %+v", snap.PendingAdvance)
	}
}

func TestApply_time_latch_rearms_after_restart(t *testing.T) {
	s := newPlaylistStore(Item{ID: "a"}, Item{ID: "b"})

	if applyTimeSample(s, 9.95, 10) == nil {
		t.Fatal("first completion missing")
	}
	s.ItemStarted(testKey, 1)
	if intent := applyTimeSample(s, 1.0, 10); intent != nil {
		t.Errorf("mid-item sample completed: %+v", intent)
	}
	intent := applyTimeSample(s, 9.95, 10)
	if intent == nil {
		t.Fatal("second item completion missing")
	}
	if !intent.Stop {
		t.Errorf("last item should stop, got %+v", intent)
	}
}

func TestApply_time_rearm_needs_material_remaining(t *testing.T) {
	s := newPlaylistStore(Item{ID: "a"}, Item{ID: "b"})

	if applyTimeSample(s, 9.95, 10) == nil {
		t.Fatal("completion missing")
	}
	// remaining 0.3s sits between the slacks, latch must hold
	if intent := applyTimeSample(s, 9.7, 10); intent != nil {
		t.Errorf("intermediate sample fired: %+v", intent)
	}
	if intent := applyTimeSample(s, 9.95, 10); intent != nil {
		t.Errorf("latch was re-armed too eagerly: %+v", intent)
	}
	// a seek well back re-arms, the next crossing fires again
	if intent := applyTimeSample(s, 5.0, 10); intent != nil {
		t.Errorf("seek back fired: %+v", intent)
	}
	if applyTimeSample(s, 9.95, 10) == nil {
		t.Error("re-armed latch did not fire")
	}
}

func TestApply_time_one_float_uses_item_duration(t *testing.T) {
	s := newPlaylistStore(Item{ID: "a", Duration: 10}, Item{ID: "b", Duration: 5})

	apply := func(current float64) *AdvanceIntent {
		return s.Apply(timeRes(), []layers.Argument{layers.FloatArg(float32(current))})
	}
	if intent := apply(9.5); intent != nil {
		t.Errorf("early sample completed: %+v", intent)
	}
	intent := apply(9.95)
	if intent == nil {
		t.Fatal("metadata-duration completion missing")
	}
	if intent.NextIndex != 1 {
		t.Errorf("unexpected intent: %+v", intent)
	}
}

func TestApply_time_no_total_no_metadata_is_silent(t *testing.T) {
	s := NewStore()
	s.SetModes(testKey, true, false, false)
	s.ItemStarted(testKey, 0)
	if intent := s.Apply(timeRes(), []layers.Argument{layers.FloatArg(99)}); intent != nil {
		t.Errorf("no duration known, got intent %+v", intent)
	}
}

func TestApply_paused_only_touches_paused(t *testing.T) {
	s := newPlaylistStore(Item{ID: "a"})
	res := ResolvedAddress{Channel: 1, Layer: 10, Kind: KindPaused, Property: "paused"}

	s.Apply(res, []layers.Argument{layers.BoolArg(true)})
	snap, err := s.Snapshot(testKey)
	if err != nil {
		t.Fatal(err)
	}
	if !snap.IsPaused {
		t.Error("paused flag not set")
	}
	if !snap.IsPlaying {
		t.Error("isPlaying must not be affected by pause telemetry")
	}

	// integer-flag convention
	s.Apply(res, []layers.Argument{layers.IntArg(0)})
	snap, _ = s.Snapshot(testKey)
	if snap.IsPaused {
		t.Error("integer 0 should clear paused")
	}
}

func TestApply_loop_reported_in_snapshot(t *testing.T) {
	s := NewStore()
	res := ResolvedAddress{Channel: 1, Layer: 10, Kind: KindLoop, Property: "loop"}

	s.Apply(res, []layers.Argument{layers.BoolArg(true)})
	snap, err := s.Snapshot(testKey)
	if err != nil {
		t.Fatal(err)
	}
	if !snap.LoopReported {
		t.Error("loop telemetry not reflected in snapshot")
	}

	s.Apply(res, []layers.Argument{layers.BoolArg(false)})
	snap, _ = s.Snapshot(testKey)
	if snap.LoopReported {
		t.Error("loop flag not cleared")
	}
}

func TestApply_frame_and_producer(t *testing.T) {
	s := NewStore()
	frameRes := ResolvedAddress{Channel: 1, Layer: 10, Kind: KindFrame, Property: "file/frame"}
	s.Apply(frameRes, []layers.Argument{layers.Int64Arg(100), layers.Int64Arg(250)})

	typeRes := ResolvedAddress{Channel: 1, Layer: 10, Kind: KindProducerType, Property: "foreground/producer/type"}
	s.Apply(typeRes, []layers.Argument{layers.StringArg("ffmpeg")})

	snap, err := s.Snapshot(testKey)
	if err != nil {
		t.Fatal(err)
	}
	if snap.CurrentFrame != 100 || snap.TotalFrames != 250 {
		t.Errorf("frames: %d/%d", snap.CurrentFrame, snap.TotalFrames)
	}
	if snap.ProducerType != "ffmpeg" {
		t.Errorf("producer type: %q", snap.ProducerType)
	}
}

func TestApply_unaddressed_is_ignored(t *testing.T) {
	s := NewStore()
	if intent := s.Apply(Resolve("/mixer/volume"), []layers.Argument{layers.FloatArg(1)}); intent != nil {
		t.Errorf("unaddressed message produced intent: %+v", intent)
	}
	if s.LayerCount() != 0 {
		t.Error("unaddressed message created a layer")
	}
}

func TestAdvance_terminal_stop_on_last_item(t *testing.T) {
	s := newPlaylistStore(Item{ID: "a"}, Item{ID: "b"})
	s.ItemStarted(testKey, 1)

	intent := applyTimeSample(s, 9.95, 10)
	if intent == nil || !intent.Stop || intent.NextIndex != -1 {
		t.Fatalf("expected terminal stop, got %+v", intent)
	}
	snap, _ := s.Snapshot(testKey)
	if snap.IsPlaying || snap.CurrentIndex != -1 {
		t.Errorf("terminal state: playing=%v index=%d", snap.IsPlaying, snap.CurrentIndex)
	}
	if snap.PendingAdvance != nil {
		t.Errorf("terminal stop must not leave a pending advance: %+v", snap.PendingAdvance)
	}
}

func TestAdvance_loop_mode_wraps(t *testing.T) {
	s := newPlaylistStore(Item{ID: "a"}, Item{ID: "b"})
	s.SetModes(testKey, true, true, false)
	s.ItemStarted(testKey, 1)

	intent := applyTimeSample(s, 9.95, 10)
	if intent == nil || intent.Stop || intent.NextIndex != 0 {
		t.Fatalf("expected wrap to 0, got %+v", intent)
	}
}

func TestAdvance_loop_item_suppresses(t *testing.T) {
	s := newPlaylistStore(Item{ID: "a"}, Item{ID: "b"})
	s.SetModes(testKey, true, false, true)

	if intent := applyTimeSample(s, 9.95, 10); intent != nil {
		t.Errorf("loopItem layer advanced: %+v", intent)
	}
}

func TestAdvance_requires_playlist_mode(t *testing.T) {
	s := NewStore()
	s.SetPlaylist(testKey, []Item{{ID: "a"}, {ID: "b"}})
	s.ItemStarted(testKey, 0)

	if intent := applyTimeSample(s, 9.95, 10); intent != nil {
		t.Errorf("advance without playlist mode: %+v", intent)
	}
}

func TestAdvance_empty_playlist(t *testing.T) {
	s := NewStore()
	s.SetModes(testKey, true, false, false)
	s.ItemStarted(testKey, 0)

	if intent := applyTimeSample(s, 9.95, 10); intent != nil {
		t.Errorf("empty playlist advanced: %+v", intent)
	}
}

func TestClearAdvance(t *testing.T) {
	s := newPlaylistStore(Item{ID: "a"}, Item{ID: "b"})
	if applyTimeSample(s, 9.95, 10) == nil {
		t.Fatal("completion missing")
	}
	s.ClearAdvance(testKey)
	snap, _ := s.Snapshot(testKey)
	if snap.PendingAdvance != nil {
		t.Errorf("pending advance survived clear: %+v", snap.PendingAdvance)
	}
}

func TestCompleteItem_respects_latch(t *testing.T) {
	s := newPlaylistStore(Item{ID: "a", Image: true}, Item{ID: "b"})

	intent := s.CompleteItem(testKey)
	if intent == nil || intent.NextIndex != 1 {
		t.Fatalf("expected advance to 1, got %+v", intent)
	}
	if intent := s.CompleteItem(testKey); intent != nil {
		t.Errorf("second completion fired: %+v", intent)
	}
}

func TestSetPlaylist_truncation_resets_index(t *testing.T) {
	s := newPlaylistStore(Item{ID: "a"}, Item{ID: "b"}, Item{ID: "c"})
	s.ItemStarted(testKey, 2)
	s.SetPlaylist(testKey, []Item{{ID: "a"}})

	snap, _ := s.Snapshot(testKey)
	if snap.CurrentIndex != -1 {
		t.Errorf("index past playlist end should reset, got %d", snap.CurrentIndex)
	}
}

func TestSnapshot_unknown_layer(t *testing.T) {
	s := NewStore()
	if _, err := s.Snapshot(LayerKey{Channel: 9, Layer: 9}); err == nil {
		t.Error("unknown layer should error")
	}
}

func TestSnapshots_sorted(t *testing.T) {
	s := NewStore()
	s.ItemStarted(LayerKey{Channel: 2, Layer: 1}, 0)
	s.ItemStarted(LayerKey{Channel: 1, Layer: 5}, 0)
	s.ItemStarted(LayerKey{Channel: 1, Layer: 2}, 0)

	snaps := s.Snapshots()
	if len(snaps) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(snaps))
	}
	if snaps[0].Channel != 1 || snaps[0].Layer != 2 || snaps[2].Channel != 2 {
		t.Errorf("snapshots not ordered: %+v", snaps)
	}
}

func TestEvents_advance_event_published(t *testing.T) {
	s := newPlaylistStore(Item{ID: "a"}, Item{ID: "b"})
	// drain events generated by setup
	for len(s.Events()) > 0 {
		<-s.Events()
	}

	applyTimeSample(s, 9.95, 10)

	var kinds []string
	for len(s.Events()) > 0 {
		kinds = append(kinds, (<-s.Events()).Kind)
	}
	if len(kinds) != 2 || kinds[0] != EventState || kinds[1] != EventAdvance {
		t.Errorf("unexpected event kinds: %v", kinds)
	}
}
