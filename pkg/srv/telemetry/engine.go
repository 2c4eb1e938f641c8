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

package telemetry

import (
	"fmt"
	"time"

	"github.com/openplayout/go-playout/pkg/config"
	"github.com/openplayout/go-playout/pkg/layers"
	"github.com/openplayout/go-playout/pkg/log"
	"github.com/openplayout/go-playout/pkg/macro"
	"github.com/openplayout/go-playout/pkg/metrics"
	"github.com/openplayout/go-playout/pkg/playout"
	"github.com/openplayout/go-playout/pkg/sched"
)

// AdvanceFunc is the hook into the external command layer. It is called with
// the layer and the resolved next index once an advance intent is emitted;
// the command layer issues the transport command and clears the pending
// index via Store.ClearAdvance.
type AdvanceFunc func(key playout.LayerKey, nextIndex int) error

// Engine ties telemetry-derived state to the scheduler and the macro store.
// It decides when an advance or a macro should happen, never how playback is
// actually moved.
type Engine struct {
	cfg       *config.Config
	store     *playout.Store
	scheduler *sched.Scheduler
	macros    *macro.Store
	runner    macro.Runner
	mtr       *metrics.Metrics

	// Advance is optional; with no command layer attached intents are only
	// recorded on the layer state.
	Advance AdvanceFunc
}

func NewEngine(cfg *config.Config, store *playout.Store, scheduler *sched.Scheduler,
	macros *macro.Store, runner macro.Runner, mtr *metrics.Metrics) *Engine {
	if runner == nil {
		runner = macro.LogRunner{}
	}
	return &Engine{
		cfg:       cfg,
		store:     store,
		scheduler: scheduler,
		macros:    macros,
		runner:    runner,
		mtr:       mtr,
	}
}

func (e *Engine) Store() *playout.Store {
	return e.store
}

// HandleMessage resolves and applies one telemetry message.
func (e *Engine) HandleMessage(message *layers.Message) {
	res := playout.Resolve(message.Address)
	if !res.Addressed() || res.Kind == playout.KindNone {
		return
	}
	if intent := e.store.Apply(res, message.Args); intent != nil {
		e.handleIntent(intent)
	}
}

func (e *Engine) handleIntent(intent *playout.AdvanceIntent) {
	e.mtr.IncAdvances()
	if intent.Stop {
		e.scheduler.Cancel(imageKey(intent.Key))
		log.Info("Playlist finished on channel %d layer %d", intent.Key.Channel, intent.Key.Layer)
		return
	}
	log.Info("Advance on channel %d layer %d to item %d",
		intent.Key.Channel, intent.Key.Layer, intent.NextIndex)
	if e.Advance != nil {
		if err := e.Advance(intent.Key, intent.NextIndex); err != nil {
			log.Error("Advance command failed on channel %d layer %d: %s",
				intent.Key.Channel, intent.Key.Layer, err)
		}
	}
}

// PrepareStart runs a negative-offset start macro for the item about to be
// started and returns the delay the caller must impose before issuing the
// actual start command. Zero means start right away.
func (e *Engine) PrepareStart(key playout.LayerKey, index int) time.Duration {
	item, ok := e.store.ItemAt(key, index)
	if !ok || item.StartMacro == "" {
		return 0
	}
	m, err := e.macros.Get(item.StartMacro)
	if err != nil {
		e.macroFailure(item.StartMacro, err)
		return 0
	}
	offset, err := m.OffsetSeconds(e.cfg.FrameRate(key.Channel))
	if err != nil {
		e.macroFailure(item.StartMacro, err)
		return 0
	}
	plan := macro.PlanStart(offset)
	if !plan.Immediate {
		return 0
	}
	e.runMacro(m)
	return plan.Lead
}

// ItemStarted records that the command layer started the item at index and
// arms whatever timers the item needs: the image-duration fallback and the
// item's start/end macros. Timers left over from the previous item on this
// layer are replaced or cancelled.
func (e *Engine) ItemStarted(key playout.LayerKey, index int) {
	e.store.ItemStarted(key, index)
	e.scheduler.Cancel(imageKey(key))

	item, ok := e.store.ActiveItem(key)
	if !ok {
		return
	}
	snap, err := e.store.Snapshot(key)
	if err != nil {
		return
	}
	rate := e.cfg.FrameRate(key.Channel)

	duration := item.Duration
	if item.Image && duration <= 0 {
		duration = e.cfg.ImageDurationFor(key.Channel)
	}

	if item.Image && snap.PlaylistMode && !snap.LoopItem {
		e.armImageTimer(key, index, duration)
	}
	if item.StartMacro != "" {
		e.scheduleStartMacro(key, item, rate)
	}
	if item.EndMacro != "" {
		e.scheduleEndMacro(key, item, rate, duration)
	}
}

// SetModes updates a layer's auto-advance flags. Disabling playlist mode
// cancels the armed image timer; enabling it re-arms a fresh one for the
// active image item, so a toggle never leaves a stale timer behind.
func (e *Engine) SetModes(key playout.LayerKey, playlistMode, loopMode, loopItem bool) {
	e.store.SetModes(key, playlistMode, loopMode, loopItem)
	if !playlistMode || loopItem {
		e.scheduler.Cancel(imageKey(key))
		return
	}
	snap, err := e.store.Snapshot(key)
	if err != nil || snap.CurrentIndex < 0 {
		return
	}
	item, ok := e.store.ActiveItem(key)
	if !ok || !item.Image {
		return
	}
	duration := item.Duration
	if duration <= 0 {
		duration = e.cfg.ImageDurationFor(key.Channel)
	}
	e.armImageTimer(key, snap.CurrentIndex, duration)
}

// CancelItemTimers drops the start/end macro timers of an item. Callers must
// do this before discarding a playlist item, there is no implicit
// cancellation.
func (e *Engine) CancelItemTimers(itemID string) {
	e.scheduler.Cancel(sched.Key{Item: itemID, Position: sched.PositionStart})
	e.scheduler.Cancel(sched.Key{Item: itemID, Position: sched.PositionEnd})
}

func imageKey(key playout.LayerKey) sched.Key {
	return sched.Key{
		Item:     fmt.Sprintf("layer/%d/%d/image", key.Channel, key.Layer),
		Position: sched.PositionEnd,
	}
}

func (e *Engine) armImageTimer(key playout.LayerKey, index int, durationSeconds float64) {
	delay := time.Duration(durationSeconds * float64(time.Second))
	e.scheduler.Schedule(imageKey(key), delay, func() {
		e.mtr.IncTimersFired()
		// the armed context may be stale, re-check live state at fire time
		snap, err := e.store.Snapshot(key)
		if err != nil || !snap.PlaylistMode || snap.LoopItem || snap.CurrentIndex != index {
			log.Debug("Image timer for channel %d layer %d no longer applies", key.Channel, key.Layer)
			return
		}
		if intent := e.store.CompleteItem(key); intent != nil {
			e.handleIntent(intent)
		}
	})
}

func (e *Engine) scheduleStartMacro(key playout.LayerKey, item playout.Item, rate float64) {
	m, err := e.macros.Get(item.StartMacro)
	if err != nil {
		e.macroFailure(item.StartMacro, err)
		return
	}
	offset, err := m.OffsetSeconds(rate)
	if err != nil {
		e.macroFailure(item.StartMacro, err)
		return
	}
	plan := macro.PlanStart(offset)
	if plan.Immediate {
		// already executed by PrepareStart before the start command went out
		return
	}
	id := item.StartMacro
	e.scheduler.Schedule(sched.Key{Item: item.ID, Position: sched.PositionStart}, plan.After, func() {
		e.mtr.IncTimersFired()
		e.fireMacro(id)
	})
}

func (e *Engine) scheduleEndMacro(key playout.LayerKey, item playout.Item, rate, duration float64) {
	if duration <= 0 {
		log.Debug("Item %s has no known duration, end macro %s not scheduled", item.ID, item.EndMacro)
		return
	}
	m, err := e.macros.Get(item.EndMacro)
	if err != nil {
		e.macroFailure(item.EndMacro, err)
		return
	}
	offset, err := m.OffsetSeconds(rate)
	if err != nil {
		e.macroFailure(item.EndMacro, err)
		return
	}
	id := item.EndMacro
	e.scheduler.Schedule(sched.Key{Item: item.ID, Position: sched.PositionEnd}, macro.EndDelay(duration, offset), func() {
		e.mtr.IncTimersFired()
		e.fireMacro(id)
	})
}

// fireMacro looks the macro up again at fire time: a definition deleted after
// arming is a non-fatal failure, not a crash.
func (e *Engine) fireMacro(id string) {
	m, err := e.macros.Get(id)
	if err != nil {
		e.macroFailure(id, err)
		return
	}
	e.runMacro(m)
}

func (e *Engine) runMacro(m *macro.Macro) {
	if err := e.runner.Run(m); err != nil {
		e.macroFailure(m.ID, err)
	}
}

func (e *Engine) macroFailure(id string, err error) {
	e.mtr.IncMacroFailures()
	log.Warning("Macro %s failed: %s", id, err)
}
