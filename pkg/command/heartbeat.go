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

package command

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/imroc/req"

	"github.com/openplayout/go-playout/pkg/log"
)

// Heartbeat polls a lightweight liveness call of the playback server's
// command interface on a fixed interval. Command-channel health is tracked
// independently of telemetry flow; the two are never conflated.
type Heartbeat struct {
	addr     string
	interval time.Duration
	onChange func(bool)

	mu      sync.Mutex
	known   bool
	healthy bool
}

func NewHeartbeat(addr string, interval time.Duration, onChange func(bool)) *Heartbeat {
	return &Heartbeat{
		addr:     addr,
		interval: interval,
		onChange: onChange,
	}
}

// Healthy reports the result of the most recent poll. Before the first poll
// completes the command channel counts as down.
func (h *Heartbeat) Healthy() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.healthy
}

func (h *Heartbeat) Run(ctx context.Context) {
	log.Debug("Starting command heartbeat against %s every %s", h.addr, h.interval)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	h.poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.poll()
		}
	}
}

func (h *Heartbeat) poll() {
	healthy := false
	r, err := req.Get(fmt.Sprintf("http://%s/version", h.addr))
	if err == nil && r.Response().StatusCode == 200 {
		healthy = true
	}
	h.set(healthy)
}

func (h *Heartbeat) set(healthy bool) {
	h.mu.Lock()
	changed := !h.known || healthy != h.healthy
	h.known = true
	h.healthy = healthy
	h.mu.Unlock()

	if !changed {
		return
	}
	if healthy {
		log.Info("Command connection to %s is up", h.addr)
	} else {
		log.Warning("Command connection to %s is down", h.addr)
	}
	if h.onChange != nil {
		h.onChange(healthy)
	}
}
