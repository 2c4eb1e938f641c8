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

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments of one daemon instance, registered
// on an owned registry so tests never collide on the global one.
type Metrics struct {
	registry         *prometheus.Registry
	packetsTotal     prometheus.Counter
	messagesTotal    prometheus.Counter
	malformedTotal   prometheus.Counter
	advancesTotal    prometheus.Counter
	timersFiredTotal prometheus.Counter
	macroFailures    prometheus.Counter
	layersTracked    prometheus.Gauge
	commandUp        prometheus.Gauge
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	packetsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playout_telemetry_packets_total",
		Help: "Total number of telemetry datagrams received",
	})
	messagesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playout_telemetry_messages_total",
		Help: "Total number of telemetry messages decoded",
	})
	malformedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playout_telemetry_malformed_total",
		Help: "Total number of datagrams that failed to decode",
	})
	advancesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playout_advances_total",
		Help: "Total number of auto-advance intents emitted",
	})
	timersFiredTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playout_timers_fired_total",
		Help: "Total number of scheduled timers that fired",
	})
	macroFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playout_macro_failures_total",
		Help: "Total number of macro executions that failed",
	})
	layersTracked := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "playout_layers_tracked",
		Help: "Number of (channel, layer) pairs with observed telemetry",
	})
	commandUp := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "playout_command_connection_up",
		Help: "Whether the command channel heartbeat currently succeeds",
	})

	registry.MustRegister(
		packetsTotal,
		messagesTotal,
		malformedTotal,
		advancesTotal,
		timersFiredTotal,
		macroFailures,
		layersTracked,
		commandUp,
	)

	return &Metrics{
		registry:         registry,
		packetsTotal:     packetsTotal,
		messagesTotal:    messagesTotal,
		malformedTotal:   malformedTotal,
		advancesTotal:    advancesTotal,
		timersFiredTotal: timersFiredTotal,
		macroFailures:    macroFailures,
		layersTracked:    layersTracked,
		commandUp:        commandUp,
	}
}

func (m *Metrics) IncPackets()              { m.packetsTotal.Inc() }
func (m *Metrics) AddMessages(n int)        { m.messagesTotal.Add(float64(n)) }
func (m *Metrics) IncMalformed()            { m.malformedTotal.Inc() }
func (m *Metrics) IncAdvances()             { m.advancesTotal.Inc() }
func (m *Metrics) IncTimersFired()          { m.timersFiredTotal.Inc() }
func (m *Metrics) IncMacroFailures()        { m.macroFailures.Inc() }
func (m *Metrics) SetLayersTracked(n int)   { m.layersTracked.Set(float64(n)) }
func (m *Metrics) SetCommandUp(up bool) {
	if up {
		m.commandUp.Set(1)
	} else {
		m.commandUp.Set(0)
	}
}

// Handler serves the registry. updateGauges runs before each scrape to
// refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
