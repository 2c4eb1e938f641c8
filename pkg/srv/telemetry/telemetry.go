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
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/gopacket"

	"github.com/openplayout/go-playout/pkg/command"
	"github.com/openplayout/go-playout/pkg/config"
	"github.com/openplayout/go-playout/pkg/layers"
	"github.com/openplayout/go-playout/pkg/log"
	"github.com/openplayout/go-playout/pkg/macro"
	"github.com/openplayout/go-playout/pkg/metrics"
	"github.com/openplayout/go-playout/pkg/playout"
	"github.com/openplayout/go-playout/pkg/sched"
	"github.com/openplayout/go-playout/pkg/srv"
	"github.com/openplayout/go-playout/pkg/srv/telemetry/ifc"
)

// Server owns the telemetry ingest pipeline: it listens for OSC datagrams,
// decodes them and drives the engine. The API server and the command-channel
// heartbeat run alongside it under the same context.
type Server struct {
	srv.Server
	engine    *Engine
	scheduler *sched.Scheduler
	macros    *macro.Store
	mtr       *metrics.Metrics
	heartbeat *command.Heartbeat
	api       ifc.ApiServer
}

var _ ifc.TelemetryServer = &Server{}

func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	log.Debug("Initializing telemetry server with address: %s port: %d", cfg.IP, cfg.TelemetryPort)

	uaddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", cfg.IP, cfg.TelemetryPort))
	if err != nil {
		return nil, err
	}

	mtr := metrics.New()
	macroStore, err := macro.NewStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if cfg.MacroSeedPath != "" {
		if _, err := macroStore.SeedFromTOML(cfg.MacroSeedPath); err != nil {
			log.Warning("Macro seed import failed: %s", err)
		}
	}

	scheduler := sched.New()
	store := playout.NewStore()
	engine := NewEngine(cfg, store, scheduler, macroStore, nil, mtr)
	heartbeat := command.NewHeartbeat(cfg.CommandAddr,
		time.Duration(cfg.HeartbeatSec)*time.Second, mtr.SetCommandUp)

	s := &Server{
		Server: srv.Server{
			Context: ctx,
			Config:  cfg,
			UDPAddr: uaddr,
			ChIn:    make(chan srv.InPacket),
		},
		engine:    engine,
		scheduler: scheduler,
		macros:    macroStore,
		mtr:       mtr,
		heartbeat: heartbeat,
	}

	apiServer, err := NewApiServer(ctx, cfg, engine, macroStore, mtr, heartbeat)
	if err != nil {
		macroStore.Close()
		return nil, err
	}
	s.api = apiServer

	return s, nil
}

// Engine exposes the engine so a hosting application can attach its command
// layer (AdvanceFunc, playlists, modes).
func (s *Server) Engine() *Engine {
	return s.engine
}

func (s *Server) Run() error {
	conn, err := net.ListenUDP("udp", s.UDPAddr)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer s.macros.Close()
	defer s.scheduler.CancelAll()

	errChan := make(chan error, 1)
	buffer := make([]byte, 65536)

	// Read datagrams from wire and put them to the input queue
	go func() {
		for {
			length, addr, readErr := conn.ReadFrom(buffer)
			if readErr != nil {
				errChan <- readErr
				return
			}
			udpAddr, readErr := net.ResolveUDPAddr("udp", addr.String())
			if readErr != nil {
				errChan <- readErr
				return
			}
			data := make([]byte, length)
			copy(data, buffer[:length])
			ci := gopacket.CaptureInfo{
				Length:        length,
				CaptureLength: length,
				Timestamp:     time.Now(),
				AncillaryData: []interface{}{udpAddr},
			}
			s.ChIn <- srv.InPacket{Data: data, CaptureInfo: ci}
		}
	}()

	// Read datagrams from the input queue and feed the engine
	go func() {
		source := gopacket.NewPacketSource(s, layers.OSCLayerType)
		senders := make(map[string]bool)
		for packet := range source.Packets() {
			s.mtr.IncPackets()
			addr, addrErr := srv.GetAddrPort(packet)
			if addrErr == nil && !senders[addr.String()] {
				senders[addr.String()] = true
				log.Info("Receiving telemetry from %s", addr)
			}
			layer := packet.Layer(layers.OSCLayerType)
			if layer == nil {
				s.mtr.IncMalformed()
				if addrErr == nil {
					log.Debug("Dropping undecodable telemetry datagram from %s", addr)
				} else {
					log.Debug("Dropping undecodable telemetry datagram")
				}
				continue
			}
			osc := layer.(*layers.OSCLayer)
			s.mtr.AddMessages(len(osc.Messages))
			for _, message := range osc.Messages {
				s.engine.HandleMessage(message)
			}
			s.mtr.SetLayersTracked(s.engine.Store().LayerCount())
		}
	}()

	go func() {
		if apiErr := s.api.Run(); apiErr != nil {
			errChan <- apiErr
		}
	}()

	go s.heartbeat.Run(s.Context)

	select {
	case <-s.Context.Done():
		return s.Context.Err()
	case err = <-errChan:
		return err
	}
}
