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
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/openplayout/go-playout/pkg/command"
	"github.com/openplayout/go-playout/pkg/config"
	"github.com/openplayout/go-playout/pkg/log"
	"github.com/openplayout/go-playout/pkg/macro"
	"github.com/openplayout/go-playout/pkg/metrics"
	"github.com/openplayout/go-playout/pkg/playout"
	"github.com/openplayout/go-playout/pkg/srv/telemetry/ifc"
)

// ApiServer is the read-mostly front door: layer state snapshots, macro CRUD
// and metrics. It has no protocol logic of its own; everything it serves is
// computed by the engine and the stores.
type ApiServer struct {
	context.Context
	*config.Config
	*mux.Router
	engine    *Engine
	macros    *macro.Store
	mtr       *metrics.Metrics
	heartbeat *command.Heartbeat
}

var _ ifc.ApiServer = &ApiServer{}

func NewApiServer(ctx context.Context, cfg *config.Config, engine *Engine,
	macros *macro.Store, mtr *metrics.Metrics, heartbeat *command.Heartbeat) (ifc.ApiServer, error) {
	log.Info("Initializing API server with address: %s port: %d", cfg.IP, cfg.ApiPort)
	return &ApiServer{
		Context:   ctx,
		Config:    cfg,
		engine:    engine,
		macros:    macros,
		mtr:       mtr,
		heartbeat: heartbeat,
	}, nil
}

func (s *ApiServer) Run() error {
	log.Info("Starting API server: address: %s port: %d", s.Config.IP, s.Config.ApiPort)
	s.configureRouter()
	httpServer := &http.Server{
		Handler: handlers.LoggingHandler(os.Stderr, s.Router),
		Addr:    fmt.Sprintf("%s:%d", s.Config.IP, s.Config.ApiPort),
	}
	return httpServer.ListenAndServe()
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	s.Router.Handle("/metrics", s.mtr.Handler(func() {
		s.mtr.SetLayersTracked(s.engine.Store().LayerCount())
	}))
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	subRouter.HandleFunc("/health", s.handleHealth()).Methods("GET")
	subRouter.HandleFunc("/layers", s.handleLayers()).Methods("GET")
	subRouter.HandleFunc("/layer/{channel:[0-9]+}/{layer:[0-9]+}", s.handleLayer()).Methods("GET")
	subRouter.HandleFunc("/layer/{channel:[0-9]+}/{layer:[0-9]+}/clear-advance", s.handleClearAdvance()).Methods("POST")
	subRouter.HandleFunc("/macros", s.handleMacroList()).Methods("GET")
	subRouter.HandleFunc("/macro", s.handleMacroPut()).Methods("POST")
	subRouter.HandleFunc("/macro/{id}", s.handleMacroGet()).Methods("GET")
	subRouter.HandleFunc("/macro/{id}", s.handleMacroDelete()).Methods("DELETE")
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Error while writing API response: %s", err)
	}
}

func layerKey(r *http.Request) (playout.LayerKey, error) {
	vars := mux.Vars(r)
	channel, err := strconv.Atoi(vars["channel"])
	if err != nil {
		return playout.LayerKey{}, err
	}
	layer, err := strconv.Atoi(vars["layer"])
	if err != nil {
		return playout.LayerKey{}, err
	}
	return playout.LayerKey{Channel: channel, Layer: layer}, nil
}

func (s *ApiServer) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"commandUp":     s.heartbeat.Healthy(),
			"layersTracked": s.engine.Store().LayerCount(),
		})
	}
}

func (s *ApiServer) handleLayers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, s.engine.Store().Snapshots())
	}
}

func (s *ApiServer) handleLayer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := layerKey(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		snap, err := s.engine.Store().Snapshot(key)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, snap)
	}
}

func (s *ApiServer) handleClearAdvance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := layerKey(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.engine.Store().ClearAdvance(key)
		writeJSON(w, map[string]int{"code": http.StatusOK})
	}
}

func (s *ApiServer) handleMacroList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		macros, err := s.macros.List()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if macros == nil {
			macros = []*macro.Macro{}
		}
		writeJSON(w, macros)
	}
}

func (s *ApiServer) handleMacroGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := s.macros.Get(mux.Vars(r)["id"])
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, m)
	}
}

func (s *ApiServer) handleMacroPut() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := &macro.Macro{}
		if err := json.NewDecoder(r.Body).Decode(m); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if m.ID == "" {
			http.Error(w, "macro id required", http.StatusBadRequest)
			return
		}
		if err := s.macros.Put(m); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, m)
	}
}

func (s *ApiServer) handleMacroDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.macros.Delete(mux.Vars(r)["id"]); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]int{"code": http.StatusOK})
	}
}
