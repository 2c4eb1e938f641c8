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
	"errors"
	"fmt"

	"github.com/imroc/req"

	"github.com/openplayout/go-playout/pkg/config"
	"github.com/openplayout/go-playout/pkg/macro"
	"github.com/openplayout/go-playout/pkg/playout"
)

// ApiClient talks to a running go-playout daemon over its HTTP API.
type ApiClient struct {
	*config.Config
	ApiPrefix string
}

func NewApiClient(cfg *config.Config) *ApiClient {
	return &ApiClient{
		Config:    cfg,
		ApiPrefix: fmt.Sprintf("http://%s:%d/api", cfg.IP, cfg.ApiPort),
	}
}

// Layers returns snapshots of all tracked layers.
func (c *ApiClient) Layers() ([]playout.LayerSnapshot, error) {
	r, err := req.Get(fmt.Sprintf("%s/layers", c.ApiPrefix))
	if err != nil {
		return nil, err
	}
	if r.Response().StatusCode != 200 {
		return nil, errors.New(r.Response().Status)
	}
	var snaps []playout.LayerSnapshot
	if err = r.ToJSON(&snaps); err != nil {
		return nil, err
	}
	return snaps, nil
}

// Layer returns the snapshot of one layer.
func (c *ApiClient) Layer(channel, layer int) (*playout.LayerSnapshot, error) {
	r, err := req.Get(fmt.Sprintf("%s/layer/%d/%d", c.ApiPrefix, channel, layer))
	if err != nil {
		return nil, err
	}
	if r.Response().StatusCode != 200 {
		return nil, errors.New(r.Response().Status)
	}
	snap := &playout.LayerSnapshot{}
	if err = r.ToJSON(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// ClearAdvance tells the daemon the pending advance of a layer was acted on.
func (c *ApiClient) ClearAdvance(channel, layer int) error {
	r, err := req.Post(fmt.Sprintf("%s/layer/%d/%d/clear-advance", c.ApiPrefix, channel, layer))
	if err != nil {
		return err
	}
	if r.Response().StatusCode != 200 {
		return errors.New(r.Response().Status)
	}
	return nil
}

// Macros returns all stored macro definitions.
func (c *ApiClient) Macros() ([]*macro.Macro, error) {
	r, err := req.Get(fmt.Sprintf("%s/macros", c.ApiPrefix))
	if err != nil {
		return nil, err
	}
	if r.Response().StatusCode != 200 {
		return nil, errors.New(r.Response().Status)
	}
	var macros []*macro.Macro
	if err = r.ToJSON(&macros); err != nil {
		return nil, err
	}
	return macros, nil
}

// Macro returns one macro definition by id.
func (c *ApiClient) Macro(id string) (*macro.Macro, error) {
	r, err := req.Get(fmt.Sprintf("%s/macro/%s", c.ApiPrefix, id))
	if err != nil {
		return nil, err
	}
	if r.Response().StatusCode != 200 {
		return nil, errors.New(r.Response().Status)
	}
	m := &macro.Macro{}
	if err = r.ToJSON(m); err != nil {
		return nil, err
	}
	return m, nil
}
