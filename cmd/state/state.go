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

package state

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/openplayout/go-playout/pkg/command"
	"github.com/openplayout/go-playout/pkg/config"
)

const (
	ChannelOptionName = "channel"
	LayerOptionName   = "layer"
)

// NewCommand queries layer state from a running daemon and prints it as YAML.
func NewCommand() *cobra.Command {
	var channel, layer int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show playback state of tracked layers",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := command.NewApiClient(cfg)
			var v interface{}
			if channel >= 0 && layer >= 0 {
				snap, err := client.Layer(channel, layer)
				if err != nil {
					return err
				}
				v = snap
			} else {
				snaps, err := client.Layers()
				if err != nil {
					return err
				}
				v = snaps
			}
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			out, err := yaml.JSONToYAML(data)
			if err != nil {
				return err
			}
			cmd.Print(string(out))
			return nil
		},
	}
	cmd.Flags().IntVar(&channel, ChannelOptionName, -1, "Channel number")
	cmd.Flags().IntVar(&layer, LayerOptionName, -1, "Layer number")

	return cmd
}
