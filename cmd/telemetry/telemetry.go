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

	"github.com/spf13/cobra"

	"github.com/openplayout/go-playout/pkg/config"
	"github.com/openplayout/go-playout/pkg/srv/telemetry"
)

const (
	IPOptionName   = "ip"
	PortOptionName = "port"
	SeedOptionName = "macros"
)

func NewCommand() *cobra.Command {
	var ip, seedPath string
	var port int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "telemetry",
		Short: "Start telemetry daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ip != "" {
				cfg.IP = ip
			}
			if port != 0 {
				cfg.TelemetryPort = port
			}
			if seedPath != "" {
				cfg.MacroSeedPath = seedPath
			}
			server, err := telemetry.NewServer(context.Background(), cfg)
			if err != nil {
				return err
			}
			return server.Run()
		},
	}
	cmd.Flags().StringVar(&ip, IPOptionName, "", "IP to bind. E.g. 192.168.1.2")
	cmd.Flags().IntVar(&port, PortOptionName, 0, "Telemetry port to bind. E.g. 6250")
	cmd.Flags().StringVar(&seedPath, SeedOptionName, "", "Path to a TOML macro seed file")

	return cmd
}
