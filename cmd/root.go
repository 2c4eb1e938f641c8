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

package cmd

import (
	"fmt"
	"io"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/openplayout/go-playout/cmd/completion"
	configcmd "github.com/openplayout/go-playout/cmd/config"
	macrocmd "github.com/openplayout/go-playout/cmd/macro"
	"github.com/openplayout/go-playout/cmd/state"
	"github.com/openplayout/go-playout/cmd/telemetry"
	pkgconfig "github.com/openplayout/go-playout/pkg/config"
	"github.com/openplayout/go-playout/pkg/log"
)

const (
	LogLevelOptionName = "log-level"
)

func NewRootCommand(out io.Writer) *cobra.Command {
	var logLevel string
	// .env overrides are read before the config file so containerized
	// deployments can configure without a home directory
	godotenv.Load()
	cfg := pkgconfig.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "go-playout",
		Short: "Playout telemetry and synchronization daemon",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			log.Init(cmd.ErrOrStderr(), cfg.LogLevel)
		},
	}
	cmd.SetOut(out)
	cmd.AddCommand(telemetry.NewCommand())
	cmd.AddCommand(configcmd.NewCommand())
	cmd.AddCommand(state.NewCommand())
	cmd.AddCommand(macrocmd.NewCommand())
	cmd.AddCommand(completion.NewCommand())
	cmd.PersistentFlags().StringVar(&logLevel, LogLevelOptionName, "", fmt.Sprintf("Log level. %s", log.HelpLevels))
	return cmd
}
