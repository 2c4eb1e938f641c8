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

package config

const (
	ConfigDir  = ".go-playout"
	ConfigFile = "config"

	DefaultIP            = "0.0.0.0"
	DefaultTelemetryPort = 6250
	DefaultApiPort       = 8750
	DefaultCommandAddr   = "127.0.0.1:8250"
	DefaultHeartbeatSec  = 5
	DefaultLogLevel      = "info"
	DefaultDBFile        = "macros.db"
	DefaultMacroSeedFile = "macros.toml"

	// DefaultImageDuration is the fallback duration in seconds for still
	// images, which report no elapsing time over telemetry.
	DefaultImageDuration = 5.0

	DefaultFrameRateNum = 25
	DefaultFrameRateDen = 1
)
