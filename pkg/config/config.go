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

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v2"
)

// ChannelConfig describes one playout channel of the remote playback server.
// Frame rate is kept as a rational so drop-frame rates (30000/1001) stay exact.
type ChannelConfig struct {
	Channel       int     `yaml:"channel"`
	FrameRateNum  int     `yaml:"framerate_num"`
	FrameRateDen  int     `yaml:"framerate_den"`
	ImageDuration float64 `yaml:"image_duration,omitempty"`
}

// FrameRate returns the channel frame rate in frames per second.
func (c *ChannelConfig) FrameRate() float64 {
	if c.FrameRateNum <= 0 || c.FrameRateDen <= 0 {
		return float64(DefaultFrameRateNum) / float64(DefaultFrameRateDen)
	}
	return float64(c.FrameRateNum) / float64(c.FrameRateDen)
}

type Config struct {
	IP            string           `yaml:"ip"`
	TelemetryPort int              `yaml:"telemetry_port"`
	ApiPort       int              `yaml:"api_port"`
	CommandAddr   string           `yaml:"command_addr"`
	HeartbeatSec  int              `yaml:"heartbeat_sec"`
	LogLevel      string           `yaml:"log_level"`
	DBPath        string           `yaml:"db_path"`
	MacroSeedPath string           `yaml:"macro_seed_path,omitempty"`
	ImageDuration float64          `yaml:"image_duration"`
	Channels      []*ChannelConfig `yaml:"channels"`

	filepath string
}

// GetChannel returns the config of the given channel number, nil if the
// channel is not configured.
func (c *Config) GetChannel(channel int) *ChannelConfig {
	for _, ch := range c.Channels {
		if ch.Channel == channel {
			return ch
		}
	}
	return nil
}

// FrameRate returns the frame rate of the given channel, falling back to the
// default rate for unconfigured channels.
func (c *Config) FrameRate(channel int) float64 {
	if ch := c.GetChannel(channel); ch != nil {
		return ch.FrameRate()
	}
	return float64(DefaultFrameRateNum) / float64(DefaultFrameRateDen)
}

// ImageDurationFor returns the still-image fallback duration for a channel.
func (c *Config) ImageDurationFor(channel int) float64 {
	if ch := c.GetChannel(channel); ch != nil && ch.ImageDuration > 0 {
		return ch.ImageDuration
	}
	if c.ImageDuration > 0 {
		return c.ImageDuration
	}
	return DefaultImageDuration
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(&c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	return ioutil.WriteFile(c.filepath, data, 0644)
}

// Load reads the config file if it exists and then applies GO_PLAYOUT_*
// environment overrides. A missing config file is not an error, defaults
// stay in effect.
func (c *Config) Load() error {
	data, err := ioutil.ReadFile(c.filepath)
	if err == nil {
		if err = yaml.Unmarshal(data, c); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}
	c.applyEnv()
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("GO_PLAYOUT_IP"); v != "" {
		c.IP = v
	}
	if v := os.Getenv("GO_PLAYOUT_TELEMETRY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.TelemetryPort = port
		}
	}
	if v := os.Getenv("GO_PLAYOUT_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.ApiPort = port
		}
	}
	if v := os.Getenv("GO_PLAYOUT_COMMAND_ADDR"); v != "" {
		c.CommandAddr = v
	}
	if v := os.Getenv("GO_PLAYOUT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("GO_PLAYOUT_DB_PATH"); v != "" {
		c.DBPath = v
	}
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, ConfigFile)
}

func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, DefaultDBFile)
}

func NewDefaultConfig() *Config {
	return &Config{
		IP:            DefaultIP,
		TelemetryPort: DefaultTelemetryPort,
		ApiPort:       DefaultApiPort,
		CommandAddr:   DefaultCommandAddr,
		HeartbeatSec:  DefaultHeartbeatSec,
		LogLevel:      DefaultLogLevel,
		DBPath:        DefaultDBPath(),
		ImageDuration: DefaultImageDuration,
		Channels: []*ChannelConfig{
			{
				Channel:      1,
				FrameRateNum: DefaultFrameRateNum,
				FrameRateDen: DefaultFrameRateDen,
			},
		},
		filepath: DefaultConfigPath(),
	}
}
