package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	ActionVolume    = "volume"
	ActionNextTrack = "next_track"

	BackendGPIOCdev = "gpiocdev"
	BackendPinctrl  = "pinctrl"

	SkipBackendHTTP = "http"
	SkipBackendMPD  = "mpd"

	maxChannel = 7
)

// GPIO holds BCM line offsets. Every field is required.
type GPIO struct {
	SPIClock      *int `json:"spi_clock"`
	SPIMISO       *int `json:"spi_miso"`
	SPIMOSI       *int `json:"spi_mosi"`
	SPIChipSelect *int `json:"spi_chip_select"`

	Lamp *int `json:"lamp"`
}

type Knob struct {
	Name          string `json:"name"`
	Channel       int    `json:"channel"`
	Tolerance     int    `json:"tolerance"`
	MinIntervalMs int    `json:"min_interval_ms"`
	Action        string `json:"action"`
}

func (k Knob) MinInterval() time.Duration {
	return time.Duration(k.MinIntervalMs) * time.Millisecond
}

type Volume struct {
	Command string `json:"command"`
	Control string `json:"control"`
	Sudo    bool   `json:"sudo"`
}

type NextTrack struct {
	Backend     string `json:"backend"`
	URL         string `json:"url"`
	MPDAddr     string `json:"mpd_addr"`
	MPDPassword string `json:"mpd_password"`
}

type Connectivity struct {
	CheckURL        string `json:"check_url"`
	PollIntervalMs  int    `json:"poll_interval_ms"`
	ProbeIntervalMs int    `json:"probe_interval_ms"`
	ProbeTimeoutMs  int    `json:"probe_timeout_ms"`
	FlashPeriodMs   int    `json:"flash_period_ms"`
}

type Supervisor struct {
	JoinTimeoutMs int `json:"join_timeout_ms"`
}

type MQTT struct {
	Broker   string `json:"broker"`
	ClientID string `json:"client_id"`
	Topic    string `json:"topic"`
}

type Datadog struct {
	Enabled   bool     `json:"enabled"`
	AgentAddr string   `json:"agent_addr"`
	Namespace string   `json:"namespace"`
	Tags      []string `json:"tags"`
}

// Install holds paths used by `debug install` to set the box up for boot.
type Install struct {
	BootScriptPath  string `json:"boot_script_path"`
	GPIOServicePath string `json:"gpio_service_path"`
	MainServicePath string `json:"main_service_path"`
	User            string `json:"user"`
	WorkingDir      string `json:"working_dir"`
	ExecStart       string `json:"exec_start"`
}

type Config struct {
	ConfigFile string        `json:"-"`
	LogLevel   zerolog.Level `json:"-"`

	LogFile     string `json:"log_file"`
	GPIOChip    string `json:"gpio_chip"`
	GPIOBackend string `json:"gpio_backend"`
	GPIO        GPIO   `json:"gpio"`

	KnobPollIntervalMs int    `json:"knob_poll_interval_ms"`
	ActionTimeoutMs    int    `json:"action_timeout_ms"`
	Knobs              []Knob `json:"knobs"`

	Volume       Volume       `json:"volume"`
	NextTrack    NextTrack    `json:"next_track"`
	Connectivity Connectivity `json:"connectivity"`
	Supervisor   Supervisor   `json:"supervisor"`

	JournalPath string  `json:"journal_path"`
	APIPort     int     `json:"api_port"`
	MQTT        MQTT    `json:"mqtt"`
	Datadog     Datadog `json:"datadog"`
	NtfyTopic   string  `json:"ntfy_topic"`

	Install Install `json:"install"`
}

func Load() Config {
	var cfg Config
	var logLevel string

	flag.StringVar(&cfg.ConfigFile, "config-file", "config.json", "Path to hardware-ui config file")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	loaded := FromFile(cfg.ConfigFile)
	loaded.LogLevel = ParseLogLevel(logLevel)
	return loaded
}

// FromFile decodes, defaults and validates the JSON config at path. It panics
// on any problem, the process cannot run with a broken pin map.
func FromFile(path string) Config {
	cfg := Config{ConfigFile: path, LogLevel: zerolog.InfoLevel}

	file, err := os.Open(path)
	if err != nil {
		panic("Failed to load config file: " + err.Error())
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		panic("Failed to parse config file: " + err.Error())
	}

	cfg.applyDefaults()
	cfg.validate()
	return cfg
}

func ParseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.GPIOChip == "" {
		cfg.GPIOChip = "gpiochip0"
	}
	if cfg.GPIOBackend == "" {
		cfg.GPIOBackend = BackendGPIOCdev
	}
	if cfg.KnobPollIntervalMs == 0 {
		cfg.KnobPollIntervalMs = 500
	}
	if cfg.ActionTimeoutMs == 0 {
		cfg.ActionTimeoutMs = 5000
	}
	if len(cfg.Knobs) == 0 {
		cfg.Knobs = []Knob{
			{Name: "volume", Channel: 0, Tolerance: 10, Action: ActionVolume},
			// worn ~7M pot, needs the rate limit to avoid flooding the player
			{Name: "next_track", Channel: 1, Tolerance: 10, MinIntervalMs: 2000, Action: ActionNextTrack},
		}
	}
	if cfg.Volume.Command == "" {
		cfg.Volume.Command = "amixer"
	}
	if cfg.Volume.Control == "" {
		cfg.Volume.Control = "numid=1"
	}
	if cfg.NextTrack.Backend == "" {
		cfg.NextTrack.Backend = SkipBackendHTTP
	}
	if cfg.NextTrack.URL == "" {
		cfg.NextTrack.URL = "http://columbus/command/?cmd=next"
	}
	if cfg.NextTrack.MPDAddr == "" {
		cfg.NextTrack.MPDAddr = "localhost:6600"
	}

	c := &cfg.Connectivity
	if c.CheckURL == "" {
		c.CheckURL = "http://74.125.228.100"
	}
	if c.PollIntervalMs == 0 {
		c.PollIntervalMs = 250
	}
	if c.ProbeIntervalMs == 0 {
		c.ProbeIntervalMs = 10 * 1000
	}
	if c.ProbeTimeoutMs == 0 {
		c.ProbeTimeoutMs = 5000
	}
	if c.FlashPeriodMs == 0 {
		c.FlashPeriodMs = 2000
	}

	if cfg.Supervisor.JoinTimeoutMs == 0 {
		cfg.Supervisor.JoinTimeoutMs = 1000
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "hardware-ui"
	}
	if cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = "radio/hardware-ui/events"
	}
	if cfg.Datadog.AgentAddr == "" {
		cfg.Datadog.AgentAddr = "127.0.0.1:8125"
	}
	if cfg.JournalPath == "" {
		cfg.JournalPath = "data/hardware-ui.db"
	}

	in := &cfg.Install
	if in.BootScriptPath == "" {
		in.BootScriptPath = "/usr/local/bin/hardware-ui-gpio.sh"
	}
	if in.GPIOServicePath == "" {
		in.GPIOServicePath = "/etc/systemd/system/hardware-ui-gpio.service"
	}
	if in.MainServicePath == "" {
		in.MainServicePath = "/etc/systemd/system/hardware-ui.service"
	}
	if in.User == "" {
		in.User = "pi"
	}
	if in.WorkingDir == "" {
		in.WorkingDir = "/home/pi/hardware-ui"
	}
	if in.ExecStart == "" {
		in.ExecStart = "/usr/local/bin/hardware-ui -config-file /home/pi/hardware-ui/config.json"
	}
}

func (cfg *Config) validate() {
	var (
		missingFields []string
		usedPins      = map[int]string{}
		conflicts     []string
		badKnobs      []string
	)

	v := reflect.ValueOf(cfg.GPIO)
	t := reflect.TypeOf(cfg.GPIO)

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldName := t.Field(i).Tag.Get("json")

		if field.IsNil() {
			missingFields = append(missingFields, "gpio."+fieldName)
			continue
		}

		pin := field.Elem().Int()
		if other, exists := usedPins[int(pin)]; exists {
			conflicts = append(conflicts, fmt.Sprintf("gpio.%s and gpio.%s both use pin %d", fieldName, other, pin))
		} else {
			usedPins[int(pin)] = fieldName
		}
	}

	if len(missingFields) > 0 {
		panic("Missing required GPIO config fields: " + strings.Join(missingFields, ", "))
	}
	if len(conflicts) > 0 {
		panic("Conflicting GPIO pins: " + strings.Join(conflicts, ", "))
	}

	if cfg.GPIOBackend != BackendGPIOCdev && cfg.GPIOBackend != BackendPinctrl {
		panic("Unknown gpio_backend: " + cfg.GPIOBackend)
	}
	if cfg.NextTrack.Backend != SkipBackendHTTP && cfg.NextTrack.Backend != SkipBackendMPD {
		panic("Unknown next_track.backend: " + cfg.NextTrack.Backend)
	}

	usedChannels := map[int]string{}
	for _, k := range cfg.Knobs {
		if k.Channel < 0 || k.Channel > maxChannel {
			badKnobs = append(badKnobs, fmt.Sprintf("%s: channel %d outside [0,%d]", k.Name, k.Channel, maxChannel))
		}
		if other, exists := usedChannels[k.Channel]; exists {
			badKnobs = append(badKnobs, fmt.Sprintf("%s and %s both use channel %d", k.Name, other, k.Channel))
		} else {
			usedChannels[k.Channel] = k.Name
		}
		if k.Action != ActionVolume && k.Action != ActionNextTrack {
			badKnobs = append(badKnobs, fmt.Sprintf("%s: unknown action %q", k.Name, k.Action))
		}
		if k.Tolerance < 0 || k.MinIntervalMs < 0 {
			badKnobs = append(badKnobs, fmt.Sprintf("%s: tolerance and min_interval_ms must not be negative", k.Name))
		}
	}
	if cfg.APIPort < 0 || cfg.APIPort > 65535 {
		badKnobs = append(badKnobs, fmt.Sprintf("api_port %d out of range", cfg.APIPort))
	}
	if len(badKnobs) > 0 {
		panic("Invalid knob bindings: " + strings.Join(badKnobs, ", "))
	}
}

func (cfg *Config) KnobPollInterval() time.Duration {
	return time.Duration(cfg.KnobPollIntervalMs) * time.Millisecond
}

func (cfg *Config) ActionTimeout() time.Duration {
	return time.Duration(cfg.ActionTimeoutMs) * time.Millisecond
}

func (cfg *Config) JoinTimeout() time.Duration {
	return time.Duration(cfg.Supervisor.JoinTimeoutMs) * time.Millisecond
}

func (c Connectivity) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (c Connectivity) ProbeInterval() time.Duration {
	return time.Duration(c.ProbeIntervalMs) * time.Millisecond
}

func (c Connectivity) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutMs) * time.Millisecond
}

func (c Connectivity) FlashPeriod() time.Duration {
	return time.Duration(c.FlashPeriodMs) * time.Millisecond
}
