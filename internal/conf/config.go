// config.go: settings structs for the UltraSense detection pipeline and the
// functions to load and save them.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// SensorSettings describes the UDP frame channel to the acquisition board.
type SensorSettings struct {
	Host              string        `yaml:"host" validate:"required"`           // acquisition board address
	DataPort          int           `yaml:"dataport" validate:"gt=0,lte=65535"` // UDP data port
	FrameSizeSamples  int           `yaml:"framesizesamples" validate:"gt=0"`   // int16 samples per data block
	ReadTimeout       time.Duration `yaml:"readtimeout" validate:"gt=0"`        // per-datagram read deadline
	TimeoutGraceCount int           `yaml:"timeoutgracecount" validate:"gte=1"` // consecutive timeouts before degraded status
	HandshakeTimeout  time.Duration `yaml:"handshaketimeout" validate:"gt=0"`   // initial info exchange deadline
}

// DetectionSettings controls the two-stage decision process.
type DetectionSettings struct {
	DistanceThresholdCm    float64 `yaml:"distancethresholdcm" validate:"gt=0"`           // activity gate threshold
	TimerDurationSeconds   float64 `yaml:"timerdurationseconds" validate:"gt=0"`          // actuator hold timer
	TargetSignalsPerSecond float64 `yaml:"targetsignalspersecond" validate:"gt=0,lte=50"` // valid-cycle rate budget
	ConfidenceMargin       float64 `yaml:"confidencemargin" validate:"gte=0,lte=1"`       // below this the label becomes Uncertain
	ModelPath              string  `yaml:"modelpath"`                                     // TFLite model file
	UseXNNPACK             bool    `yaml:"usexnnpack"`                                    // enable XNNPACK delegate
}

// SpectrogramSettings are the short-time analysis constants. These must match
// the values the classifier was trained with.
type SpectrogramSettings struct {
	SampleRate   int `yaml:"samplerate" validate:"gt=0"`   // Hz
	WindowLength int `yaml:"windowlength" validate:"gt=0"` // samples per FFT segment
	Overlap      int `yaml:"overlap" validate:"gte=0"`     // samples shared between segments
	LeadTrim     int `yaml:"leadtrim" validate:"gte=0"`    // acquisition transient samples to drop
	MinWaveform  int `yaml:"minwaveform" validate:"gt=0"`  // minimum conditioned waveform length
}

// ActuatorSettings describe the SSH side channel driving the status LED.
type ActuatorSettings struct {
	Enabled        bool          `yaml:"enabled"`
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port" validate:"gte=0,lte=65535"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	OnCommand      string        `yaml:"oncommand"`
	OffCommand     string        `yaml:"offcommand"`
	CommandTimeout time.Duration `yaml:"commandtimeout" validate:"gt=0"`
}

// MQTTSettings configure the optional detection event publisher.
type MQTTSettings struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Retain   bool   `yaml:"retain"`
}

// TelemetrySettings configure the Prometheus metrics endpoint.
type TelemetrySettings struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"` // address and port, e.g. "0.0.0.0:8090"
}

// RealtimeSettings groups integrations active during a realtime run.
type RealtimeSettings struct {
	MQTT      MQTTSettings      `yaml:"mqtt"`
	Telemetry TelemetrySettings `yaml:"telemetry"`
}

// MainSettings holds application-wide options.
type MainSettings struct {
	Name     string `yaml:"name"`     // instance name used in logs and MQTT client id
	LogLevel string `yaml:"loglevel"` // trace, debug, info, warn, error
	LogPath  string `yaml:"logpath"`  // optional rotating log file
}

// Settings is the root configuration value. A worker holds an immutable
// snapshot of it; runtime changes go through the worker control surface,
// never through shared mutation.
type Settings struct {
	Debug bool `yaml:"debug"`

	Main        MainSettings        `yaml:"main"`
	Sensor      SensorSettings      `yaml:"sensor"`
	Detection   DetectionSettings   `yaml:"detection"`
	Spectrogram SpectrogramSettings `yaml:"spectrogram"`
	Actuator    ActuatorSettings    `yaml:"actuator"`
	Realtime    RealtimeSettings    `yaml:"realtime"`
}

var (
	settingsInstance *Settings
	settingsMu       sync.RWMutex
)

// Load reads the configuration from file/environment and returns validated
// settings. The last successful Load also seeds the package-level instance
// returned by Setting().
func Load() (*Settings, error) {
	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	settingsMu.Lock()
	settingsInstance = settings
	settingsMu.Unlock()
	return settings, nil
}

// Setting returns the package-level settings instance. Returns nil until a
// successful Load.
func Setting() *Settings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settingsInstance
}

func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	for _, path := range GetDefaultConfigPaths() {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("ultrasense")
	viper.AutomaticEnv()

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("fatal error reading config file: %w", err)
		}
		// No config file is fine, defaults plus flags cover a full run.
	}

	return nil
}

// GetDefaultConfigPaths returns the search path for the config file:
// current directory first, then the user config directory.
func GetDefaultConfigPaths() []string {
	paths := []string{"."}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return paths
	}
	return append(paths, filepath.Join(configDir, "ultrasense"))
}

// Save writes the current settings as YAML to the given path, creating
// parent directories as needed.
func (s *Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("error marshaling settings to yaml: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// TimerDuration returns the actuator hold time as a time.Duration.
func (d *DetectionSettings) TimerDuration() time.Duration {
	return time.Duration(d.TimerDurationSeconds * float64(time.Second))
}

// CycleBudget returns the minimum wall-clock spacing between valid cycles.
func (d *DetectionSettings) CycleBudget() time.Duration {
	return time.Duration(float64(time.Second) / d.TargetSignalsPerSecond)
}
