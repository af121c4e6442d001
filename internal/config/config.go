// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ColonelBlimp/cwkeyer/internal/cw"
	"github.com/ColonelBlimp/cwkeyer/internal/serialkey"
	"github.com/spf13/viper"
)

// MaxWPM is the highest configurable speed.
const MaxWPM = 100

const (
	AppName       = "cwkeyer"
	ConfigType    = "yaml"
	DefaultConfig = `# CW Keyer Configuration

# Timing
wpm: 13                  # Send and receive speed (1-100)
debounce_ms: 20          # Keyer settle time, must be shorter than one dot
poll_interval_ms: 1      # State machine poll period, keep well below debounce_ms
word_gap_policy: "full"  # full = word space after 7 dots, two_thirds = after ~5 dots

# Input
input_mode: "keyer"      # keyer = serial modem line, audio = tone detector
active_low: false        # Invert the key line (pulled-up keys)

# Serial keyer line
serial_port: ""          # e.g. /dev/ttyUSB0 or COM3 (see 'cwkeyer devices')
baud_rate: 9600
input_line: "cts"        # Key input: cts, dsr, dcd or ri
output_line: "rts"       # Transmitter keying: rts or dtr

# Audio input (input_mode: audio)
device_index: -1         # -1 for default capture device
sample_rate: 48000       # Audio sample rate in Hz
buffer_size: 512         # Frames per audio callback
tone_frequency: 600      # CW tone frequency in Hz
block_size: 256          # Goertzel block size (samples per detection window)
threshold: 0.4           # Detection threshold (0.0-1.0)
agc_enabled: true        # Normalize the level against a decaying peak
agc_decay: 0.95          # AGC peak decay per block (0.5-0.99999)
agc_attack: 0.5          # AGC attack rate (0.0-1.0)

# Audio output
output_tone: false       # Sound a tone while transmitting
sidetone: false          # Sound a tone while a mark is received
output_pitch: 220        # Transmit tone in Hz
sidetone_pitch: 261.63   # Receive sidetone in Hz
playback_device_index: -1

# Output
debug: false             # Enable debug logging
`
)

// Settings holds all application configuration
type Settings struct {
	// Timing
	WPM            int    `mapstructure:"wpm"`
	DebounceMS     int    `mapstructure:"debounce_ms"`
	PollIntervalMS int    `mapstructure:"poll_interval_ms"`
	WordGapPolicy  string `mapstructure:"word_gap_policy"`

	// Input
	InputMode string `mapstructure:"input_mode"`
	ActiveLow bool   `mapstructure:"active_low"`

	// Serial keyer line
	SerialPort string `mapstructure:"serial_port"`
	BaudRate   int    `mapstructure:"baud_rate"`
	InputLine  string `mapstructure:"input_line"`
	OutputLine string `mapstructure:"output_line"`

	// Audio input
	DeviceIndex   int     `mapstructure:"device_index"`
	SampleRate    float64 `mapstructure:"sample_rate"`
	BufferSize    int     `mapstructure:"buffer_size"`
	ToneFrequency float64 `mapstructure:"tone_frequency"`
	BlockSize     int     `mapstructure:"block_size"`
	Threshold     float64 `mapstructure:"threshold"`
	AGCEnabled    bool    `mapstructure:"agc_enabled"`
	AGCDecay      float64 `mapstructure:"agc_decay"`
	AGCAttack     float64 `mapstructure:"agc_attack"`

	// Audio output
	OutputTone          bool    `mapstructure:"output_tone"`
	SideTone            bool    `mapstructure:"sidetone"`
	OutputPitch         float64 `mapstructure:"output_pitch"`
	SidetonePitch       float64 `mapstructure:"sidetone_pitch"`
	PlaybackDeviceIndex int     `mapstructure:"playback_device_index"`

	// Output
	Debug bool `mapstructure:"debug"`
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/cwkeyer/
func Init() error {
	viper.SetDefault("wpm", cw.DefaultWPM)
	viper.SetDefault("debounce_ms", 20)
	viper.SetDefault("poll_interval_ms", 1)
	viper.SetDefault("word_gap_policy", "full")
	viper.SetDefault("input_mode", "keyer")
	viper.SetDefault("active_low", false)
	viper.SetDefault("serial_port", "")
	viper.SetDefault("baud_rate", 9600)
	viper.SetDefault("input_line", "cts")
	viper.SetDefault("output_line", "rts")
	viper.SetDefault("device_index", -1)
	viper.SetDefault("sample_rate", 48000)
	viper.SetDefault("buffer_size", 512)
	viper.SetDefault("tone_frequency", 600)
	viper.SetDefault("block_size", 256)
	viper.SetDefault("threshold", 0.4)
	viper.SetDefault("agc_enabled", true)
	viper.SetDefault("agc_decay", 0.95)
	viper.SetDefault("agc_attack", 0.5)
	viper.SetDefault("output_tone", false)
	viper.SetDefault("sidetone", false)
	viper.SetDefault("output_pitch", cw.DefaultOutputPitch)
	viper.SetDefault("sidetone_pitch", cw.DefaultSidePitch)
	viper.SetDefault("playback_device_index", -1)
	viper.SetDefault("debug", false)

	viper.SetConfigType(ConfigType)

	// Priority order: current directory first, then XDG config
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	// Try .config.yaml first (hidden file), then config.yaml
	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("read config: %w", err)
		}
		// No config found - create default in ~/.config/cwkeyer/
		if err = ensureConfigExists(filepath.Join(configDir, AppName)); err != nil {
			return err
		}
		if err = viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that all settings are within acceptable ranges
func (s *Settings) Validate() error {
	var errs []error

	// Timing
	if s.WPM < cw.MinWPM || s.WPM > MaxWPM {
		errs = append(errs, fmt.Errorf("wpm must be between %d and %d, got %d", cw.MinWPM, MaxWPM, s.WPM))
	} else if dot := cw.NewTimingProfile(s.WPM).Dot; s.Debounce() >= dot {
		errs = append(errs, fmt.Errorf("debounce_ms (%d) must be shorter than one dot (%v at %d wpm)", s.DebounceMS, dot, s.WPM))
	}
	if s.DebounceMS < 0 {
		errs = append(errs, fmt.Errorf("debounce_ms must not be negative, got %d", s.DebounceMS))
	}
	if s.PollIntervalMS < 1 || s.PollIntervalMS > 10 {
		errs = append(errs, fmt.Errorf("poll_interval_ms must be between 1 and 10, got %d", s.PollIntervalMS))
	}
	if _, ok := cw.ParseWordGapPolicy(s.WordGapPolicy); !ok {
		errs = append(errs, fmt.Errorf("word_gap_policy must be full or two_thirds, got %q", s.WordGapPolicy))
	}

	// Input
	if _, ok := cw.ParseInputMode(s.InputMode); !ok {
		errs = append(errs, fmt.Errorf("input_mode must be keyer or audio, got %q", s.InputMode))
	}

	// Serial keyer line
	if s.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("baud_rate must be positive, got %d", s.BaudRate))
	}
	if _, err := serialkey.ParseInputLine(s.InputLine); err != nil {
		errs = append(errs, fmt.Errorf("input_line: %w", err))
	}
	if _, err := serialkey.ParseOutputLine(s.OutputLine); err != nil {
		errs = append(errs, fmt.Errorf("output_line: %w", err))
	}

	// Audio input
	if s.DeviceIndex < -1 {
		errs = append(errs, fmt.Errorf("device_index must be -1 or a device number, got %d", s.DeviceIndex))
	}
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %v", s.SampleRate))
	}
	if s.BufferSize < 64 || s.BufferSize > 8192 {
		errs = append(errs, fmt.Errorf("buffer_size must be between 64 and 8192, got %d", s.BufferSize))
	}
	if s.BufferSize&(s.BufferSize-1) != 0 {
		errs = append(errs, fmt.Errorf("buffer_size should be a power of 2, got %d", s.BufferSize))
	}
	if s.ToneFrequency < 100 || s.ToneFrequency > 3000 {
		errs = append(errs, fmt.Errorf("tone_frequency must be between 100 and 3000 Hz, got %v", s.ToneFrequency))
	}
	if s.BlockSize < 32 || s.BlockSize > 4096 {
		errs = append(errs, fmt.Errorf("block_size must be between 32 and 4096, got %d", s.BlockSize))
	}
	if s.BlockSize&(s.BlockSize-1) != 0 {
		errs = append(errs, fmt.Errorf("block_size should be a power of 2, got %d", s.BlockSize))
	}
	if s.Threshold < 0.0 || s.Threshold > 1.0 {
		errs = append(errs, fmt.Errorf("threshold must be between 0.0 and 1.0, got %v", s.Threshold))
	}
	if s.AGCDecay < 0.5 || s.AGCDecay > 0.99999 {
		errs = append(errs, fmt.Errorf("agc_decay must be between 0.5 and 0.99999, got %v", s.AGCDecay))
	}
	if s.AGCAttack < 0.0 || s.AGCAttack > 1.0 {
		errs = append(errs, fmt.Errorf("agc_attack must be between 0.0 and 1.0, got %v", s.AGCAttack))
	}

	// Audio output
	if s.OutputPitch < 100 || s.OutputPitch > 3000 {
		errs = append(errs, fmt.Errorf("output_pitch must be between 100 and 3000 Hz, got %v", s.OutputPitch))
	}
	if s.SidetonePitch < 100 || s.SidetonePitch > 3000 {
		errs = append(errs, fmt.Errorf("sidetone_pitch must be between 100 and 3000 Hz, got %v", s.SidetonePitch))
	}
	if s.PlaybackDeviceIndex < -1 {
		errs = append(errs, fmt.Errorf("playback_device_index must be -1 or a device number, got %d", s.PlaybackDeviceIndex))
	}

	// Nyquist check: tone frequency must be less than half the sample rate
	if s.ToneFrequency >= s.SampleRate/2 {
		errs = append(errs, fmt.Errorf("tone_frequency (%v Hz) must be less than Nyquist frequency (%v Hz)", s.ToneFrequency, s.SampleRate/2))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Debounce returns debounce_ms as a duration.
func (s *Settings) Debounce() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

// PollInterval returns poll_interval_ms as a duration.
func (s *Settings) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMS) * time.Millisecond
}
