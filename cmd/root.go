// cmd/root.go
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ColonelBlimp/cwkeyer/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "cwkeyer",
	Short: "CW (Morse code) keyer and decoder",
	Long: `A poll-driven Morse keyer: decodes a keyed serial line or an audio tone
into text, and keys a serial line (with optional sidetone) from text.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags (override config file)
	rootCmd.PersistentFlags().IntP("wpm", "w", 13, "send and receive speed in WPM")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().StringP("mode", "m", "keyer", "input mode: keyer or audio")
	rootCmd.PersistentFlags().StringP("port", "p", "", "serial port for the key line")

	// Bind flags to viper
	_ = viper.BindPFlag("wpm", rootCmd.PersistentFlags().Lookup("wpm"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("input_mode", rootCmd.PersistentFlags().Lookup("mode"))
	_ = viper.BindPFlag("serial_port", rootCmd.PersistentFlags().Lookup("port"))
}

func initConfig() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(os.Stderr, viper.GetBool("debug")))
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadSettings re-binds the persistent flags, which viper.Reset in tests
// would otherwise drop, and returns validated settings.
func loadSettings() (*config.Settings, error) {
	flags := rootCmd.PersistentFlags()
	for key, flag := range map[string]string{
		"wpm":         "wpm",
		"debug":       "debug",
		"input_mode":  "mode",
		"serial_port": "port",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return config.Get()
}
