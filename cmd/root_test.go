package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ColonelBlimp/cwkeyer/internal/config"
	"github.com/ColonelBlimp/cwkeyer/internal/cw"
	"github.com/spf13/viper"
)

func resetViperForTest() {
	viper.Reset()
}

// setupConfig points the config search at a temp HOME holding content.
func setupConfig(t *testing.T, content string) {
	t.Helper()
	resetViperForTest()

	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", "")
	configDir := filepath.Join(tmpDir, ".config", config.AppName)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	origDir, _ := os.Getwd()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(origDir); err != nil {
			t.Logf("failed to restore dir: %v", err)
		}
	})
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestRootCmd_HasExpectedFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()

	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"wpm", "w", "13"},
		{"debug", "D", "false"},
		{"mode", "m", "keyer"},
		{"port", "p", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := flags.Lookup(tt.name)
			if flag == nil {
				t.Fatalf("flag %q not found", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("flag %q shorthand = %q, want %q", tt.name, flag.Shorthand, tt.shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("flag %q default = %q, want %q", tt.name, flag.DefValue, tt.defValue)
			}
			if flag.Usage == "" {
				t.Errorf("flag %q has no description", tt.name)
			}
		})
	}
}

func TestRootCmd_Properties(t *testing.T) {
	if rootCmd.Use != "cwkeyer" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "cwkeyer")
	}
	if rootCmd.Short == "" {
		t.Error("rootCmd.Short is empty")
	}
	if rootCmd.Long == "" {
		t.Error("rootCmd.Long is empty")
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	for _, name := range []string{"decode", "send", "loopback", "devices", "table"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := rootCmd.Find([]string{name})
			if err != nil || sub.Name() != name {
				t.Errorf("subcommand %q not registered (err = %v)", name, err)
				return
			}
			if sub.Short == "" {
				t.Errorf("subcommand %q has no short description", name)
			}
		})
	}
}

func TestRootCmd_HelpOutput(t *testing.T) {
	setupConfig(t, "wpm: 13")

	output, err := execute(t, "--help")
	if err != nil {
		t.Fatalf("Execute() with --help error = %v", err)
	}
	for _, want := range []string{"cwkeyer", "--wpm", "decode", "loopback"} {
		if !strings.Contains(output, want) {
			t.Errorf("help output should contain %q", want)
		}
	}
}

func TestInitConfig(t *testing.T) {
	setupConfig(t, "wpm: 20")

	initConfig()

	if viper.GetInt("wpm") != 20 {
		t.Errorf("viper.GetInt(wpm) = %d, want 20", viper.GetInt("wpm"))
	}
}

func TestNewLogger_Level(t *testing.T) {
	ctx := context.Background()
	if newLogger(&bytes.Buffer{}, false).Enabled(ctx, -4) {
		t.Error("debug enabled without --debug")
	}
	if !newLogger(&bytes.Buffer{}, true).Enabled(ctx, -4) {
		t.Error("debug disabled with --debug")
	}
}

func TestTableCmd(t *testing.T) {
	setupConfig(t, "wpm: 13")

	output, err := execute(t, "table")
	if err != nil {
		t.Fatalf("Execute(table) error = %v", err)
	}

	for _, want := range []string{"  1  E  .\n", "  2  T  -\n", " 75  ?  ..--..\n", " 62  0  -----\n"} {
		if !strings.Contains(output, want) {
			t.Errorf("table output missing %q", want)
		}
	}
	if strings.Contains(output, "*") {
		t.Error("table output lists unassigned nodes without --all")
	}
}

func TestPrintTable_All(t *testing.T) {
	var buf bytes.Buffer
	printTable(&buf, cw.ITU, true)

	lines := strings.Count(buf.String(), "\n")
	if lines != cw.ITU.Len()-2 {
		t.Errorf("printTable(all) printed %d lines, want %d", lines, cw.ITU.Len()-2)
	}
	if !strings.Contains(buf.String(), " 18  *  ..--\n") {
		t.Error("printTable(all) missing wildcard node 18")
	}
}

func TestLoopbackCmd(t *testing.T) {
	setupConfig(t, "wpm: 20\ndebounce_ms: 10")

	output, err := execute(t, "loopback", "E")
	if err != nil {
		t.Fatalf("Execute(loopback) error = %v", err)
	}
	if output != "E\n" {
		t.Errorf("loopback output = %q, want %q", output, "E\n")
	}
}

func TestLoopbackCmd_NeedsText(t *testing.T) {
	setupConfig(t, "wpm: 13")

	if _, err := execute(t, "loopback"); err == nil {
		t.Error("loopback without text should fail")
	}
}

func TestSendCmd_NoSerialPort(t *testing.T) {
	setupConfig(t, "wpm: 13\nserial_port: \"\"")

	_, err := execute(t, "send", "CQ")
	if err == nil || !strings.Contains(err.Error(), "serial_port") {
		t.Errorf("send without a port error = %v, want serial_port error", err)
	}
}

func TestDecodeCmd_InvalidConfig(t *testing.T) {
	setupConfig(t, "threshold: 2.0")

	_, err := execute(t, "decode")
	if err == nil {
		t.Fatal("expected error for invalid config, got nil")
	}
	if !strings.Contains(err.Error(), "config") {
		t.Errorf("expected config error, got: %v", err)
	}
}

func TestDevicesCmd(t *testing.T) {
	setupConfig(t, "wpm: 13")
	prevAudio, prevSerial := listAudioDevices, listSerialPorts
	t.Cleanup(func() { listAudioDevices, listSerialPorts = prevAudio, prevSerial })

	listAudioDevices = func() ([]string, []string, error) {
		return []string{"USB Audio"}, nil, nil
	}
	listSerialPorts = func() ([]string, error) {
		return []string{"/dev/ttyUSB0", "/dev/ttyS0"}, nil
	}

	output, err := execute(t, "devices")
	if err != nil {
		t.Fatalf("Execute(devices) error = %v", err)
	}
	for _, want := range []string{"Capture devices:\n  [0] USB Audio\n", "Playback devices:\n  (none)\n", "  [1] /dev/ttyS0\n"} {
		if !strings.Contains(output, want) {
			t.Errorf("devices output missing %q, got:\n%s", want, output)
		}
	}
}

func TestDevicesCmd_NothingListed(t *testing.T) {
	setupConfig(t, "wpm: 13")
	prevAudio, prevSerial := listAudioDevices, listSerialPorts
	t.Cleanup(func() { listAudioDevices, listSerialPorts = prevAudio, prevSerial })

	listAudioDevices = func() ([]string, []string, error) { return nil, nil, errors.New("no backend") }
	listSerialPorts = func() ([]string, error) { return nil, errors.New("no sysfs") }

	if _, err := execute(t, "devices"); err == nil {
		t.Error("devices with nothing listable should fail")
	}
}

func TestReadText(t *testing.T) {
	got, err := readText(strings.NewReader("cq cq\n\n  de k1abc  \n"))
	if err != nil {
		t.Fatalf("readText() error = %v", err)
	}
	if got != "cq cq de k1abc" {
		t.Errorf("readText() = %q, want %q", got, "cq cq de k1abc")
	}
}

func TestSpeedKey(t *testing.T) {
	tests := []struct {
		name   string
		key    byte
		wpm    int
		want   int
		wantOK bool
	}{
		{"faster", keyFaster, 13, 15, true},
		{"slower", keySlower, 13, 11, true},
		{"faster at max", keyFaster, config.MaxWPM - 1, config.MaxWPM, true},
		{"slower at min", keySlower, cw.MinWPM, cw.MinWPM, true},
		{"ordinary key", 'E', 13, 13, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := speedKey(tt.key, tt.wpm)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("speedKey(%#x, %d) = %d, %v, want %d, %v", tt.key, tt.wpm, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
