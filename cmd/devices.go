// cmd/devices.go
package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/ColonelBlimp/cwkeyer/internal/cli/rig"
	"github.com/ColonelBlimp/cwkeyer/internal/serialkey"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio devices and serial ports",
	Long: `List audio capture and playback devices (use the index for device_index
and playback_device_index) and the serial ports available for serial_port.`,
	Args: cobra.NoArgs,
	RunE: runDevices,
}

// swappable in tests
var (
	listAudioDevices = rig.ListAudioDevices
	listSerialPorts  = serialkey.Ports
)

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	found := false

	capture, playback, err := listAudioDevices()
	if err != nil {
		slog.Warn("audio devices unavailable", "err", err)
	} else {
		found = true
		printDevices(w, "Capture devices", capture)
		printDevices(w, "Playback devices", playback)
	}

	ports, perr := listSerialPorts()
	if perr != nil {
		slog.Warn("serial ports unavailable", "err", perr)
	} else {
		found = true
		printDevices(w, "Serial ports", ports)
	}

	if !found {
		return fmt.Errorf("no devices could be listed: audio: %v; serial: %v", err, perr)
	}
	return nil
}

func printDevices(w io.Writer, title string, names []string) {
	fmt.Fprintf(w, "%s:\n", title)
	if len(names) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for i, name := range names {
		fmt.Fprintf(w, "  [%d] %s\n", i, name)
	}
}
