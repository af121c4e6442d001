// cmd/loopback.go
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ColonelBlimp/cwkeyer/internal/cli/rig"
	"github.com/ColonelBlimp/cwkeyer/internal/cw"
	"github.com/ColonelBlimp/cwkeyer/internal/station"
	"github.com/spf13/cobra"
)

var loopbackCmd = &cobra.Command{
	Use:   "loopback text...",
	Short: "Encode text and decode it again in software",
	Long: `Key text through the encoder and feed its output line straight back into
the decoder at the configured speed, then print what was decoded. No serial
port or audio input is used; sidetone and output tone still sound when
enabled.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLoopback,
}

func init() {
	rootCmd.AddCommand(loopbackCmd)
}

func runLoopback(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := rig.Open(ctx, s, rig.Loopback, slog.Default())
	if err != nil {
		return fmt.Errorf("open rig: %w", err)
	}
	defer r.Close()

	enc, err := cw.NewEncoder(rig.EncoderConfig(s), cw.ITU, r.Sink, r.Speaker)
	if err != nil {
		return err
	}
	// keyed by software, never bounces
	dcfg := rig.DecoderConfig(s)
	dcfg.Mode = cw.ModeKeyer
	dcfg.ActiveLow = false
	dec, err := cw.NewDecoder(dcfg, cw.ITU, r.Speaker)
	if err != nil {
		return err
	}

	var out strings.Builder
	st, err := station.New(station.Options{
		Decoder: dec,
		Encoder: enc,
		Source:  r.Source,
		Sink:    r.Sink,
		Output:  &out,
		Logger:  slog.Default(),
	})
	if err != nil {
		return err
	}

	text := strings.Join(args, " ")
	settle := 2*enc.Timing().Dash + s.Debounce()
	if err := transmit(ctx, st, s.PollInterval(), text, settle); err != nil {
		return err
	}

	decoded := strings.TrimRight(out.String(), " ")
	fmt.Fprintln(cmd.OutOrStdout(), decoded)
	if dec.Overruns() > 0 {
		slog.Warn("characters lost", "overruns", dec.Overruns())
	}
	return nil
}
