// cmd/decode.go
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ColonelBlimp/cwkeyer/internal/cli/rig"
	"github.com/ColonelBlimp/cwkeyer/internal/cw"
	"github.com/ColonelBlimp/cwkeyer/internal/station"
	"github.com/spf13/cobra"
)

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode Morse from the key line or audio input",
	Long: `Decode Morse from the serial key line (keyer mode) or from a tone on the
audio input (audio mode) and print the text until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := rig.Open(ctx, s, rig.Receive, slog.Default())
	if err != nil {
		return fmt.Errorf("open rig: %w", err)
	}
	defer r.Close()

	dec, err := cw.NewDecoder(rig.DecoderConfig(s), cw.ITU, r.Speaker)
	if err != nil {
		return err
	}
	st, err := station.New(station.Options{
		Decoder: dec,
		Source:  r.Source,
		Output:  cmd.OutOrStdout(),
		Logger:  slog.Default(),
	})
	if err != nil {
		return err
	}

	slog.Info("decoding", "mode", s.InputMode, "wpm", dec.Speed())
	if err := <-st.Start(ctx, s.PollInterval()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return lineError(r)
}

// lineError reports a serial line failure seen while running.
func lineError(r *rig.Rig) error {
	if err := r.Err(); err != nil {
		return fmt.Errorf("key line: %w", err)
	}
	return nil
}

