// cmd/send.go
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ColonelBlimp/cwkeyer/internal/cli/rig"
	"github.com/ColonelBlimp/cwkeyer/internal/config"
	"github.com/ColonelBlimp/cwkeyer/internal/cw"
	"github.com/ColonelBlimp/cwkeyer/internal/station"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Keys that end an interactive session.
const (
	keyCtrlC  = 0x03
	keyCtrlD  = 0x04
	keyEscape = 0x1b
)

// Keys that change speed during an interactive session.
const (
	keyFaster = 0x06 // Ctrl-F
	keySlower = 0x02 // Ctrl-B
	speedStep = 2
)

var sendCmd = &cobra.Command{
	Use:   "send [text...]",
	Short: "Key text as Morse on the output line",
	Long: `Key text as Morse on the serial output line (and the output tone when
enabled). Text comes from the arguments, or from stdin. When stdin is a
terminal, each keystroke is sent as it is typed; Ctrl-F and Ctrl-B change
the speed and Ctrl-D or Esc ends.`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := rig.Open(ctx, s, rig.Transmit, slog.Default())
	if err != nil {
		return fmt.Errorf("open rig: %w", err)
	}
	defer r.Close()

	enc, err := cw.NewEncoder(rig.EncoderConfig(s), cw.ITU, r.Sink, r.Speaker)
	if err != nil {
		return err
	}
	st, err := station.New(station.Options{Encoder: enc, Sink: r.Sink, Logger: slog.Default()})
	if err != nil {
		return err
	}

	switch {
	case len(args) > 0:
		err = transmit(ctx, st, s.PollInterval(), strings.Join(args, " "), 0)
	case isTerminal(os.Stdin):
		err = sendInteractive(ctx, st, s.PollInterval(), s.WPM, os.Stdin, cmd.OutOrStdout())
	default:
		var text string
		text, err = readText(cmd.InOrStdin())
		if err == nil {
			err = transmit(ctx, st, s.PollInterval(), text, 0)
		}
	}
	if err != nil {
		return err
	}
	return lineError(r)
}

// transmit sends text and returns once it has been keyed and settle has
// passed. An interrupt stops early without error.
func transmit(ctx context.Context, st *station.Station, interval time.Duration, text string, settle time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := st.Start(ctx, interval)
	st.Send(text)

	idle := make(chan error, 1)
	go func() { idle <- st.WaitIdle(ctx) }()

	select {
	case err := <-done:
		return err
	case err := <-idle:
		if err == nil && settle > 0 {
			select {
			case <-time.After(settle):
			case <-ctx.Done():
			}
		}
	}
	cancel()
	return <-done
}

// readText joins stdin lines with word spaces.
func readText(r io.Reader) (string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			words = append(words, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.Join(words, " "), nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// sendInteractive puts the terminal in raw mode and sends keystrokes.
func sendInteractive(ctx context.Context, st *station.Station, interval time.Duration, wpm int, in *os.File, echo io.Writer) error {
	fd := int(in.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("raw terminal: %w", err)
	}
	defer func() { _ = term.Restore(fd, state) }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := st.Start(ctx, interval)

	_, _ = fmt.Fprintf(echo, "Type to send at %d wpm, Ctrl-F/Ctrl-B to change speed, Ctrl-D or Esc to finish.\r\n", wpm)
	keys := make(chan byte)
	go func() {
		defer close(keys)
		buf := make([]byte, 1)
		for {
			if n, err := in.Read(buf); err != nil || n == 0 {
				return
			}
			select {
			case keys <- buf[0]:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return <-done
		case k, ok := <-keys:
			if !ok || k == keyCtrlC || k == keyCtrlD || k == keyEscape {
				_, _ = fmt.Fprint(echo, "\r\n")
				_ = st.WaitIdle(ctx)
				cancel()
				return <-done
			}
			if next, ok := speedKey(k, wpm); ok {
				if next != wpm {
					wpm = next
					st.SetSpeed(wpm)
					_, _ = fmt.Fprintf(echo, "[%d wpm]", wpm)
				}
				continue
			}
			if k == '\r' || k == '\n' {
				k = ' '
				_, _ = fmt.Fprint(echo, "\r\n")
			} else {
				_, _ = fmt.Fprintf(echo, "%c", k)
			}
			st.Send(string(k))
		}
	}
}

// speedKey returns the speed selected by k, kept within the configurable
// range, and whether k is a speed key at all.
func speedKey(k byte, wpm int) (int, bool) {
	switch k {
	case keyFaster:
		return min(wpm+speedStep, config.MaxWPM), true
	case keySlower:
		return max(wpm-speedStep, cw.MinWPM), true
	}
	return wpm, false
}
