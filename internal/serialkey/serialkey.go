// internal/serialkey/serialkey.go
// Package serialkey reads a straight key or keyer paddle from a serial modem
// status line and keys a transmitter through RTS or DTR.
package serialkey

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

var (
	ErrInvalidInputLine  = errors.New("input line must be one of cts, dsr, dcd, ri")
	ErrInvalidOutputLine = errors.New("output line must be one of rts, dtr")
)

// InputLine is a modem status line sampled as the key.
type InputLine int

const (
	CTS InputLine = iota
	DSR
	DCD
	RI
)

func (l InputLine) String() string {
	switch l {
	case DSR:
		return "dsr"
	case DCD:
		return "dcd"
	case RI:
		return "ri"
	default:
		return "cts"
	}
}

// ParseInputLine parses a config value; "" selects CTS.
func ParseInputLine(s string) (InputLine, error) {
	switch strings.ToLower(s) {
	case "", "cts":
		return CTS, nil
	case "dsr":
		return DSR, nil
	case "dcd":
		return DCD, nil
	case "ri":
		return RI, nil
	}
	return CTS, fmt.Errorf("%w: %q", ErrInvalidInputLine, s)
}

// OutputLine is a modem control line driven by the encoder.
type OutputLine int

const (
	RTS OutputLine = iota
	DTR
)

func (l OutputLine) String() string {
	if l == DTR {
		return "dtr"
	}
	return "rts"
}

// ParseOutputLine parses a config value; "" selects RTS.
func ParseOutputLine(s string) (OutputLine, error) {
	switch strings.ToLower(s) {
	case "", "rts":
		return RTS, nil
	case "dtr":
		return DTR, nil
	}
	return RTS, fmt.Errorf("%w: %q", ErrInvalidOutputLine, s)
}

// Port is the part of serial.Port used for keying.
type Port interface {
	SetDTR(dtr bool) error
	SetRTS(rts bool) error
	GetModemStatusBits() (*serial.ModemStatusBits, error)
	Close() error
}

// Config selects the port and the lines used.
type Config struct {
	Port     string
	BaudRate int
	Input    InputLine
	Output   OutputLine
}

// Key samples the input line and drives the output line. It implements
// cw.SignalSource and cw.SignalSink. Line errors never stop the polling
// loop; the first one is latched and reported by Err.
type Key struct {
	port   Port
	input  InputLine
	output OutputLine

	mu  sync.Mutex
	err error
}

// Open opens the serial port and releases the output line.
func Open(cfg Config) (*Key, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Port, err)
	}

	k := New(port, cfg.Input, cfg.Output)
	k.SetOutput(false)
	if err := k.Err(); err != nil {
		_ = port.Close()
		return nil, err
	}
	return k, nil
}

// New wraps an already open port.
func New(port Port, input InputLine, output OutputLine) *Key {
	return &Key{port: port, input: input, output: output}
}

// Sample reads the input line. A failed read reports the key as up.
func (k *Key) Sample(time.Time) bool {
	bits, err := k.port.GetModemStatusBits()
	if err != nil {
		k.latch(fmt.Errorf("read %s: %w", k.input, err))
		return false
	}
	switch k.input {
	case DSR:
		return bits.DSR
	case DCD:
		return bits.DCD
	case RI:
		return bits.RI
	default:
		return bits.CTS
	}
}

// SetOutput asserts or releases the output line.
func (k *Key) SetOutput(asserted bool) {
	var err error
	if k.output == DTR {
		err = k.port.SetDTR(asserted)
	} else {
		err = k.port.SetRTS(asserted)
	}
	if err != nil {
		k.latch(fmt.Errorf("set %s: %w", k.output, err))
	}
}

// Err returns the first line error seen.
func (k *Key) Err() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.err
}

func (k *Key) latch(err error) {
	k.mu.Lock()
	if k.err == nil {
		k.err = err
	}
	k.mu.Unlock()
}

// Close releases the output line and closes the port.
func (k *Key) Close() error {
	k.SetOutput(false)
	return k.port.Close()
}

// Ports lists the serial ports present on the system.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
