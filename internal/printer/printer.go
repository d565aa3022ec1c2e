// Package printer holds the transports that push a rendered ticket to the
// physical device. The dispatcher only sees the Printer interface.
package printer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Printer accepts one rendered document at a time. Implementations must
// honour ctx cancellation so that a stalled device fails the submission.
type Printer interface {
	Submit(ctx context.Context, doc []byte) error
}

// Kinds of transport selectable from configuration.
const (
	KindSpooler = "spooler"
	KindRaw     = "raw"
	KindFile    = "file"
)

// ErrUnknownKind is returned by New for an unsupported transport kind.
var ErrUnknownKind = errors.New("unknown printer kind")

// Config selects and parameterises a transport.
type Config struct {
	Kind    string   `yaml:"kind"`
	Name    string   `yaml:"name"`    // spooler queue name
	Command []string `yaml:"command"` // spooler command, supports {printer} and {file}
	TempDir string   `yaml:"temp_dir"`
	Address string   `yaml:"address"` // host:port for raw ESC/POS
	Path    string   `yaml:"path"`    // file sink, "-" for stdout
	Charset string   `yaml:"charset"`
}

// New builds the transport named by cfg.Kind.
func New(cfg Config) (Printer, error) {
	switch strings.ToLower(cfg.Kind) {
	case KindSpooler, "":
		return NewSpooler(cfg.Name, cfg.Command, cfg.TempDir, cfg.Charset), nil
	case KindRaw:
		if cfg.Address == "" {
			return nil, fmt.Errorf("raw printer: address is required")
		}
		return NewRaw(cfg.Address, cfg.Charset), nil
	case KindFile:
		if cfg.Path == "" || cfg.Path == "-" {
			return NewWriterSink(os.Stdout, cfg.Charset), nil
		}
		return NewFileSink(cfg.Path, cfg.Charset), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}
