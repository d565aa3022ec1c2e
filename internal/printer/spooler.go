package printer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultSpoolCommand prints a file through CUPS.
var DefaultSpoolCommand = []string{"lp", "-d", "{printer}", "{file}"}

// DefaultSpoolWaitDelay bounds how long Submit waits for a killed spool
// command's children to release its output.
const DefaultSpoolWaitDelay = 2 * time.Second

// Spooler hands each document to the operating system's print spooler by
// writing it to a temporary file and running a command on it.
type Spooler struct {
	printerName string
	command     []string
	tempDir     string
	charset     string
	waitDelay   time.Duration
}

// NewSpooler returns a Spooler. An empty command uses DefaultSpoolCommand.
func NewSpooler(printerName string, command []string, tempDir, charset string) *Spooler {
	if len(command) == 0 {
		command = DefaultSpoolCommand
	}
	return &Spooler{
		printerName: printerName,
		command:     command,
		tempDir:     tempDir,
		charset:     charset,
		waitDelay:   DefaultSpoolWaitDelay,
	}
}

// Submit writes doc to a temp file, runs the spool command and removes the
// file. The command is killed when ctx is done.
func (s *Spooler) Submit(ctx context.Context, doc []byte) error {
	data, err := Encode(doc, s.charset)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(s.tempDir, "ticket_*.txt")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	args := s.expand(path)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.WaitDelay = s.waitDelay
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("spool %s: %w", args[0], ctx.Err())
		}
		return fmt.Errorf("spool %s: %w: %s", args[0], err, strings.TrimSpace(out.String()))
	}
	return nil
}

func (s *Spooler) expand(path string) []string {
	r := strings.NewReplacer("{printer}", s.printerName, "{file}", path)
	args := make([]string, len(s.command))
	for i, a := range s.command {
		args[i] = r.Replace(a)
	}
	return args
}
