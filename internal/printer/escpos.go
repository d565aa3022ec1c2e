package printer

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"
)

// ESC/POS control sequences.
var (
	escInit = []byte{0x1b, 0x40}             // ESC @
	escFeed = []byte{0x1b, 0x64, 0x04}       // ESC d 4
	escCut  = []byte{0x1d, 0x56, 0x42, 0x00} // GS V 66 0, feed then partial cut
)

// Frame wraps an already encoded document in ESC/POS initialisation, code
// page selection, trailing feed and cut.
func Frame(body []byte, charset string) []byte {
	var b bytes.Buffer
	b.Write(escInit)
	if t, ok := codeTable(charset); ok {
		b.Write([]byte{0x1b, 0x74, t}) // ESC t n
	}
	b.Write(body)
	b.Write(escFeed)
	b.Write(escCut)
	return b.Bytes()
}

// Raw streams ESC/POS bytes to a network printer (usually port 9100).
type Raw struct {
	address string
	charset string
	dialer  net.Dialer
}

// NewRaw returns a Raw transport for host:port.
func NewRaw(address, charset string) *Raw {
	return &Raw{address: address, charset: charset}
}

// Submit dials the printer, writes the framed document and closes the
// connection. Deadlines follow ctx.
func (r *Raw) Submit(ctx context.Context, doc []byte) error {
	body, err := Encode(doc, r.charset)
	if err != nil {
		return err
	}
	conn, err := r.dialer.DialContext(ctx, "tcp", r.address)
	if err != nil {
		return fmt.Errorf("dial printer %s: %w", r.address, err)
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(dl)
	} else {
		_ = conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
	}
	if _, err := conn.Write(Frame(body, r.charset)); err != nil {
		return fmt.Errorf("write to printer %s: %w", r.address, err)
	}
	return nil
}
