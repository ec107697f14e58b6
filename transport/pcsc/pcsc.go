// Package pcsc implements apdu.Transport over a physical PC/SC reader via
// github.com/ebfe/scard, the way the teacher's card package drives SIM
// readers: establish a context, connect by reader index, and relay
// whole command/response APDUs.
package pcsc

import (
	"fmt"

	"github.com/ebfe/scard"

	"emrtdcore/apdu"
)

// Transport is a PC/SC reader connection satisfying apdu.Transport.
type Transport struct {
	ctx  *scard.Context
	card *scard.Card
	name string
	atr  []byte
}

var _ apdu.Transport = (*Transport)(nil)

// ListReaders returns the names of every PC/SC reader currently attached.
func ListReaders() ([]string, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("pcsc: establish context: %w", err)
	}
	defer ctx.Release()

	readers, err := ctx.ListReaders()
	if err != nil {
		return nil, fmt.Errorf("pcsc: list readers: %w", err)
	}
	return readers, nil
}

// Connect opens a reader by index (as reported by ListReaders) and waits
// for whatever card is already inserted.
func Connect(readerIndex int) (*Transport, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("pcsc: establish context: %w", err)
	}

	readers, err := ctx.ListReaders()
	if err != nil {
		ctx.Release()
		return nil, fmt.Errorf("pcsc: list readers: %w", err)
	}
	if len(readers) == 0 {
		ctx.Release()
		return nil, fmt.Errorf("pcsc: no smart card readers found")
	}
	if readerIndex < 0 || readerIndex >= len(readers) {
		ctx.Release()
		return nil, fmt.Errorf("pcsc: reader index %d out of range (0-%d)", readerIndex, len(readers)-1)
	}

	name := readers[readerIndex]
	card, err := ctx.Connect(name, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		ctx.Release()
		return nil, fmt.Errorf("pcsc: connect to card in reader %q: %w", name, err)
	}

	status, err := card.Status()
	if err != nil {
		card.Disconnect(scard.LeaveCard)
		ctx.Release()
		return nil, fmt.Errorf("pcsc: card status: %w", err)
	}

	return &Transport{ctx: ctx, card: card, name: name, atr: status.Atr}, nil
}

// ConnectByName connects to the first reader whose name contains substr,
// for the config package's reader-selection-by-substring knob.
func ConnectByName(substr string) (*Transport, error) {
	readers, err := ListReaders()
	if err != nil {
		return nil, err
	}
	for i, name := range readers {
		if containsFold(name, substr) {
			return Connect(i)
		}
	}
	return nil, fmt.Errorf("pcsc: no reader matching %q", substr)
}

func containsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	sl, subl := []rune(lower(s)), []rune(lower(substr))
	if len(subl) > len(sl) {
		return false
	}
	for i := 0; i+len(subl) <= len(sl); i++ {
		match := true
		for j := range subl {
			if sl[i+j] != subl[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func lower(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r >= 'A' && r <= 'Z' {
			out[i] = r + ('a' - 'A')
		}
	}
	return string(out)
}

// Transmit sends a whole command APDU and splits the trailing two status
// bytes from the response data, satisfying apdu.Transport.
func (t *Transport) Transmit(cmd []byte) ([]byte, byte, byte, error) {
	resp, err := t.card.Transmit(cmd)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("pcsc: transmit failed: %w", err)
	}
	if len(resp) < 2 {
		return nil, 0, 0, fmt.Errorf("pcsc: response too short (%d bytes)", len(resp))
	}
	n := len(resp) - 2
	return resp[:n], resp[n], resp[n+1], nil
}

// Reconnect resets the card, preferring a warm reset and falling back to
// cold; some readers reject one or the other.
func (t *Transport) Reconnect() error {
	if err := t.card.Reconnect(scard.ShareShared, scard.ProtocolAny, scard.ResetCard); err != nil {
		if err2 := t.card.Reconnect(scard.ShareShared, scard.ProtocolAny, scard.UnpowerCard); err2 != nil {
			return fmt.Errorf("pcsc: reconnect failed (warm: %v, cold: %w)", err, err2)
		}
	}
	status, err := t.card.Status()
	if err == nil {
		t.atr = status.Atr
	}
	return nil
}

// Close disconnects the card and releases the PC/SC context.
func (t *Transport) Close() error {
	if t.card != nil {
		t.card.Disconnect(scard.LeaveCard)
	}
	if t.ctx != nil {
		t.ctx.Release()
	}
	return nil
}

// Name returns the reader name this transport is bound to.
func (t *Transport) Name() string { return t.name }

// ATR returns the card's Answer To Reset bytes.
func (t *Transport) ATR() []byte { return t.atr }

// ATRHex returns the ATR rendered as uppercase hex.
func (t *Transport) ATRHex() string { return fmt.Sprintf("%X", t.atr) }
