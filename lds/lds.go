// Package lds implements the ICAO 9303 LDS1 file-selection and reading
// conventions (spec §4.7): SELECT by file identifier and READ BINARY with
// adaptive chunk sizing, driven through whatever APDU sender the caller
// has on hand — a bare Transport before any security protocol has run, or
// a secure channel's Send once one has.
package lds

import (
	"fmt"

	"emrtdcore/apdu"
	"emrtdcore/asn1"
)

// Sender transmits one command APDU and returns its decoded response; it
// is satisfied by a plain func(cmd) { return apdu.Send(t, cmd) } closure
// or by (*securechannel.Channel).Send bound to its transport, so the
// reader never needs to know whether a secure channel is active.
type Sender func(cmd apdu.Command) (apdu.Response, error)

// DefaultChunkSize is the READ BINARY length the reader starts with;
// some chips reject larger reads with SW=6Cxx ("wrong length"), at which
// point the reader falls back to this size permanently.
const DefaultChunkSize = 160

// AID is the eMRTD application identifier.
var AID = apdu.AID

// EFCardAccess is EF.CardAccess's short identifier (lives outside the
// eMRTD application, read before PACE).
var EFCardAccess = [2]byte{0x01, 0x1C}

// Reader selects and reads LDS files over a Sender.
type Reader struct {
	send      Sender
	chunkSize int

	// OnChunk, when set, is invoked after every successful READ BINARY
	// with the bytes accumulated so far and the file's total declared
	// length, driving the orchestrator's on_dg_progress callback (spec
	// §6). Left nil, reads proceed exactly as before.
	OnChunk func(readBytes, totalBytes int)
}

// New creates a Reader; chunk is the initial READ BINARY length (use
// DefaultChunkSize unless a specific transport is known to tolerate more).
func New(send Sender, chunk int) *Reader {
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	return &Reader{send: send, chunkSize: chunk}
}

// SelectMasterFile selects the master file — required before
// EF.CardAccess, since the default applet after discovery is already the
// passport application.
func (r *Reader) SelectMasterFile() error {
	return r.selectAndCheck(apdu.SelectMasterFile())
}

// SelectApplication selects the eMRTD application by AID.
func (r *Reader) SelectApplication() error {
	return r.selectAndCheck(apdu.SelectApplication())
}

// SelectEF selects an elementary file by its 2-byte identifier.
func (r *Reader) SelectEF(efID [2]byte) error {
	return r.selectAndCheck(apdu.SelectEF(efID))
}

func (r *Reader) selectAndCheck(cmd apdu.Command) error {
	resp, err := r.send(cmd)
	if err != nil {
		return err
	}
	return apdu.DecodeStatusWord(resp.SW1, resp.SW2)
}

// ReadCardAccess selects the master file, then EF.CardAccess, and reads
// it whole (spec §4.7).
func (r *Reader) ReadCardAccess() ([]byte, error) {
	if err := r.SelectMasterFile(); err != nil {
		return nil, err
	}
	if err := r.SelectEF(EFCardAccess); err != nil {
		return nil, err
	}
	return r.readWhole()
}

// ReadFile selects efID within the currently selected application and
// reads it whole.
func (r *Reader) ReadFile(efID [2]byte) ([]byte, error) {
	if err := r.SelectEF(efID); err != nil {
		return nil, err
	}
	return r.readWhole()
}

// readWhole implements the §4.7 incremental read: a 4-byte probe to learn
// the top-level TLV's total length, then READ BINARY calls advancing by
// however many bytes the chip actually returned, until the declared
// length is satisfied.
func (r *Reader) readWhole() ([]byte, error) {
	header, err := r.readChunk(0, 4)
	if err != nil {
		return nil, err
	}
	if len(header) == 0 {
		return nil, nil
	}

	headerLen, contentLen, err := asn1.HeaderLength(header)
	if err != nil {
		return nil, apdu.WrapErr(apdu.KindStructural, "unexpected-asn1-structure", err)
	}
	total := headerLen + contentLen
	if total <= len(header) {
		r.reportProgress(total, total)
		return header[:total], nil
	}

	buf := append([]byte(nil), header...)
	r.reportProgress(len(buf), total)
	for len(buf) < total {
		want := total - len(buf)
		if want > r.chunkSize {
			want = r.chunkSize
		}
		data, err := r.readChunk(uint16(len(buf)), want)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, apdu.WrapErr(apdu.KindAPDU, "truncated-read", fmt.Errorf("lds: chip returned no data at offset %d of %d", len(buf), total))
		}
		buf = append(buf, data...)
		r.reportProgress(len(buf), total)
	}
	return buf[:total], nil
}

func (r *Reader) reportProgress(read, total int) {
	if r.OnChunk != nil {
		r.OnChunk(read, total)
	}
}

// readChunk issues one READ BINARY, retrying at the chip's declared exact
// length on SW=6Cxx and permanently shrinking future chunk sizes to
// DefaultChunkSize when that happens (spec §4.7).
func (r *Reader) readChunk(offset uint16, n int) ([]byte, error) {
	resp, err := r.send(apdu.ReadBinary(offset, n))
	if err != nil {
		return nil, err
	}
	if resp.SW1 == 0x6C {
		exact := int(resp.SW2)
		if r.chunkSize > DefaultChunkSize {
			r.chunkSize = DefaultChunkSize
		}
		resp, err = r.send(apdu.ReadBinary(offset, exact))
		if err != nil {
			return nil, err
		}
	}
	if err := apdu.DecodeStatusWord(resp.SW1, resp.SW2); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
