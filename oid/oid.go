// Package oid implements the ASN.1 OBJECT IDENTIFIER value used throughout
// the ICAO 9303 / BSI TR-03110 protocol stack to select algorithms and
// protocol variants.
package oid

import (
	"fmt"
	"strconv"
	"strings"
)

// OID is an ordered sequence of non-negative integer components, e.g.
// {0 4 0 127 0 7 2 2 4 2 2} for id-PACE-DH-GM-AES-CBC-CMAC-128.
//
// New, Parse and Append keep the components exactly as given; a leading
// zero component is not elided (the BSI arc above keeps its leading 0).
type OID struct {
	components []uint32
}

// New builds an OID from its components.
func New(components ...uint32) OID {
	return OID{components: append([]uint32(nil), components...)}
}

// Parse builds an OID from a dotted-decimal string such as "2.23.136.1.1.1".
func Parse(s string) (OID, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) == 0 || (len(parts) == 1 && parts[0] == "") {
		return OID{}, fmt.Errorf("oid: empty dotted string")
	}
	comps := make([]uint32, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return OID{}, fmt.Errorf("oid: invalid component %q: %w", p, err)
		}
		comps = append(comps, uint32(n))
	}
	return OID{components: comps}, nil
}

// Components returns a copy of the OID's components.
func (o OID) Components() []uint32 {
	return append([]uint32(nil), o.components...)
}

// Append returns a new OID with the given components appended; the
// existing components are copied unchanged.
func (o OID) Append(components ...uint32) OID {
	return OID{components: append(append([]uint32(nil), o.components...), components...)}
}

// Equal reports whether two OIDs have identical components.
func (o OID) Equal(other OID) bool {
	if len(o.components) != len(other.components) {
		return false
	}
	for i := range o.components {
		if o.components[i] != other.components[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix's components are a prefix of o's
// components (a zero-length prefix is trivially a prefix of everything).
func (o OID) HasPrefix(prefix OID) bool {
	if len(prefix.components) > len(o.components) {
		return false
	}
	for i := range prefix.components {
		if o.components[i] != prefix.components[i] {
			return false
		}
	}
	return true
}

// String renders the OID in dotted-decimal form.
func (o OID) String() string {
	parts := make([]string, len(o.components))
	for i, c := range o.components {
		parts[i] = strconv.FormatUint(uint64(c), 10)
	}
	return strings.Join(parts, ".")
}

// Bytes encodes the OID as an ASN.1 BER/DER content octet string (without
// the OBJECT IDENTIFIER tag/length header): the first two components are
// combined into a single byte (40*X+Y), each subsequent component is
// base-128 encoded with the continuation bit set on all but the last byte.
func (o OID) Bytes() ([]byte, error) {
	if len(o.components) < 2 {
		return nil, fmt.Errorf("oid: need at least two components to encode, got %d", len(o.components))
	}
	if o.components[0] > 2 || (o.components[0] < 2 && o.components[1] >= 40) {
		return nil, fmt.Errorf("oid: invalid first two components %d.%d", o.components[0], o.components[1])
	}

	out := []byte{byte(40*o.components[0] + o.components[1])}
	for _, c := range o.components[2:] {
		out = append(out, encodeBase128(c)...)
	}
	return out, nil
}

func encodeBase128(v uint32) []byte {
	if v == 0 {
		return []byte{0}
	}
	var rev []byte
	for v > 0 {
		rev = append(rev, byte(v&0x7F))
		v >>= 7
	}
	out := make([]byte, len(rev))
	for i, b := range rev {
		out[len(rev)-1-i] = b
	}
	for i := 0; i < len(out)-1; i++ {
		out[i] |= 0x80
	}
	return out
}

// Decode parses the ASN.1 BER/DER content octets of an OBJECT IDENTIFIER
// value (as produced by Bytes, i.e. without the tag/length header) back
// into an OID.
func Decode(content []byte) (OID, error) {
	if len(content) == 0 {
		return OID{}, fmt.Errorf("oid: empty content")
	}
	first := content[0]
	var x, y uint32
	if first < 40 {
		x, y = 0, uint32(first)
	} else if first < 80 {
		x, y = 1, uint32(first)-40
	} else {
		x, y = 2, uint32(first)-80
	}
	comps := []uint32{x, y}

	var cur uint32
	haveByte := false
	for _, b := range content[1:] {
		cur = (cur << 7) | uint32(b&0x7F)
		haveByte = true
		if b&0x80 == 0 {
			comps = append(comps, cur)
			cur = 0
			haveByte = false
		}
	}
	if haveByte {
		return OID{}, fmt.Errorf("oid: truncated base-128 component")
	}
	return OID{components: comps}, nil
}
