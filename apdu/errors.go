// Package apdu builds and sends ISO/IEC 7816-4 command APDUs over the
// Transport the orchestrator is given, and decodes status words into the
// protocol's error taxonomy.
package apdu

import "fmt"

// Kind classifies a ProtocolError by the taxonomy layer it belongs to,
// not by a specific error type name.
type Kind int

const (
	KindTransport Kind = iota
	KindAPDU
	KindCryptographic
	KindStructural
	KindConfiguration
	KindInput
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAPDU:
		return "apdu"
	case KindCryptographic:
		return "cryptographic"
	case KindStructural:
		return "structural"
	case KindConfiguration:
		return "configuration"
	case KindInput:
		return "input"
	default:
		return "unknown"
	}
}

// ProtocolError is the single error type carried across the protocol
// stack; Code names the specific condition (e.g. "file-not-found",
// "mac-mismatch") so callers can act on it without string-matching
// Error().
type ProtocolError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Code)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func newErr(kind Kind, code, msg string) *ProtocolError {
	return &ProtocolError{Kind: kind, Code: code, Message: msg}
}

// WrapErr names the taxonomy code for an underlying error (e.g. a
// transport failure) without discarding it.
func WrapErr(kind Kind, code string, err error) *ProtocolError {
	return &ProtocolError{Kind: kind, Code: code, Message: err.Error(), Err: err}
}

// Transport-level errors (§7).
var (
	ErrNoTag          = newErr(KindTransport, "no-tag", "no contactless tag present")
	ErrMultipleTags   = newErr(KindTransport, "multiple-tags", "multiple contactless tags present")
	ErrConnectionLost = newErr(KindTransport, "connection-lost", "transport connection lost")
	ErrUserCancelled  = newErr(KindTransport, "user-cancelled", "session cancelled by user")
)

// Cryptographic errors (§7).
var (
	ErrMACMismatch          = newErr(KindCryptographic, "mac-mismatch", "")
	ErrPACETokenMismatch    = newErr(KindCryptographic, "pace-token-mismatch", "")
	ErrDecryptionFailure    = newErr(KindCryptographic, "decryption-failure", "")
	ErrKeyDerivationFailure = newErr(KindCryptographic, "key-derivation-failure", "")
	ErrKeyAgreementFailure  = newErr(KindCryptographic, "key-agreement-failure", "")
	ErrCMSVerificationFailed = newErr(KindCryptographic, "cms-verification-failure", "")
	ErrPAHashMismatch       = newErr(KindCryptographic, "pa-hash-mismatch", "")
)

// Structural errors (§7).
var (
	ErrUnexpectedASN1     = newErr(KindStructural, "unexpected-asn1-structure", "")
	ErrTruncatedField     = newErr(KindStructural, "truncated-field", "")
	ErrExcessiveDepth     = newErr(KindStructural, "excessive-depth", "")
	ErrUnknownTag         = newErr(KindStructural, "unknown-tag", "")
	ErrUnknownImageFormat = newErr(KindStructural, "unknown-image-format", "")
	ErrDocTypeUnrecognized = newErr(KindStructural, "travel-doc-type-unrecognized", "")
)

// Configuration errors (§7).
var (
	ErrUnknownSecurityConfig  = newErr(KindConfiguration, "unknown-security-configuration", "")
	ErrSecurityProtocolDecode = newErr(KindConfiguration, "security-protocol-not-decodable", "")
	ErrPACEMappingUnsupported = newErr(KindConfiguration, "pace-mapping-not-supported", "")
	ErrNotSupported           = newErr(KindConfiguration, "not-supported", "")
)

// Input errors (§7).
var (
	ErrInvalidMRZKey   = newErr(KindInput, "invalid-mrz-key", "")
	ErrInvalidDataPassed = newErr(KindInput, "invalid-data-passed", "")
)

// apduCode is an APDU-level error keyed by exact (SW1,SW2), used for the
// handful of codes that do not fit the generic 6xYY table below.
type apduCode struct {
	code string
	msg  string
}

var exactSW = map[uint16]apduCode{
	0x6A82: {"file-not-found", "file or application not found"},
	0x6A86: {"incorrect-p1p2", "incorrect parameters P1-P2"},
	0x6982: {"security-status-not-satisfied", ""},
	0x6983: {"authentication-method-blocked", ""},
	0x6984: {"referenced-data-invalidated", ""},
	0x6985: {"conditions-of-use-not-satisfied", ""},
	0x6987: {"incorrect-sm-data-object", "expected SM data objects missing"},
	0x6988: {"incorrect-sm-data-object", "SM data objects incorrect"},
	0x6A88: {"referenced-data-not-found", ""},
	0x6D00: {"class-not-supported", "instruction not supported"},
	0x6E00: {"class-not-supported", ""},
	0x6A80: {"incorrect-parameters", "incorrect parameters in data field"},
	0x6981: {"incorrect-parameters", "command incompatible with file structure"},
}

// DecodeStatusWord maps a status word to a *ProtocolError, or nil for
// SW=9000 success. SW1=61 (more data) and SW1=6C (wrong length) are
// decoded like any other status: 61 as response-bytes-still-available and
// 6C as a wrong-length error carrying SW2 as the exact length. Callers that
// drive GET RESPONSE or a retry with the corrected Le branch on SW1 before
// calling this decoder.
func DecodeStatusWord(sw1, sw2 byte) error {
	sw := uint16(sw1)<<8 | uint16(sw2)
	if sw == 0x9000 {
		return nil
	}
	if c, ok := exactSW[sw]; ok {
		return &ProtocolError{Kind: KindAPDU, Code: c.code, Message: c.msg}
	}
	switch sw1 {
	case 0x61:
		return &ProtocolError{Kind: KindAPDU, Code: "response-bytes-still-available", Message: fmt.Sprintf("%d bytes available via GET RESPONSE", sw2)}
	case 0x67:
		return &ProtocolError{Kind: KindAPDU, Code: "wrong-length", Message: "incorrect Lc/Le"}
	case 0x6C:
		return &ProtocolError{Kind: KindAPDU, Code: "wrong-length", Message: fmt.Sprintf("exact length is %d", sw2)}
	case 0x64, 0x65:
		return &ProtocolError{Kind: KindAPDU, Code: "memory-failure", Message: fmt.Sprintf("SW=%02X%02X", sw1, sw2)}
	case 0x63:
		return &ProtocolError{Kind: KindAPDU, Code: "verification-failed", Message: fmt.Sprintf("SW=%02X%02X", sw1, sw2)}
	case 0x6A:
		return &ProtocolError{Kind: KindAPDU, Code: "incorrect-parameters", Message: fmt.Sprintf("SW=%02X%02X", sw1, sw2)}
	case 0x69:
		return &ProtocolError{Kind: KindAPDU, Code: "command-not-allowed", Message: fmt.Sprintf("SW=%02X%02X", sw1, sw2)}
	default:
		return &ProtocolError{Kind: KindAPDU, Code: "unknown-status", Message: fmt.Sprintf("SW=%02X%02X", sw1, sw2)}
	}
}
