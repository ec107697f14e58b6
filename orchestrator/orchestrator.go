// Package orchestrator drives the eMRTD read pipeline end to end (spec
// §4.10): EF.CardAccess discovery, PACE with BAC fallback, EF.COM, Chip
// Authentication off DG14 when present, the remaining Data Groups, EF.SOD,
// and Passive Authentication — reporting progress through the two
// callbacks spec §6 names and recording a four-valued status per protocol
// stage.
package orchestrator

import (
	"errors"
	"fmt"

	"emrtdcore/accesscontrol"
	"emrtdcore/apdu"
	"emrtdcore/chipauth"
	"emrtdcore/dg"
	"emrtdcore/emrtdcrypto"
	"emrtdcore/lds"
	"emrtdcore/oid"
	"emrtdcore/params"
	"emrtdcore/securechannel"
	"emrtdcore/sod"
)

// Status is the four-valued outcome spec §9 assigns to each protocol
// stage: a stage that never ran, one that completed, one that failed, and
// one the chip or this implementation doesn't support.
type Status int

const (
	StatusNotAttempted Status = iota
	StatusSuccess
	StatusFailed
	StatusNotSupported
)

func (s Status) String() string {
	switch s {
	case StatusNotAttempted:
		return "not_attempted"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusNotSupported:
		return "not_supported"
	default:
		return "unknown"
	}
}

// StageKind names a point in the read spec §6's on_stage callback reports.
type StageKind int

const (
	StageRequestPresent StageKind = iota
	StageAuthenticating
	StageReading
	StageSuccess
	StageError
)

// Stage is the payload passed to Options.OnStage; DGTag/Percent are only
// meaningful for StageReading, Err only for StageError.
type Stage struct {
	Kind    StageKind
	DGTag   byte
	Percent int
	Err     error
}

// Options configures one Run. Transport and MRZKey are required; the
// callbacks are optional and, left nil, are simply never called.
type Options struct {
	Transport apdu.Transport
	MRZKey    string

	// ChunkSize overrides lds.DefaultChunkSize for the initial READ
	// BINARY length; 0 uses the package default.
	ChunkSize int

	OnStage      func(Stage)
	OnDGProgress func(dgTag byte, percent int)
}

// Result is the full outcome of a read: every protocol stage's status,
// the structurally-decoded files, every Data Group's raw BER bytes (for
// higher layers, out of scope here, to parse further), and the Passive
// Authentication verdict.
type Result struct {
	PACEStatus Status
	BACStatus  Status
	CAStatus   Status
	PAStatus   Status

	COM  *dg.COM
	DG14 *dg.DG14
	DG15 *dg.DG15

	// DataGroups holds every Data Group successfully read, keyed by
	// number, including COM and SOD. A present-but-unreadable DG
	// (skipped per the §7 remediation table) is simply absent.
	DataGroups map[dg.Number][]byte

	SOD     *sod.SecurityObject
	PAError error
}

// session threads the mutable state Run advances through: the current
// secure channel, the lds.Reader built over it, and the chunk size the
// §7 remediation table may shrink.
type session struct {
	opts      Options
	result    *Result
	channel   *securechannel.Channel
	reader    *lds.Reader
	chunkSize int
}

// Run drives one complete read over opts.Transport. It returns an error
// only for the conditions spec §7 calls terminal: access-control failure,
// or an unrecognized chip response the §7 remediation table has no entry
// for. A failed Passive Authentication is not a Run error; it is recorded
// in the returned Result's PAStatus/PAError.
func Run(opts Options) (*Result, error) {
	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = lds.DefaultChunkSize
	}
	s := &session{
		opts:      opts,
		chunkSize: chunk,
		result: &Result{
			DataGroups: make(map[dg.Number][]byte),
		},
	}

	s.stage(Stage{Kind: StageRequestPresent})

	s.reader = lds.New(unprotectedSender(opts.Transport), s.chunkSize)
	// EF.CardAccess lives outside the eMRTD application and is absent on
	// chips that only support BAC; its SELECT failing (typically
	// file-not-found) is not terminal, just evidence there is no PACEInfo
	// to discover, so we fall through to BAC with PACEStatus left at its
	// not_attempted zero value.
	cardAccess, err := s.reader.ReadCardAccess()
	if err != nil {
		cardAccess = nil
	}

	s.stage(Stage{Kind: StageAuthenticating})
	if err := s.establishSecureChannel(cardAccess); err != nil {
		s.stage(Stage{Kind: StageError, Err: err})
		return nil, err
	}

	if err := s.readCOM(); err != nil {
		s.stage(Stage{Kind: StageError, Err: err})
		return nil, err
	}

	if s.hasPresent(dg.NumberDG14) {
		if err := s.runChipAuthentication(); err != nil {
			s.stage(Stage{Kind: StageError, Err: err})
			return nil, err
		}
	}

	if err := s.readRemainingDataGroups(); err != nil {
		s.stage(Stage{Kind: StageError, Err: err})
		return nil, err
	}

	s.verifyPassiveAuthentication()

	s.stage(Stage{Kind: StageSuccess})
	return s.result, nil
}

func unprotectedSender(t apdu.Transport) lds.Sender {
	return func(cmd apdu.Command) (apdu.Response, error) {
		return apdu.Send(t, cmd)
	}
}

func (s *session) stage(st Stage) {
	if s.opts.OnStage != nil {
		s.opts.OnStage(st)
	}
}

func (s *session) hasPresent(n dg.Number) bool {
	if s.result.COM == nil {
		return false
	}
	for _, p := range s.result.COM.Present {
		if p == n {
			return true
		}
	}
	return false
}

// establishSecureChannel implements spec §4.10's CardAccessRead → PACE →
// (AppSelected | BAC) → SecureA transitions: PACE first when
// EF.CardAccess advertises a PACEInfo this implementation supports,
// falling back to BAC whenever PACE was not attempted, not supported, or
// failed.
func (s *session) establishSecureChannel(cardAccessRaw []byte) error {
	var paceInfo *dg.PACEInfo
	if len(cardAccessRaw) > 0 {
		info, err := dg.DecodeCardAccess(cardAccessRaw)
		if err != nil {
			return apdu.WrapErr(apdu.KindStructural, "unexpected-asn1-structure", err)
		}
		if picked, ok := pickSupportedPACEInfo(info.PACE); ok {
			paceInfo = &picked
		} else if len(info.PACE) > 0 {
			s.result.PACEStatus = StatusNotSupported
		}
	}

	if paceInfo != nil {
		proto, err := paceProtocol(*paceInfo)
		if err != nil {
			s.result.PACEStatus = StatusFailed
		} else if res, err := accesscontrol.RunPACEGM(s.opts.Transport, proto, s.opts.MRZKey); err == nil {
			s.result.PACEStatus = StatusSuccess
			s.adoptChannel(res.Channel)
			if err := s.reader.SelectApplication(); err != nil {
				return err
			}
			return nil
		} else {
			s.result.PACEStatus = StatusFailed
		}
	}

	return s.runBAC()
}

func (s *session) runBAC() error {
	if err := s.reader.SelectApplication(); err != nil {
		return err
	}
	res, err := accesscontrol.RunBAC(s.opts.Transport, s.opts.MRZKey)
	if err != nil {
		s.result.BACStatus = StatusFailed
		return err
	}
	s.result.BACStatus = StatusSuccess
	s.adoptChannel(res.Channel)
	return nil
}

// adoptChannel replaces the session's secure channel (and the reader built
// over it) atomically — the channel state is never mutated in place, only
// swapped, matching spec §4.3's lifecycle note.
func (s *session) adoptChannel(ch *securechannel.Channel) {
	s.channel = ch
	send := func(cmd apdu.Command) (apdu.Response, error) {
		return ch.Send(s.opts.Transport, cmd)
	}
	s.reader = lds.New(send, s.chunkSize)
}

func (s *session) readCOM() error {
	raw, err := s.readFileWithProgress(dg.NumberCOM, dg.TagFor(dg.NumberCOM).Byte())
	if err != nil {
		return err
	}
	com, err := dg.DecodeCOM(raw)
	if err != nil {
		return apdu.WrapErr(apdu.KindStructural, "unexpected-asn1-structure", err)
	}
	s.result.COM = com
	s.result.DataGroups[dg.NumberCOM] = raw
	return nil
}

// runChipAuthentication implements spec §4.10's "COMRead (DG14 present) →
// read DG14 → CA" transition: on success the channel is re-keyed
// (SecureB); on failure Chip Authentication does not terminate the read —
// BAC is re-run and the read continues under the freshly BAC'd channel.
func (s *session) runChipAuthentication() error {
	raw, err := s.readFileWithProgress(dg.NumberDG14, dg.TagFor(dg.NumberDG14).Byte())
	if err != nil {
		return err
	}
	dg14, err := dg.DecodeDG14(raw)
	if err != nil {
		return apdu.WrapErr(apdu.KindStructural, "unexpected-asn1-structure", err)
	}
	s.result.DG14 = dg14
	s.result.DataGroups[dg.NumberDG14] = raw

	proto, key, err := pickChipAuthKey(dg14)
	if err != nil {
		s.result.CAStatus = StatusFailed
		return s.runBAC()
	}

	res, err := chipauth.Run(s.opts.Transport, s.channel, proto, key)
	if err != nil {
		s.result.CAStatus = StatusFailed
		return s.runBAC()
	}
	s.result.CAStatus = StatusSuccess
	s.adoptChannel(res.Channel)
	return nil
}

// readRemainingDataGroups reads every Data Group EF.COM declares present
// other than COM, DG14 (already read above), and SOD (read separately
// before Passive Authentication).
func (s *session) readRemainingDataGroups() error {
	for _, n := range s.result.COM.Present {
		if n == dg.NumberCOM || n == dg.NumberDG14 || n == dg.NumberSOD {
			continue
		}
		if err := s.readDataGroupWithRemediation(n); err != nil {
			return err
		}
	}
	return s.readSOD()
}

func (s *session) readSOD() error {
	if !s.hasPresent(dg.NumberSOD) {
		return nil
	}
	return s.readDataGroupWithRemediation(dg.NumberSOD)
}

// readDataGroupWithRemediation reads one Data Group, applying the §7
// per-DG remediation table on failure: some conditions skip the DG,
// some re-establish BAC and retry once, everything else surfaces.
func (s *session) readDataGroupWithRemediation(n dg.Number) error {
	tag := dg.TagFor(n).Byte()
	raw, err := s.readFileWithProgress(n, tag)
	if err == nil {
		if n == dg.NumberDG15 {
			if dg15, decErr := dg.DecodeDG15(raw); decErr == nil {
				s.result.DG15 = dg15
			}
		}
		s.result.DataGroups[n] = raw
		return nil
	}

	var perr *apdu.ProtocolError
	if !errors.As(err, &perr) {
		return err
	}

	switch perr.Code {
	case "security-status-not-satisfied", "file-not-found":
		return nil // skip this DG
	case "class-not-supported", "incorrect-sm-data-object", "wrong-length", "truncated-read":
		if err := s.runBAC(); err != nil {
			return err
		}
		raw, err := s.readFileWithProgress(n, tag)
		if err != nil {
			return nil // second attempt failed too: skip rather than abort the whole read
		}
		s.result.DataGroups[n] = raw
		return nil
	default:
		return err
	}
}

// readFileWithProgress reads efID's file and drives on_dg_progress while
// it does.
func (s *session) readFileWithProgress(n dg.Number, tag byte) ([]byte, error) {
	s.stage(Stage{Kind: StageReading, DGTag: tag, Percent: 0})
	s.reader.OnChunk = func(read, total int) {
		pct := 100
		if total > 0 {
			pct = read * 100 / total
		}
		if s.opts.OnDGProgress != nil {
			s.opts.OnDGProgress(tag, pct)
		}
		s.stage(Stage{Kind: StageReading, DGTag: tag, Percent: pct})
	}
	defer func() { s.reader.OnChunk = nil }()

	efID, ok := dg.EFID(n)
	if !ok {
		return nil, fmt.Errorf("orchestrator: no elementary-file id for DG %d", n)
	}
	return s.reader.ReadFile(efID)
}

// verifyPassiveAuthentication implements spec §4.9 over every Data Group
// actually read (spec §4.10's SODRead → Passive Authentication →
// Terminal transition): a PA failure does not abort the read.
func (s *session) verifyPassiveAuthentication() {
	raw, ok := s.result.DataGroups[dg.NumberSOD]
	if !ok {
		s.result.PAStatus = StatusNotAttempted
		return
	}
	so, err := sod.Decode(raw)
	if err != nil {
		s.result.PAStatus = StatusFailed
		s.result.PAError = err
		return
	}
	s.result.SOD = so

	if err := so.Verify(s.result.DataGroups); err != nil {
		s.result.PAStatus = StatusFailed
		s.result.PAError = err
		return
	}
	s.result.PAStatus = StatusSuccess
}

// pickSupportedPACEInfo selects the first PACEInfo using Generic Mapping
// (spec §9: Integrated Mapping and Chip-Authentication Mapping are out of
// scope and reported as PACEStatus=not_supported rather than attempted).
func pickSupportedPACEInfo(infos []dg.PACEInfo) (dg.PACEInfo, bool) {
	for _, info := range infos {
		if paceMappingSupported(info.OID) {
			return info, true
		}
	}
	return dg.PACEInfo{}, false
}

var supportedPACEOIDs = []oid.OID{
	oid.IDPACEDH3DESCBCCBC,
	oid.IDPACEDHAESCBCCMAC128,
	oid.IDPACEDHAESCBCCMAC192,
	oid.IDPACEDHAESCBCCMAC256,
	oid.IDPACEECDH3DESCBCCBC,
	oid.IDPACEECDHAESCBCCMAC128,
	oid.IDPACEECDHAESCBCCMAC192,
	oid.IDPACEECDHAESCBCCMAC256,
}

func paceMappingSupported(o oid.OID) bool {
	for _, s := range supportedPACEOIDs {
		if o.Equal(s) {
			return true
		}
	}
	return false
}

func paceProtocol(info dg.PACEInfo) (accesscontrol.Protocol, error) {
	if info.ParameterID == nil {
		return accesscontrol.Protocol{}, apdu.WrapErr(apdu.KindConfiguration, "unknown-security-configuration", fmt.Errorf("orchestrator: PACEInfo missing parameter id"))
	}
	suite, err := cipherSuiteForOID(info.OID)
	if err != nil {
		return accesscontrol.Protocol{}, apdu.WrapErr(apdu.KindConfiguration, "security-protocol-not-decodable", err)
	}
	return accesscontrol.Protocol{OID: info.OID, Suite: suite, ParamID: *info.ParameterID}, nil
}

// pickChipAuthKey selects the ChipAuthenticationPublicKey to use and the
// protocol to run against it: the key whose KeyID matches a
// ChipAuthenticationInfo entry when DG14 disambiguates more than one, the
// sole key otherwise; the protocol named by that matching
// ChipAuthenticationInfo, or DefaultProtocol when none matches (spec.md
// §9's second open-question decision).
func pickChipAuthKey(dg14 *dg.DG14) (chipauth.Protocol, chipauth.StaticKey, error) {
	if len(dg14.PublicKeys) == 0 {
		return chipauth.Protocol{}, chipauth.StaticKey{}, apdu.WrapErr(apdu.KindConfiguration, "unknown-security-configuration", fmt.Errorf("orchestrator: DG14 carries no ChipAuthenticationPublicKeyInfo"))
	}

	pk := dg14.PublicKeys[0]
	for _, candidate := range dg14.PublicKeys {
		if candidate.KeyID != nil && matchesAnyChipAuthKeyID(dg14.ChipAuth, *candidate.KeyID) {
			pk = candidate
			break
		}
	}
	if pk.ParameterID == nil {
		return chipauth.Protocol{}, chipauth.StaticKey{}, apdu.WrapErr(apdu.KindConfiguration, "unknown-security-configuration", fmt.Errorf("orchestrator: ChipAuthenticationPublicKeyInfo missing parameter id"))
	}

	key := chipauth.StaticKey{ParamID: *pk.ParameterID, PublicKey: pk.PublicKey, KeyID: pk.KeyID}

	for _, info := range dg14.ChipAuth {
		if sameKeyID(info.KeyID, pk.KeyID) {
			suite, err := cipherSuiteForOID(info.OID)
			if err != nil {
				return chipauth.Protocol{}, chipauth.StaticKey{}, apdu.WrapErr(apdu.KindConfiguration, "security-protocol-not-decodable", err)
			}
			return chipauth.Protocol{OID: info.OID, Suite: suite}, key, nil
		}
	}

	domain, err := params.Lookup(key.ParamID)
	if err != nil {
		return chipauth.Protocol{}, chipauth.StaticKey{}, apdu.WrapErr(apdu.KindConfiguration, "unknown-security-configuration", err)
	}
	return chipauth.DefaultProtocol(domain), key, nil
}

func matchesAnyChipAuthKeyID(infos []dg.ChipAuthenticationInfo, keyID int) bool {
	for _, info := range infos {
		if info.KeyID != nil && *info.KeyID == keyID {
			return true
		}
	}
	return false
}

func sameKeyID(a, b *int) bool {
	if a == nil || b == nil {
		return true // only one ChipAuthenticationInfo/key present: no ambiguity to resolve
	}
	return *a == *b
}

// cipherSuiteForOID reads the trailing algorithm component both PACE and
// Chip Authentication OID families share (…-1 = 3DES, …-2/3/4 =
// AES-128/192/256), per ICAO 9303 Part 11 Table 11 / Table 13.
func cipherSuiteForOID(o oid.OID) (emrtdcrypto.CipherSuite, error) {
	comps := o.Components()
	if len(comps) == 0 {
		return 0, fmt.Errorf("orchestrator: empty OID")
	}
	switch comps[len(comps)-1] {
	case 1:
		return emrtdcrypto.Cipher3DESEDE2, nil
	case 2:
		return emrtdcrypto.CipherAES128, nil
	case 3:
		return emrtdcrypto.CipherAES192, nil
	case 4:
		return emrtdcrypto.CipherAES256, nil
	default:
		return 0, fmt.Errorf("orchestrator: unrecognized algorithm suffix in %s", o)
	}
}
