package main

import (
	"fmt"

	"emrtdcore/mrz"
	"emrtdcore/transport/pcsc"
)

// resolveMRZKey returns the 24-character MRZ key a BAC/PACE attempt
// seeds from: --mrz-key verbatim if given, otherwise derived from
// --doc-number/--dob/--doe.
func resolveMRZKey() (string, error) {
	if mrzKey != "" {
		return mrzKey, nil
	}
	if docNumber == "" || dateOfBirth == "" || dateOfExpiry == "" {
		return "", fmt.Errorf("either --mrz-key or all of --doc-number, --dob, --doe are required")
	}
	return mrz.Key(mrz.DocumentInfo{
		DocumentNumber: docNumber,
		DateOfBirth:    dateOfBirth,
		DateOfExpiry:   dateOfExpiry,
	})
}

// rejectCAN mirrors the teacher's style of accepting a flag and
// validating it where it's used rather than at parse time: PACE-CAM/CAN
// access is out of scope (spec Non-goals), so any --can value is an
// error once a command actually needs access-control material.
func rejectCAN() error {
	if can != "" {
		return fmt.Errorf("--can: CAN-based PACE mapping is not supported")
	}
	return nil
}

// connectReader opens a transport the same way the teacher's
// connectAndPrepareReader does: auto-select the sole reader when none
// was requested, otherwise connect by index or by --reader-name substring
// carried in cfg.
func connectReader(readerSubstring string) (*pcsc.Transport, error) {
	if readerSubstring != "" {
		t, err := pcsc.ConnectByName(readerSubstring)
		if err != nil {
			return nil, fmt.Errorf("connect reader %q: %w", readerSubstring, err)
		}
		return t, nil
	}

	if readerIndex >= 0 {
		t, err := pcsc.Connect(readerIndex)
		if err != nil {
			return nil, fmt.Errorf("connect reader #%d: %w", readerIndex, err)
		}
		return t, nil
	}

	names, err := pcsc.ListReaders()
	if err != nil {
		return nil, fmt.Errorf("list readers: %w", err)
	}
	switch len(names) {
	case 0:
		return nil, fmt.Errorf("no PC/SC readers found")
	case 1:
		return pcsc.Connect(0)
	default:
		return nil, fmt.Errorf("multiple readers found (%v), select one with -r/--reader or --reader-name", names)
	}
}
