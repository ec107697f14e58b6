package emrtdcrypto

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"emrtdcore/oid"
)

// HashByOID returns the hash constructor registered for a SOD or
// domain-parameter digest-algorithm OID.
func HashByOID(o oid.OID) (func() hash.Hash, error) {
	switch {
	case o.Equal(oid.IDSHA1):
		return sha1.New, nil
	case o.Equal(oid.IDSHA224):
		return sha256.New224, nil
	case o.Equal(oid.IDSHA256):
		return sha256.New, nil
	case o.Equal(oid.IDSHA384):
		return sha512.New384, nil
	case o.Equal(oid.IDSHA512):
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("emrtdcrypto: unrecognized hash algorithm OID %s", o)
	}
}
