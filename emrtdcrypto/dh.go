package emrtdcrypto

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"emrtdcore/params"
)

// DHGenerateKeyPair draws a fresh private exponent in [2, q-1] (or, when
// the group carries no subgroup order, in [2, p-2]) and returns it with
// the corresponding public value g^priv mod p.
func DHGenerateKeyPair(group *params.DHGroup) (priv, pub *big.Int, err error) {
	upper := group.Q
	if upper == nil || upper.Sign() == 0 {
		upper = new(big.Int).Sub(group.P, big.NewInt(1))
	}
	priv, err = rand.Int(rand.Reader, new(big.Int).Sub(upper, big.NewInt(2)))
	if err != nil {
		return nil, nil, fmt.Errorf("emrtdcrypto: DH keygen: %w", err)
	}
	priv.Add(priv, big.NewInt(2))
	pub = new(big.Int).Exp(group.G, priv, group.P)
	return priv, pub, nil
}

// DHSharedSecret computes (otherPub^ownPriv mod p) and returns it as a
// big-endian unsigned integer, zero-padded to the modulus byte length.
func DHSharedSecret(group *params.DHGroup, ownPriv, otherPub *big.Int) ([]byte, error) {
	if otherPub.Sign() <= 0 || otherPub.Cmp(group.P) >= 0 {
		return nil, fmt.Errorf("emrtdcrypto: DH peer public value out of range")
	}
	shared := new(big.Int).Exp(otherPub, ownPriv, group.P)
	return fixedWidth(shared, (group.P.BitLen()+7)/8), nil
}

// DHMappedGenerator computes the PACE-GM mapped generator g' = g^s * H mod p.
func DHMappedGenerator(group *params.DHGroup, s *big.Int, mappingShared []byte) *big.Int {
	h := new(big.Int).SetBytes(mappingShared)
	gs := new(big.Int).Exp(group.G, s, group.P)
	gPrime := new(big.Int).Mul(gs, h)
	gPrime.Mod(gPrime, group.P)
	return gPrime
}

func fixedWidth(n *big.Int, width int) []byte {
	b := n.Bytes()
	if len(b) >= width {
		return b[len(b)-width:]
	}
	out := make([]byte, width)
	copy(out[width-len(b):], b)
	return out
}
