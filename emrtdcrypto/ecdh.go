package emrtdcrypto

import (
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"math/big"
)

// ECGenerateKeyPair draws a fresh private scalar and returns it with the
// corresponding public point in uncompressed form (04 ‖ X ‖ Y).
func ECGenerateKeyPair(curve elliptic.Curve) (priv []byte, pubUncompressed []byte, err error) {
	priv, x, y, err := elliptic.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("emrtdcrypto: EC keygen: %w", err)
	}
	return priv, elliptic.Marshal(curve, x, y), nil
}

// ECSharedSecretX performs scalar multiplication of ownPriv against the
// peer's uncompressed public point and returns the resulting point's
// X-coordinate, big-endian, padded to the curve's byte length.
func ECSharedSecretX(curve elliptic.Curve, ownPriv []byte, peerPubUncompressed []byte) ([]byte, error) {
	px, py := elliptic.Unmarshal(curve, peerPubUncompressed)
	if px == nil {
		return nil, fmt.Errorf("emrtdcrypto: invalid EC point encoding")
	}
	x, _ := curve.ScalarMult(px, py, ownPriv)
	width := (curve.Params().BitSize + 7) / 8
	return fixedWidth(x, width), nil
}

// ECSharedSecretPoint performs scalar multiplication of ownPriv against the
// peer's uncompressed public point and returns the full resulting point,
// used by PACE-ECDH-GM's mapping step (which needs the point H, not just
// its X-coordinate — unlike the final key-exchange step, which only ever
// needs ECSharedSecretX).
func ECSharedSecretPoint(curve elliptic.Curve, ownPriv []byte, peerPubUncompressed []byte) (x, y *big.Int, err error) {
	px, py := elliptic.Unmarshal(curve, peerPubUncompressed)
	if px == nil {
		return nil, nil, fmt.Errorf("emrtdcrypto: invalid EC point encoding")
	}
	x, y = curve.ScalarMult(px, py, ownPriv)
	return x, y, nil
}

// ECMappedPoint computes the PACE-GM mapped generator G' = s*G + H, where
// H is the mapping shared point (uncompressed) and s is the chip's nonce
// interpreted as a scalar.
func ECMappedPoint(curve elliptic.Curve, s *big.Int, mappingSharedUncompressed []byte) (x, y *big.Int, err error) {
	hx, hy := elliptic.Unmarshal(curve, mappingSharedUncompressed)
	if hx == nil {
		return nil, nil, fmt.Errorf("emrtdcrypto: invalid EC mapping point encoding")
	}
	gx, gy := curve.Params().Gx, curve.Params().Gy
	sx, sy := curve.ScalarMult(gx, gy, s.Bytes())
	x, y = curve.Add(sx, sy, hx, hy)
	return x, y, nil
}
