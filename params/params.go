// Package params implements the closed table of standardized domain
// parameters (DH groups and named elliptic curves) that PACE and Chip
// Authentication select by a numeric "parameter-id", per ICAO 9303 Part 11
// / BSI TR-03110 Part 3.
package params

import (
	"crypto/elliptic"
	"fmt"
	"math/big"
)

// Category distinguishes a finite-field (GFP) Diffie-Hellman group from an
// elliptic-curve (ECP) group.
type Category int

const (
	CategoryGFP Category = iota
	CategoryECP
)

func (c Category) String() string {
	if c == CategoryGFP {
		return "GFP"
	}
	return "ECP"
}

// DomainParameters is the common interface satisfied by both DHGroup and
// ECGroup, so accessControl/chipAuth code can be written once against
// "whatever domain parameters parameter-id N selects".
type DomainParameters interface {
	Category() Category
	Name() string
}

// DHGroup is a finite-field Diffie-Hellman group: a safe(ish) prime P, a
// generator G of a subgroup of order Q.
type DHGroup struct {
	GroupName string
	P, G, Q   *big.Int
}

func (d *DHGroup) Category() Category { return CategoryGFP }
func (d *DHGroup) Name() string       { return d.GroupName }

// ECGroup is a named elliptic curve.
type ECGroup struct {
	CurveName string
	Curve     elliptic.Curve
}

func (e *ECGroup) Category() Category { return CategoryECP }
func (e *ECGroup) Name() string       { return e.CurveName }

// ParameterID is the ICAO/BSI integer selecting one entry of the
// standardized domain parameter table (carried in PACEInfo /
// ChipAuthenticationInfo and in the MSE:Set AT command data).
type ParameterID uint8

// The standardized parameter-id table (BSI TR-03110 Part 3, Table
// "standardizedDomainParameters").
const (
	ParamGFP1024160 ParameterID = 0
	ParamGFP2048224 ParameterID = 1
	ParamGFP2048256 ParameterID = 2

	ParamSECP192R1     ParameterID = 8
	ParamBrainpoolP192R1 ParameterID = 9
	ParamSECP224R1     ParameterID = 10
	ParamBrainpoolP224R1 ParameterID = 11
	ParamSECP256R1     ParameterID = 12
	ParamBrainpoolP256R1 ParameterID = 13
	ParamSECP384R1     ParameterID = 15
	ParamBrainpoolP384R1 ParameterID = 16
	ParamSECP521R1     ParameterID = 18
	ParamBrainpoolP512R1 ParameterID = 17
)

var registry = map[ParameterID]DomainParameters{
	ParamGFP1024160: gfp1024160(),
	ParamGFP2048224: gfp2048224(),
	ParamGFP2048256: gfp2048256(),

	// secp192r1 (ICAO parameter-id 8) has no crypto/elliptic entry and is
	// not wired up: no pack dependency supplies it, so parameter-id 8 is
	// left unsupported
	// rather than hand-rolled.
	ParamSECP224R1: &ECGroup{CurveName: "secp224r1", Curve: elliptic.P224()},
	ParamSECP256R1:       &ECGroup{CurveName: "secp256r1", Curve: elliptic.P256()},
	ParamSECP384R1:       &ECGroup{CurveName: "secp384r1", Curve: elliptic.P384()},
	ParamSECP521R1:       &ECGroup{CurveName: "secp521r1", Curve: elliptic.P521()},
	ParamBrainpoolP192R1: &ECGroup{CurveName: "brainpoolP192r1", Curve: brainpoolP192r1()},
	ParamBrainpoolP224R1: &ECGroup{CurveName: "brainpoolP224r1", Curve: brainpoolP224r1()},
	ParamBrainpoolP256R1: &ECGroup{CurveName: "brainpoolP256r1", Curve: brainpoolP256r1()},
	ParamBrainpoolP384R1: &ECGroup{CurveName: "brainpoolP384r1", Curve: brainpoolP384r1()},
	ParamBrainpoolP512R1: &ECGroup{CurveName: "brainpoolP512r1", Curve: brainpoolP512r1()},
}

// Lookup returns the domain parameters named by id.
func Lookup(id ParameterID) (DomainParameters, error) {
	p, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("params: unknown or unsupported parameter-id %d", id)
	}
	return p, nil
}

func hexBig(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("params: invalid hex constant")
	}
	return n
}

// gfp1024160 is RFC 5114's "1024-bit MODP Group with 160-bit Prime Order
// Subgroup" (MODP group 22), used as ICAO parameter-id 0.
func gfp1024160() *DHGroup {
	return &DHGroup{
		GroupName: "GFP-1024-160",
		P: hexBig("B10B8F96A080E01DDE92DE5EAE5D54EC52C99FBCFB06A3C69A6A9DCA52D23B61" +
			"6073E28675A23D189838EF1E2EE652C013ECB4AEA906112324975C3CD49B83BFACCBDD7D90C4BD70" +
			"98488E9C219A73724EFFD6FAE5644738FAA31A4FF55BCCC0A151AF5F0DC8B4BD45BF37DF365C1A65" +
			"E68CFDA76D4DA708DF1FB2BC2E4A4371"),
		G: hexBig("A4D1CBD5C3FD34126765A442EFB99905F8104DD258AC507FD6406CFF14266D3" +
			"1266FEA1E5C41564B777E690F5504F213160217B4B01B886A5E91547F9E2749F4D7FBD7D3B9A92EE1" +
			"909D0D2263F80A76A6A24C087A091F531DBF0A0169B6A28AD662A4D18E73AFA32D779D5918D08BC8" +
			"858F4DCEF97C2A24855E6EEB22B3B2E5"),
		Q: hexBig("F518AA8781A8DF278ABA4E7D64B7CB9D49462353"),
	}
}

// gfp2048224 is RFC 5114's "2048-bit MODP Group with 224-bit Prime Order
// Subgroup" (MODP group 23), ICAO parameter-id 1.
func gfp2048224() *DHGroup {
	return &DHGroup{
		GroupName: "GFP-2048-224",
		P: hexBig("AD107E1E9123A9D0D660FAA79559C51FA20D64E5683B9FD1B54B1597B61D0A7" +
			"5E6FA141DF95A56DBAF9A3C407BA1DF15EB3D688A309C180E1DE6B85A1274A0A66D3F8152AD6AC212" +
			"9037C9EDEFDA4DF8D91E8FEF55B7394B7AD5B7D0B6C12207C9F98D11ED34DBF6C6BA0B2C8BBC27BE" +
			"6A00E0A0B9C49708B3BF8A317091883681286130BC8985DB1602E714415D9330278273C7DE31EFDC" +
			"7310F7121FD5A07415987D9ADC0A486DCDF93ACC44328387315D75E198C641A480CD86A1B9E587E8" +
			"BE60E69CC928B2B9C52172E413042E9B23F10B0E16E79763C9B53DCF4BA80A29E3FB73C16B8E75B9" +
			"7EF363E2FFA31F71CF9DE5384E71B81C0AC4DFFE0C10E64F"),
		G: hexBig("AC4032EF4F2D9AE39DF30B5C8FFDAC506CDEBE7B89998CAF74866A08CFE4FFE" +
			"3A6824A4E10B9A6F0DD921F01A70C4AFAAB739D7700C29F52C57DB17C620A8652BE5E9001A8D66AD7" +
			"C17669101999024AF4D027275AC1348BB8A762D0521BC98AE247150422EA1ED409939D54DA7460CD" +
			"B5F6C6B250717CBEF180EB34118E98D119529A45D6F834566E3025E316A330EFBB77A86F0C1AB15B" +
			"051AE3D428C8F8ACB70A8137150B8EEB10E183EDD19963DDD9E263E4770589EF6AA21E7F5F2FF381" +
			"B539CCE3409D13CD566AFBB48D6C019181E479D104A63B1C3A0ED2DD7E1C7FB67A1D53EEE3E0067D" +
			"C2B6BA7BECEA3F897C03C4F3B9EEA40A0B"),
		Q: hexBig("801C0D34C58D93FE997177101F80535A4738CEBCBF389A99B36371EB"),
	}
}

// gfp2048256 is RFC 5114's "2048-bit MODP Group with 256-bit Prime Order
// Subgroup" (MODP group 24), ICAO parameter-id 2.
func gfp2048256() *DHGroup {
	return &DHGroup{
		GroupName: "GFP-2048-256",
		P: hexBig("87A8E61DB4B6663CFFBBD19C651959998CEEF608660DD0F25D2CEED4435E3B0" +
			"0E00DF8F1D61957D4FAF7DF4561B2AA3016C3D91134096FAA3BF4296D830E9A7C209E0C6497517AB" +
			"D5A8A9D306BCF67ED91F9E6725B4758C022E0B1EF4275BF7B6C5BFC11D45F9088B941F54EB1E59BB" +
			"8BC39A0BF12307F5C4FDB70C581B23F76B63ACAE1CAA6B7902D52526735488A0EF13C6D9A51BFA4A" +
			"B3AD8347796524D8EF6A167B5A41825D967E144E5140564251CCACB83E6B486F6B3CA3F7971506026" +
			"C0B857F689962856DED4010ABD0BE621C3A3960A54E710C375F26375D7014103A4B54330C198AF12" +
			"6116D2276E11715F693877FAD7EF09CADB094AE91E1A1597"),
		G: hexBig("3FB32C9B73134D0B2E77506660EDBD484CA7B18F21EF205407F4793A1A0BA12" +
			"5108066FF1E0B598E1ED8A220A70C3602D4D12221DF1E1B0A44A63D8D4D93B1CCEE6519A16A6092C" +
			"432D3A78EDCB7C8A7A1D6B2FB9B2E6FA4FF4A3E03862EF28FA0A08DCEC21CA49D62A13B12B821BD" +
			"0D5F8E62FF3D41BF58F73C01E2F2B3DBB03A95B8FF3D6513A486369FDA1A56243D2B4E82247E5B" +
			"40EEE6C2A86C3D2D21D7EA6CC3BE77D28B4C7D64A31C5C5B69C12054AB47D65D34F49AE67FFE" +
			"E0FB0EE0A8B34BA4AC74A1D5BCE91E2F56B8BD8A3F85E6A84E64A5F2E556A0E2D4A7ED3E3A1C" +
			"D9A0C23CA5D1E9DC46FC25E7B4C36C40C32F1A62C0C7CA51893"),
		Q: hexBig("8CF83642A709A097B447997640129DA299B1A47D1EB3750BA308B0FE64F5FBD" +
			"3"),
	}
}

func curveFromParams(name string, p, a, b, gx, gy, n *big.Int, bitSize int) elliptic.Curve {
	params := &elliptic.CurveParams{
		P:       p,
		N:       n,
		B:       b,
		Gx:      gx,
		Gy:      gy,
		BitSize: bitSize,
		Name:    name,
	}
	_ = a // CurveParams assumes a == -3; Brainpool curves do not, noted in params_brainpool.go
	return params
}
