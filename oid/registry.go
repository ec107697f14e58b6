package oid

// The BSI TR-03110 / ICAO 9303 protocol OID tree, rooted at
// bsi-de (0.4.0.127.0.7).
var (
	bsiDE = New(0, 4, 0, 127, 0, 7)

	// IDPACE is the prefix shared by every PACE protocol OID.
	IDPACE = bsiDE.Append(2, 2, 4)
	// IDCA is the prefix shared by every Chip Authentication protocol OID.
	IDCA = bsiDE.Append(2, 2, 3)
	// IDPK is the prefix shared by every Chip Authentication public-key-info OID.
	IDPK = bsiDE.Append(2, 2, 1)

	// PACE mapping suffixes (last-but-one component selects GM/IM/CAM;
	// Integrated Mapping and CA Mapping are recognized but not implemented).
	paceDHGM  = IDPACE.Append(1)
	paceECGM  = IDPACE.Append(2)
	paceDHIM  = IDPACE.Append(3)
	paceECIM  = IDPACE.Append(4)
	paceECCAM = IDPACE.Append(6)

	// Chip Authentication key-agreement arcs (DH = 1, ECDH = 2); the cipher
	// suite is the last component of each protocol OID below.
	caDH3DES = IDCA.Append(1)
	caDHAES  = IDCA.Append(1)
	caEC3DES = IDCA.Append(2)
	caECAES  = IDCA.Append(2)
)

// Well-known, fully-qualified PACE protocol OIDs (ICAO 9303 Part 11
// Table 11 / BSI TR-03110 Part 3 section A.1.1.1).
var (
	IDPACEDH3DESCBCCBC = paceDHGM.Append(1)
	IDPACEDHAESCBCCMAC128 = paceDHGM.Append(2)
	IDPACEDHAESCBCCMAC192 = paceDHGM.Append(3)
	IDPACEDHAESCBCCMAC256 = paceDHGM.Append(4)

	IDPACEECDH3DESCBCCBC     = paceECGM.Append(1)
	IDPACEECDHAESCBCCMAC128  = paceECGM.Append(2)
	IDPACEECDHAESCBCCMAC192  = paceECGM.Append(3)
	IDPACEECDHAESCBCCMAC256  = paceECGM.Append(4)

	IDPACEDHIM3DESCBCCBC    = paceDHIM.Append(1)
	IDPACEDHIMAESCBCCMAC128 = paceDHIM.Append(2)
	IDPACEDHIMAESCBCCMAC192 = paceDHIM.Append(3)
	IDPACEDHIMAESCBCCMAC256 = paceDHIM.Append(4)

	IDPACEECDHIM3DESCBCCBC    = paceECIM.Append(1)
	IDPACEECDHIMAESCBCCMAC128 = paceECIM.Append(2)
	IDPACEECDHIMAESCBCCMAC192 = paceECIM.Append(3)
	IDPACEECDHIMAESCBCCMAC256 = paceECIM.Append(4)

	IDPACEECDHCAMAESCBCCMAC128 = paceECCAM.Append(2)
	IDPACEECDHCAMAESCBCCMAC192 = paceECCAM.Append(3)
	IDPACEECDHCAMAESCBCCMAC256 = paceECCAM.Append(4)
)

// Chip Authentication protocol OIDs.
var (
	IDCADH3DESCBCCBC     = caDH3DES.Append(1)
	IDCADHAESCBCCMAC128  = caDHAES.Append(2)
	IDCADHAESCBCCMAC192  = caDHAES.Append(3)
	IDCADHAESCBCCMAC256  = caDHAES.Append(4)
	IDCAECDH3DESCBCCBC    = caEC3DES.Append(1)
	IDCAECDHAESCBCCMAC128 = caECAES.Append(2)
	IDCAECDHAESCBCCMAC192 = caECAES.Append(3)
	IDCAECDHAESCBCCMAC256 = caECAES.Append(4)
)

// Chip Authentication public-key-info OIDs.
var (
	IDPKDH = IDPK.Append(1)
	IDPKEC = IDPK.Append(2)
)

// Hash algorithm OIDs (RSADSI / NIST arcs), used to identify the SOD's
// declared digestAlgorithm.
var (
	IDSHA1   = New(1, 3, 14, 3, 2, 26)
	idSHA2   = New(2, 16, 840, 1, 101, 3, 4, 2)
	IDSHA224 = idSHA2.Append(4)
	IDSHA256 = idSHA2.Append(1)
	IDSHA384 = idSHA2.Append(2)
	IDSHA512 = idSHA2.Append(3)
)

// IDLDSSecurityObject identifies the eContentType of the SOD's
// encapContentInfo.
var IDLDSSecurityObject = New(2, 23, 136, 1, 1, 1)
