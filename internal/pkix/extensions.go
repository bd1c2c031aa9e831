package pkix

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"
	"time"
)

// Extension OIDs the decoder knows how to parse. Anything else is carried
// through as raw bytes.
const (
	OIDSubjectKeyID              = "2.5.29.14"
	OIDKeyUsage                  = "2.5.29.15"
	OIDBasicConstraints          = "2.5.29.19"
	OIDCRLNumber                 = "2.5.29.20"
	OIDCRLReason                 = "2.5.29.21"
	OIDInvalidityDate            = "2.5.29.24"
	OIDDeltaCRLIndicator         = "2.5.29.27"
	OIDIssuingDistributionPoint  = "2.5.29.28"
	OIDCRLDistributionPoints     = "2.5.29.31"
	OIDAuthorityKeyID            = "2.5.29.35"
	OIDAuthorityInfoAccess       = "1.3.6.1.5.5.7.1.1"
)

// Extension is one decoded extension. Value is nil for OIDs without a
// registered decoder; Err is set when a registered decoder rejected the
// raw bytes (the extension is still carried, so callers can log it).
type Extension struct {
	OID      string
	Critical bool
	Raw      []byte
	Value    any
	Err      error
}

// Supported reports whether the decoder has a parser for this OID.
func (e Extension) Supported() bool {
	_, ok := extensionDecoders[e.OID]
	return ok
}

// AuthorityKeyID and SubjectKeyID are key-identifier octet strings.
type (
	AuthorityKeyID []byte
	SubjectKeyID   []byte
)

// IssuingDistributionPoint mirrors the RFC 5280 IDP extension scope flags.
type IssuingDistributionPoint struct {
	OnlyContainsUserCerts bool
	OnlyContainsCACerts   bool
	IndirectCRL           bool
}

// BasicConstraints is the CA flag plus optional path length.
type BasicConstraints struct {
	IsCA       bool
	MaxPathLen int
}

// extensionDecoders is the fixed OID→decoder table. Unknown OIDs fall
// through to the raw carry-through in decodeExtensions.
var extensionDecoders = map[string]func(raw []byte) (any, error){
	OIDCRLNumber:                decodeInteger,
	OIDDeltaCRLIndicator:        decodeInteger,
	OIDAuthorityKeyID:           decodeAuthorityKeyID,
	OIDSubjectKeyID:             decodeSubjectKeyID,
	OIDCRLReason:                decodeEnumerated,
	OIDInvalidityDate:           decodeGeneralizedTime,
	OIDIssuingDistributionPoint: decodeIssuingDistributionPoint,
	OIDBasicConstraints:         decodeBasicConstraints,
}

func decodeExtensions(exts []pkix.Extension) []Extension {
	out := make([]Extension, 0, len(exts))
	for _, ext := range exts {
		decoded := Extension{
			OID:      ext.Id.String(),
			Critical: ext.Critical,
			Raw:      ext.Value,
		}
		if decode, ok := extensionDecoders[decoded.OID]; ok {
			decoded.Value, decoded.Err = decode(ext.Value)
		}
		out = append(out, decoded)
	}
	return out
}

// decodeInteger reads an arbitrary-precision ASN.1 INTEGER. CRL numbers
// routinely exceed 64 bits, so the value never passes through a fixed
// width type.
func decodeInteger(raw []byte) (any, error) {
	n := new(big.Int)
	if _, err := asn1.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("integer extension: %w", err)
	}
	return n, nil
}

type authorityKeyIDASN struct {
	ID []byte `asn1:"optional,tag:0"`
}

func decodeAuthorityKeyID(raw []byte) (any, error) {
	var aki authorityKeyIDASN
	if _, err := asn1.Unmarshal(raw, &aki); err != nil {
		return nil, fmt.Errorf("authority key identifier: %w", err)
	}
	if len(aki.ID) == 0 {
		return nil, fmt.Errorf("authority key identifier: no keyIdentifier field")
	}
	return AuthorityKeyID(aki.ID), nil
}

func decodeSubjectKeyID(raw []byte) (any, error) {
	var id []byte
	if _, err := asn1.Unmarshal(raw, &id); err != nil {
		return nil, fmt.Errorf("subject key identifier: %w", err)
	}
	return SubjectKeyID(id), nil
}

func decodeEnumerated(raw []byte) (any, error) {
	var e asn1.Enumerated
	if _, err := asn1.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("enumerated extension: %w", err)
	}
	return int(e), nil
}

func decodeGeneralizedTime(raw []byte) (any, error) {
	var t time.Time
	if _, err := asn1.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("time extension: %w", err)
	}
	return t, nil
}

type issuingDistributionPointASN struct {
	DistributionPoint     asn1.RawValue  `asn1:"optional,tag:0"`
	OnlyContainsUserCerts bool           `asn1:"optional,tag:1"`
	OnlyContainsCACerts   bool           `asn1:"optional,tag:2"`
	OnlySomeReasons       asn1.BitString `asn1:"optional,tag:3"`
	IndirectCRL           bool           `asn1:"optional,tag:4"`
}

func decodeIssuingDistributionPoint(raw []byte) (any, error) {
	var idp issuingDistributionPointASN
	if _, err := asn1.Unmarshal(raw, &idp); err != nil {
		return nil, fmt.Errorf("issuing distribution point: %w", err)
	}
	return IssuingDistributionPoint{
		OnlyContainsUserCerts: idp.OnlyContainsUserCerts,
		OnlyContainsCACerts:   idp.OnlyContainsCACerts,
		IndirectCRL:           idp.IndirectCRL,
	}, nil
}

type basicConstraintsASN struct {
	IsCA       bool `asn1:"optional"`
	MaxPathLen int  `asn1:"optional,default:-1"`
}

func decodeBasicConstraints(raw []byte) (any, error) {
	var bc basicConstraintsASN
	if _, err := asn1.Unmarshal(raw, &bc); err != nil {
		return nil, fmt.Errorf("basic constraints: %w", err)
	}
	return BasicConstraints{IsCA: bc.IsCA, MaxPathLen: bc.MaxPathLen}, nil
}
