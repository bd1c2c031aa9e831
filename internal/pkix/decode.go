package pkix

import (
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// PEM block types accepted by the decoder.
const (
	PEMTypeCertificate = "CERTIFICATE"
	PEMTypeCRL         = "X509 CRL"
)

// Sentinel decode errors. Callers map these onto their own error codes.
var (
	ErrInvalidPEM = errors.New("no matching PEM block")
	ErrInvalidDER = errors.New("malformed DER")
)

// DecodePEM scans the input for the first PEM block of the given type and
// returns its DER payload. Unrelated blocks are skipped.
func DecodePEM(data []byte, blockType string) ([]byte, error) {
	rest := data
	for len(rest) > 0 {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type == blockType {
			return block.Bytes, nil
		}
	}
	return nil, ErrInvalidPEM
}

// EncodePEM wraps DER bytes in a PEM block of the given type.
func EncodePEM(der []byte, blockType string) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
}

// ParseCertificate parses a DER-encoded X.509 certificate.
func ParseCertificate(der []byte) (*Certificate, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDER, err)
	}
	return &Certificate{
		Raw:          cert.Raw,
		Subject:      cert.Subject,
		Issuer:       cert.Issuer,
		RawSubject:   cert.RawSubject,
		SubjectKeyID: cert.SubjectKeyId,
		NotBefore:    cert.NotBefore,
		NotAfter:     cert.NotAfter,
		Extensions:   decodeExtensions(cert.Extensions),
		cert:         cert,
	}, nil
}

// ParseCRL parses a DER-encoded certificate revocation list. thisUpdate
// and nextUpdate arrive normalized to absolute instants regardless of
// whether the source encoded them as UTCTime or GeneralizedTime.
func ParseCRL(der []byte) (*CRL, error) {
	list, err := x509.ParseRevocationList(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDER, err)
	}

	crl := &CRL{
		Raw:            list.Raw,
		Issuer:         list.Issuer,
		RawIssuer:      list.RawIssuer,
		AuthorityKeyID: authorityKeyID(list),
		Number:         list.Number,
		ThisUpdate:     list.ThisUpdate,
		NextUpdate:     list.NextUpdate,
		Extensions:     decodeExtensions(list.Extensions),
		list:           list,
	}

	for _, ext := range crl.Extensions {
		if ext.OID == OIDDeltaCRLIndicator && ext.Err == nil {
			crl.BaseNumber = ext.Value.(*big.Int)
		}
	}

	crl.Revoked = make([]RevokedEntry, 0, len(list.RevokedCertificateEntries))
	for _, e := range list.RevokedCertificateEntries {
		entry := RevokedEntry{
			SerialNumber: e.SerialNumber,
			RevokedAt:    e.RevocationTime,
			Reason:       e.ReasonCode,
		}
		for _, x := range e.Extensions {
			if x.Id.String() == OIDInvalidityDate {
				var at time.Time
				if _, err := asn1.Unmarshal(x.Value, &at); err == nil {
					entry.InvalidityAt = &at
				}
			}
		}
		crl.Revoked = append(crl.Revoked, entry)
	}

	return crl, nil
}

// authorityKeyID extracts the AKI key identifier octets from the list's
// raw extensions. Stdlib exposes AuthorityKeyId on certificates but the
// revocation list keeps it inside Extensions.
func authorityKeyID(list *x509.RevocationList) []byte {
	for _, ext := range list.Extensions {
		if ext.Id.String() != OIDAuthorityKeyID {
			continue
		}
		if id, err := decodeAuthorityKeyID(ext.Value); err == nil {
			return id.(AuthorityKeyID)
		}
	}
	return nil
}
