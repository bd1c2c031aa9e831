package crl

import (
	"github.com/gateway-fm/crl-publisher/internal/pkix"
)

// verifySignature is the only authenticity gate before anything is
// persisted. It runs strictly after issuer resolution. The underlying
// check dispatches on the CRL's own algorithm identifier (RSA-PKCS1,
// ECDSA over named curves, EdDSA); any failure, including an unsupported
// or malformed algorithm, is an invalid_signature.
func verifySignature(c *pkix.CRL, issuer *pkix.Certificate) error {
	if err := c.CheckSignatureFrom(issuer); err != nil {
		return newError("verify signature", CodeInvalidSignature, err)
	}
	return nil
}
