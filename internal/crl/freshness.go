package crl

import (
	"github.com/gateway-fm/crl-publisher/internal/pkix"
)

// supersedes decides whether the incoming CRL replaces the stored one
// for the same issuer and type. CRL numbers take precedence when both
// sides carry one: incoming must be strictly greater, regardless of
// dates. Without numbers on both sides, thisUpdate must be strictly
// later. No comparable signal at all means not-newer: the arbiter
// rejects rather than guesses.
func supersedes(incoming, stored *pkix.CRL) bool {
	if incoming.Number != nil && stored.Number != nil {
		return incoming.Number.Cmp(stored.Number) > 0
	}
	if !incoming.ThisUpdate.IsZero() && !stored.ThisUpdate.IsZero() {
		return incoming.ThisUpdate.After(stored.ThisUpdate)
	}
	return false
}
