// Package nexus holds the domain types shared across the provider cache
// and its embedding layers: provider identifiers, sentinel errors, and
// per-request context plumbing.
package nexus

import "context"

// Canonical provider names. Each provider is an independent upstream data
// source with its own TTL and request budget.
const (
	ProviderTechnical    = "taapi"      // technical-indicator service
	ProviderSocial       = "lunarcrush" // social-metrics service
	ProviderFundamentals = "cryptorank" // market-fundamentals service
	ProviderOnChain      = "onchain"    // on-chain-metrics service
	ProviderAstro        = "astro"      // local astronomical calculator, zero cost
)

// Providers lists all known provider names in stable order.
var Providers = []string{
	ProviderTechnical,
	ProviderSocial,
	ProviderFundamentals,
	ProviderOnChain,
	ProviderAstro,
}

type ctxKey int

const ctxKeyRequestID ctxKey = iota

// ContextWithRequestID returns a context carrying the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// RequestIDFromContext extracts the request ID from context, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}
