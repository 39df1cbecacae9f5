package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/dnscache"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	nexus "github.com/VL13N/FullStackNexus-sub002/internal"
	"github.com/VL13N/FullStackNexus-sub002/internal/astro"
	"github.com/VL13N/FullStackNexus-sub002/internal/config"
)

// Registry holds one client per enabled upstream provider plus the local
// astronomy calculator, which needs no network at all.
type Registry struct {
	clients map[string]*Client
	astro   *astro.Calculator
}

// NewRegistry builds provider clients from configuration. All clients share
// one DNS-cached transport; the on-chain provider wraps it with an OAuth2
// client-credentials token source.
func NewRegistry(entries []config.ProviderEntry, resolver *dnscache.Resolver) (*Registry, error) {
	calc, err := astro.New()
	if err != nil {
		return nil, fmt.Errorf("astronomy calculator: %w", err)
	}

	base := NewTransport(resolver)
	reg := &Registry{
		clients: make(map[string]*Client, len(entries)),
		astro:   calc,
	}

	for _, e := range entries {
		if !e.IsEnabled() || e.Name == nexus.ProviderAstro {
			continue
		}
		reg.clients[e.Name] = buildClient(e, base)
	}
	return reg, nil
}

func buildClient(e config.ProviderEntry, base http.RoundTripper) *Client {
	hc := &http.Client{Transport: base, Timeout: e.Timeout()}

	if e.OAuth != nil {
		cc := clientcredentials.Config{
			ClientID:     e.OAuth.ClientID,
			ClientSecret: e.OAuth.ClientSecret,
			TokenURL:     e.OAuth.TokenURL,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, hc)
		return NewClient(e.Name, e.BaseURL, cc.Client(ctx), nil)
	}

	var auth func(*http.Request)
	switch e.Name {
	case nexus.ProviderTechnical:
		auth = QueryAuth("secret", e.APIKey)
	case nexus.ProviderFundamentals:
		auth = QueryAuth("api_key", e.APIKey)
	default:
		if e.APIKey != "" {
			auth = BearerAuth(e.APIKey)
		}
	}
	return NewClient(e.Name, e.BaseURL, hc, auth)
}

// Client returns the network client for a provider, or nil for providers
// served locally.
func (r *Registry) Client(provider string) *Client {
	return r.clients[provider]
}

// FetchFunc returns the upstream callback for a provider endpoint. The
// astronomy provider is computed locally and never spends network budget
// beyond its own recorded call.
func (r *Registry) FetchFunc(provider, endpoint string, params map[string]string) (FetchFunc, error) {
	if provider == nexus.ProviderAstro {
		return func(context.Context) ([]byte, error) {
			return r.astro.Payload(time.Now().UTC()), nil
		}, nil
	}
	c, ok := r.clients[provider]
	if !ok {
		return nil, fmt.Errorf("%s: %w", provider, nexus.ErrProviderUnknown)
	}
	return c.FetchFunc(endpoint, params), nil
}
