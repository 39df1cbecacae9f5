package fetch

import (
	"context"
	"errors"
	"testing"

	"github.com/tidwall/gjson"

	nexus "github.com/VL13N/FullStackNexus-sub002/internal"
	"github.com/VL13N/FullStackNexus-sub002/internal/config"
)

func testEntries() []config.ProviderEntry {
	off := false
	return []config.ProviderEntry{
		{Name: nexus.ProviderTechnical, BaseURL: "https://api.taapi.io", APIKey: "k1"},
		{Name: nexus.ProviderSocial, BaseURL: "https://lunarcrush.com/api4", APIKey: "k2"},
		{Name: nexus.ProviderFundamentals, BaseURL: "https://api.cryptorank.io/v2", APIKey: "k3", Enabled: &off},
		{Name: nexus.ProviderOnChain, BaseURL: "https://rpc.example.com", OAuth: &config.OAuthEntry{
			ClientID: "id", ClientSecret: "sec", TokenURL: "https://auth.example.com/token",
		}},
		{Name: nexus.ProviderAstro},
	}
}

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry(testEntries(), nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	if reg.Client(nexus.ProviderTechnical) == nil {
		t.Error("technical client missing")
	}
	if reg.Client(nexus.ProviderOnChain) == nil {
		t.Error("on-chain client missing")
	}
	if reg.Client(nexus.ProviderFundamentals) != nil {
		t.Error("disabled provider must have no client")
	}
	if reg.Client(nexus.ProviderAstro) != nil {
		t.Error("local provider must have no network client")
	}
}

func TestRegistry_FetchFunc_Astro(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry(testEntries(), nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	fn, err := reg.FetchFunc(nexus.ProviderAstro, "/moon-phase", nil)
	if err != nil {
		t.Fatalf("FetchFunc: %v", err)
	}
	payload, err := fn(context.Background())
	if err != nil {
		t.Fatalf("fn: %v", err)
	}
	if !gjson.GetBytes(payload, "phase").Exists() {
		t.Fatalf("payload missing phase: %s", payload)
	}
}

func TestRegistry_FetchFunc_UnknownProvider(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry(testEntries(), nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	if _, err := reg.FetchFunc("kraken", "/ticker", nil); !errors.Is(err, nexus.ErrProviderUnknown) {
		t.Fatalf("err = %v, want ErrProviderUnknown", err)
	}
}
