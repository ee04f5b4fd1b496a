package bootstrap

import (
	"testing"

	"github.com/dakshin/partsquote/internal/config"
	"github.com/dakshin/partsquote/internal/infrastructure/imagesearch"
)

func TestNewEnricherSelectsProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		model   string
		wantErr bool
	}{
		{name: "openrouter default", cfg: config.Config{OpenRouterAPIKey: "k", OpenRouterModel: "m1"}, model: "m1"},
		{name: "anthropic", cfg: config.Config{LLMProvider: "anthropic", AnthropicAPIKey: "k", AnthropicModel: "m2"}, model: "m2"},
		{name: "missing key", cfg: config.Config{LLMProvider: "openrouter"}, wantErr: true},
		{name: "unknown provider", cfg: config.Config{LLMProvider: "ollama"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enricher, err := newEnricher(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("newEnricher() error = %v", err)
			}
			if enricher.Model() != tt.model {
				t.Fatalf("expected model %q, got %q", tt.model, enricher.Model())
			}
		})
	}
}

func TestRankingPolicyKeepsDefaultsUnlessOverridden(t *testing.T) {
	policy := rankingPolicy(config.Config{ImagePreferredDomains: []string{"partsouq.com"}})
	if len(policy.Blacklist) != len(imagesearch.DefaultBlacklist) {
		t.Fatalf("expected default blacklist, got %v", policy.Blacklist)
	}
	if len(policy.PreferredDomains) != 1 || policy.PreferredDomains[0] != "partsouq.com" {
		t.Fatalf("expected preferred domain override, got %v", policy.PreferredDomains)
	}
}
