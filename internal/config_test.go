package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestSiteConfig_DerivesIndexURLs(t *testing.T) {
	cfg := SiteConfig{BaseURL: "https://example.com/site/pages/socials/"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.IndexURL != "https://example.com/site/pages/socials/data.json" {
		t.Errorf("index_url = %q", cfg.IndexURL)
	}
	if cfg.StoriesURL != "https://example.com/site/pages/socials/stories.json" {
		t.Errorf("stories_url = %q", cfg.StoriesURL)
	}
	if len(cfg.Categories) != 3 || cfg.PerCategory != 3 {
		t.Errorf("defaults = %v / %d", cfg.Categories, cfg.PerCategory)
	}
}

func TestSiteConfig_ExplicitURLsKept(t *testing.T) {
	cfg := SiteConfig{
		BaseURL:    "https://example.com/feed/",
		IndexURL:   "https://cdn.example.com/index.json",
		StoriesURL: "https://cdn.example.com/stories.json",
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.IndexURL != "https://cdn.example.com/index.json" {
		t.Errorf("explicit index_url overwritten: %q", cfg.IndexURL)
	}
}

func TestSiteConfig_RequiresBaseURL(t *testing.T) {
	cfg := SiteConfig{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing base_url should fail validation")
	}
}

func TestFullConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.App.HTTP.Address() != ":8080" {
		t.Errorf("address = %q", cfg.App.HTTP.Address())
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}
