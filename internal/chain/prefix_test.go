package chain

import "testing"

func TestIdentifierPrefixerStrip(t *testing.T) {
	p := NewIdentifierPrefixer(DefaultContextIdentifier)

	tests := []struct {
		name           string
		token          string
		wantRest       string
		wantIdentifier string
		wantMatched    bool
	}{
		{"expected identifier", "HC1:NCF", "NCF", "HC1:", true},
		{"foreign identifier", "HC2:NCF", "NCF", "HC2:", false},
		{"no identifier", "NCFOXN", "NCFOXN", "", false},
		{"lowercase is not an identifier", "hc1:NCF", "hc1:NCF", "", false},
		{"empty token", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rest, identifier, matched := p.Strip(tt.token)
			if rest != tt.wantRest || identifier != tt.wantIdentifier || matched != tt.wantMatched {
				t.Errorf("Strip(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.token, rest, identifier, matched, tt.wantRest, tt.wantIdentifier, tt.wantMatched)
			}
		})
	}
}

func TestPrefixers(t *testing.T) {
	if got := NewIdentifierPrefixer("HC2:").Prefix("NCF"); got != "HC2:NCF" {
		t.Errorf("Prefix() = %q, want %q", got, "HC2:NCF")
	}
	if got := (NoopPrefixer{}).Prefix("NCF"); got != "NCF" {
		t.Errorf("noop Prefix() = %q, want %q", got, "NCF")
	}
	if _, _, matched := (NoopPrefixer{}).Strip("HC1:NCF"); matched {
		t.Error("noop prefixer must never report a match")
	}
}
