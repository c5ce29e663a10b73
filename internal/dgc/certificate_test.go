package dgc

import (
	"bytes"
	"testing"
)

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "vaccination sample", input: SampleVaccination},
		{name: "recovery sample", input: SampleRecovery},
		{name: "test sample", input: SampleTest},
		{
			name:  "unknown fields are ignored",
			input: `{"ver":"1.2.1","nam":{"fnt":"DOE"},"dob":"1990","extra":true,"r":[{"tg":"840539006"}]}`,
		},
		{name: "not JSON", input: `ver=1`, wantErr: true},
		{name: "missing version", input: `{"nam":{"fnt":"DOE"},"dob":"1990","r":[{}]}`, wantErr: true},
		{name: "missing name", input: `{"ver":"1.2.1","dob":"1990","r":[{}]}`, wantErr: true},
		{name: "missing date of birth", input: `{"ver":"1.2.1","nam":{"fnt":"DOE"},"r":[{}]}`, wantErr: true},
		{name: "no entries", input: `{"ver":"1.2.1","nam":{"fnt":"DOE"},"dob":"1990"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cert, err := ParseJSON([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cert.Version != "1.2.1" {
				t.Errorf("version = %q, want 1.2.1", cert.Version)
			}
		})
	}
}

func TestMustParseSample(t *testing.T) {
	vac := MustParseSample("vaccination")
	if len(vac.Vaccinations) != 1 || vac.Vaccinations[0].DoseNumber != 1 {
		t.Errorf("unexpected vaccination entries: %+v", vac.Vaccinations)
	}
	if len(MustParseSample("test").Tests) != 1 {
		t.Error("expected one test entry")
	}
	if len(MustParseSample("recovery").Recoveries) != 1 {
		t.Error("expected one recovery entry")
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown sample")
		}
	}()
	MustParseSample("unknown")
}

func TestCanonicalJSON(t *testing.T) {
	cert := MustParseSample("vaccination")

	first, err := cert.CanonicalJSON()
	if err != nil {
		t.Fatalf("could not canonicalize: %v", err)
	}
	second, err := cert.CanonicalJSON()
	if err != nil {
		t.Fatalf("could not canonicalize: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("canonical JSON is not stable")
	}
	// keys are sorted, so "dob" comes before "nam" and "ver"
	if !bytes.HasPrefix(first, []byte(`{"dob":`)) {
		t.Errorf("expected sorted keys, got %s", first)
	}

	reparsed, err := ParseJSON(first)
	if err != nil {
		t.Fatalf("could not parse canonical JSON: %v", err)
	}
	if reparsed.Name.FamilyName != "Musterfrau-Gößinger" {
		t.Errorf("family name = %q", reparsed.Name.FamilyName)
	}
}
