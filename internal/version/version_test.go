package version

import "testing"

func TestGetPrefersLinkerValues(t *testing.T) {
	oldVersion, oldDate, oldCommit := version, buildDate, gitCommit
	t.Cleanup(func() { version, buildDate, gitCommit = oldVersion, oldDate, oldCommit })

	version, buildDate, gitCommit = "v1.4.0", "2026-01-02T03:04:05Z", "abc123"

	got := Get()
	want := Info{Version: "v1.4.0", BuildDate: "2026-01-02T03:04:05Z", GitCommit: "abc123"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestGetDefaults(t *testing.T) {
	got := Get()
	if got.Version == "" || got.BuildDate == "" || got.GitCommit == "" {
		t.Errorf("expected every field to be set, got %+v", got)
	}
}
