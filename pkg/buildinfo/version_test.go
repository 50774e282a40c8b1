package buildinfo

import (
	"runtime"
	"strings"
	"testing"
)

func TestGetPrefersLdflags(t *testing.T) {
	oldV, oldC, oldD := Version, Commit, Date
	t.Cleanup(func() { Version, Commit, Date = oldV, oldC, oldD })
	Version, Commit, Date = "v0.3.0", "abc123", "2026-01-02T03:04:05Z"

	got := Get()
	want := Info{Version: "v0.3.0", Commit: "abc123", Date: "2026-01-02T03:04:05Z", GoVersion: runtime.Version()}
	if got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestTemplate(t *testing.T) {
	tmpl := Template()
	if !strings.HasPrefix(tmpl, "{{.Name}} version ") {
		t.Errorf("Template() = %q", tmpl)
	}
	if !strings.Contains(tmpl, "go: "+runtime.Version()) {
		t.Errorf("Template() = %q, want the Go version", tmpl)
	}
}

func TestInfoString(t *testing.T) {
	s := Info{Version: "v1", Commit: "c", Date: "d", GoVersion: "go1.25.0"}.String()
	if s != "version: v1\ncommit: c\nbuilt: d\ngo: go1.25.0" {
		t.Errorf("String() = %q", s)
	}
}
