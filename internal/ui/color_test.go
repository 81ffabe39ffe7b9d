package ui

import (
	"testing"

	"github.com/fatih/color"
)

func TestInitColors(t *testing.T) {
	original := color.NoColor
	defer func() { color.NoColor = original }()

	tests := []struct {
		name     string
		mode     string
		expected bool
	}{
		{name: "always enables color", mode: "always", expected: false},
		{name: "never disables color", mode: "never", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			InitColors(tt.mode)
			if color.NoColor != tt.expected {
				t.Errorf("InitColors(%q): color.NoColor = %v, expected %v", tt.mode, color.NoColor, tt.expected)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	original := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = original }()

	if got := Label("Profile:"); got != "Profile:" {
		t.Errorf("Label() = %q, want %q", got, "Profile:")
	}
}

func TestDimText(t *testing.T) {
	original := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = original }()

	if got := DimText("/path/to/file.go"); got != "/path/to/file.go" {
		t.Errorf("DimText() = %q, want %q", got, "/path/to/file.go")
	}
}

func TestCountText(t *testing.T) {
	original := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = original }()

	if got := CountText(42); got != "42" {
		t.Errorf("CountText(42) = %q, want %q", got, "42")
	}
	if got := CountText(0); got != "0" {
		t.Errorf("CountText(0) = %q, want %q", got, "0")
	}
}

func TestHeader(t *testing.T) {
	original := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = original }()

	got := Header("Token Report")
	want := "Token Report\n============"
	if got != want {
		t.Errorf("Header() = %q, want %q", got, want)
	}
}

func TestColorVariablesInitialized(t *testing.T) {
	if Red == nil || Yellow == nil || Green == nil || Cyan == nil || Bold == nil || Dim == nil {
		t.Error("expected all color variables to be non-nil")
	}
}

func TestMessageFunctionsDoNotPanic(t *testing.T) {
	original := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = original }()

	Success("test success")
	Warning("test warning")
	Warningf("test %s with %d items", "warning", 3)
	Errorf("test %s with %d items", "error", 3)
}
