package util

import "testing"

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		name  string
		value string
		set   bool
		def   bool
		want  bool
	}{
		{"unset uses default", "", false, true, true},
		{"blank uses default", "   ", true, false, false},
		{"true", "true", true, false, true},
		{"one", "1", true, false, true},
		{"YES uppercase", "YES", true, false, true},
		{"on padded", " on ", true, false, true},
		{"false", "false", true, true, false},
		{"zero", "0", true, true, false},
		{"off", "off", true, true, false},
		{"invalid uses default", "maybe", true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const key = "BRAVECALL_TEST_FLAG"
			if tt.set {
				t.Setenv(key, tt.value)
			}
			if got := ParseBoolEnv(key, tt.def); got != tt.want {
				t.Errorf("ParseBoolEnv(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("BRAVECALL_TEST_ADDR", "  :9090 ")
	if got := EnvOrDefault("BRAVECALL_TEST_ADDR", ":8080"); got != ":9090" {
		t.Errorf("expected :9090, got %q", got)
	}
	if got := EnvOrDefault("BRAVECALL_TEST_UNSET", ":8080"); got != ":8080" {
		t.Errorf("expected fallback, got %q", got)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty("", "  ", "flag", "env"); got != "flag" {
		t.Errorf("expected 'flag', got %q", got)
	}
	if got := FirstNonEmpty(); got != "" {
		t.Errorf("expected empty result, got %q", got)
	}
}
