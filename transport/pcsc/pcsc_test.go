package pcsc

import "testing"

// The PC/SC-backed Transport itself needs a physical reader and isn't
// exercised here (mirroring the teacher, which never unit-tests
// card/reader.go directly); only the pure reader-name matching used by
// ConnectByName is covered.

func TestContainsFoldIsCaseInsensitive(t *testing.T) {
	cases := []struct {
		s, substr string
		want      bool
	}{
		{"ACS ACR122U PICC Interface", "acr122u", true},
		{"ACS ACR122U PICC Interface", "ACR122U", true},
		{"Generic Smart Card Reader", "omnikey", false},
		{"Generic Smart Card Reader", "", true},
		{"", "x", false},
	}
	for _, c := range cases {
		if got := containsFold(c.s, c.substr); got != c.want {
			t.Errorf("containsFold(%q, %q) = %v, want %v", c.s, c.substr, got, c.want)
		}
	}
}

func TestLowerASCII(t *testing.T) {
	if got := lower("ABC-123-xyz"); got != "abc-123-xyz" {
		t.Errorf("lower() = %q", got)
	}
}
