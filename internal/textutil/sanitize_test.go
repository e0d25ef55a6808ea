package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Plain Title", "Plain Title"},
		{"What? A: Question!", "What A- Question"},
		{"a/b\\c", "a-b-c"},
		{"  spaced  ", "spaced"},
		{"", ""},
		{`pipe|quote"`, "pipequote"},
	}
	for _, tc := range cases {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDisplayTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"the  big   heist", "The Big Heist"},
		{"ALL CAPS", "ALL CAPS"},
		{"", ""},
		{"  mixed Case title ", "Mixed Case Title"},
	}
	for _, tc := range cases {
		if got := DisplayTitle(tc.in); got != tc.want {
			t.Errorf("DisplayTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
