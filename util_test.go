package dbus

import (
	"bytes"
	"testing"
)

func TestEscapeBusLabel(t *testing.T) {
	tt := map[string]string{
		"":                                     "_",
		"dbus":                                 "dbus",
		"dbus.service":                         "dbus_2eservice",
		"foo@bar.service":                      "foo_40bar_2eservice",
		"foo_bar@bar.service":                  "foo_5fbar_40bar_2eservice",
		"systemd-networkd-wait-online.service": "systemd_2dnetworkd_2dwait_2donline_2eservice",
		"555":                                  "_3555",
	}

	buf := &bytes.Buffer{}
	for name, want := range tt {
		buf.Reset()
		escapeBusLabel(name, buf)
		if got := buf.String(); got != want {
			t.Errorf("escapeBusLabel(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestHasNamespace(t *testing.T) {
	tt := []struct {
		x, ns string
		want  bool
	}{
		{"org.freedesktop.DBus", "org.freedesktop", true},
		{"org.freedesktop", "org.freedesktop", true},
		{"org.freedesktopX", "org.freedesktop", false},
		{"org.free", "org.freedesktop", false},
	}
	for _, tc := range tt {
		if got := hasNamespace(tc.x, tc.ns); got != tc.want {
			t.Errorf("hasNamespace(%q, %q) = %v, want %v", tc.x, tc.ns, got, tc.want)
		}
	}
}

// S6: path-match edge cases, including the case where a trailing-slash
// prefix matches a deeper path even though the deeper path itself does
// not end in "/".
func TestIsPathMatch(t *testing.T) {
	tt := []struct {
		a, b string
		want bool
	}{
		{"/aa/bb/", "/", true},
		{"/aa/bb/", "/aa/", true},
		{"/aa/bb/", "/aa/bb/", true},
		{"/aa/bb/", "/aa/bb/cc/", true},
		{"/aa/bb/", "/aa/bb/cc", true},
		{"/aa/bb/", "/aa/b", false},
		{"/aa/bb/", "/aa", false},
		{"/aa/bb/", "/aa/bb", false},
		{"/aa/bb", "/aa/bb", true},
		{"/aa/bb/cc", "/aa/bb/", true},
		{"/aa", "/bb", false},
	}
	for _, tc := range tt {
		if got := isPathMatch(tc.a, tc.b); got != tc.want {
			t.Errorf("isPathMatch(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestNextOffset(t *testing.T) {
	tt := []struct {
		current, align, wantNext, wantPad int
	}{
		{0, 4, 0, 0},
		{1, 4, 4, 3},
		{4, 4, 4, 0},
		{5, 8, 8, 3},
	}
	for _, tc := range tt {
		next, pad := nextOffset(tc.current, tc.align)
		if next != tc.wantNext || pad != tc.wantPad {
			t.Errorf("nextOffset(%d, %d) = %d, %d, want %d, %d", tc.current, tc.align, next, pad, tc.wantNext, tc.wantPad)
		}
	}
}
