package identity

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "123456789", "123456789"},
		{"user mention", "<@123456789>", "123456789"},
		{"nickname mention", "<@!123456789>", "123456789"},
		{"role mention", "<@&123456789>", "123456789"},
		{"channel mention", "<#123456789>", "123456789"},
		{"zero padded", "000123", "123"},
		{"padded mention", "<@000123>", "123"},
		{"whitespace", "  42  ", "42"},
		{"all zeros", "000", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.in)
			if err != nil {
				t.Fatalf("Normalize(%q) error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeInvalid(t *testing.T) {
	for _, in := range []string{"", "   ", "<@>", "abc", "12a3", "<@12 3>"} {
		if _, err := Normalize(in); err != ErrInvalid {
			t.Fatalf("Normalize(%q) = %v, want ErrInvalid", in, err)
		}
	}
}

func TestNormalizeEqualAcrossForms(t *testing.T) {
	a, _ := Normalize("<@!000987>")
	b, _ := Normalize("987")
	if a != b {
		t.Fatalf("expected equal canonical forms, got %q and %q", a, b)
	}
}
