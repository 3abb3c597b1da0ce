package reason

import "testing"

func TestWordOverlap(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "the sky is blue", "the sky is blue", 1},
		{"identical ignoring case", "The Sky", "the sky", 1},
		{"disjoint", "alpha beta", "gamma delta", 0},
		{"both empty", "", "", 1},
		{"one empty", "something", "", 0},
		{"half shared", "a b c d", "a b e f", 1.0 / 3.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := wordOverlap(tc.a, tc.b); !almostEqual(got, tc.want) {
				t.Fatalf("wordOverlap(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestWordOverlap_Symmetric(t *testing.T) {
	t.Parallel()

	a := "rayleigh scattering explains the blue sky"
	b := "the blue sky comes from scattering"
	if wordOverlap(a, b) != wordOverlap(b, a) {
		t.Fatal("wordOverlap must be symmetric")
	}
}

func almostEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
