package paylink

import "testing"

func TestHashSecretMatchesKeccakVector(t *testing.T) {
	// Keccak256 of the empty string, the digest wallets produce.
	const want = "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"
	if got := HashSecret(""); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestNormalizeHash(t *testing.T) {
	digest := HashSecret("s3cr3t")

	cases := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"plain", digest, digest, true},
		{"prefixed", "0x" + digest, digest, true},
		{"uppercase", "0X" + digest, digest, true},
		{"short", digest[:10], "", false},
		{"not hex", "zz" + digest[2:], "", false},
		{"empty", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NormalizeHash(tc.input)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("NormalizeHash(%q) = (%q, %v), want (%q, %v)", tc.input, got, ok, tc.want, tc.ok)
			}
		})
	}
}
