package domain

import "testing"

func TestDeriveIdentity(t *testing.T) {
	cases := []struct {
		name     string
		username string
		want     string
	}{
		{"short name padded", "alice", "616c696365000000"},
		{"exact length", "8chars!!", "3863686172732121"},
		{"long name truncated", "a-much-longer-username", "612d6d7563682d6c"},
		{"single character", "a", "6100000000000000"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveIdentity(tc.username)
			if got != tc.want {
				t.Fatalf("DeriveIdentity(%q) = %q, want %q", tc.username, got, tc.want)
			}
			if len(got) != 16 {
				t.Fatalf("identity must be 16 characters, got %d", len(got))
			}
		})
	}
}

func TestDeriveIdentity_Deterministic(t *testing.T) {
	if DeriveIdentity("bob") != DeriveIdentity("bob") {
		t.Fatalf("identity derivation must be deterministic")
	}
	if DeriveIdentity("bob") == DeriveIdentity("rob") {
		t.Fatalf("distinct usernames must not collide on short inputs")
	}
}
