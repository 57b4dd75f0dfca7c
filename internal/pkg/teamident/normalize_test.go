package teamident

import (
	"testing"
)

func TestNormalize_StripClubTokens(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"RC Hades", "hades"},
		{"Hades", "hades"},
		{"K.S.K. Heist", "heist"},
		{"FC Barcelona", "barcelona"},
		{"Arsenal FC", "arsenal"},
		{"Manchester United FC", "manchester united"},
		{"manchester united", "manchester united"},
		{"  rc   Hades  ", "hades"},
		{"St. Pauli", "st pauli"},
		{"", ""},
	}
	for _, tt := range tests {
		got := Normalize(tt.in)
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		min  float64
	}{
		{"Arsenal", "Arsenal FC", 1.0},
		{"Manchester United FC", "manchester united", 1.0},
		{"Man United", "Manchester United", 0.5},
		{"Bayern Munich", "Bayern München", 0.7},
	}
	for _, tt := range tests {
		got := Similarity(tt.a, tt.b)
		if got < tt.min {
			t.Errorf("Similarity(%q, %q) = %.3f, want >= %.2f", tt.a, tt.b, got, tt.min)
		}
		if got > 1.0 {
			t.Errorf("Similarity(%q, %q) = %.3f, must not exceed 1", tt.a, tt.b, got)
		}
	}
}

func TestSimilarity_DistinctTeamsStayApart(t *testing.T) {
	if s := Similarity("Arsenal", "Aston Villa"); s >= 0.72 {
		t.Errorf("Arsenal vs Aston Villa scored %.3f, should be below threshold", s)
	}
	if s := Similarity("Liverpool", "Everton"); s >= 0.72 {
		t.Errorf("Liverpool vs Everton scored %.3f, should be below threshold", s)
	}
}

func TestSplitTeamsFromName(t *testing.T) {
	tests := []struct {
		in         string
		home, away string
		ok         bool
	}{
		{"Arsenal vs Chelsea", "Arsenal", "Chelsea", true},
		{"Arsenal - Chelsea", "Arsenal", "Chelsea", true},
		{"Arsenal — Chelsea", "Arsenal", "Chelsea", true},
		{"Arsenal", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		home, away, ok := SplitTeamsFromName(tt.in)
		if home != tt.home || away != tt.away || ok != tt.ok {
			t.Errorf("SplitTeamsFromName(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.in, home, away, ok, tt.home, tt.away, tt.ok)
		}
	}
}
