package storage

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateAPIKey(t *testing.T) {
	key := generateAPIKey()
	if !strings.HasPrefix(key, "zkt_key_") {
		t.Errorf("generateAPIKey() = %v, want zkt_key_ prefix", key)
	}
	if len(key) != len("zkt_key_")+48 {
		t.Errorf("generateAPIKey() length = %d", len(key))
	}
	if key == generateAPIKey() {
		t.Error("generateAPIKey() returned the same key twice")
	}
}

func TestHashAPIKey(t *testing.T) {
	if hashAPIKey("a") != hashAPIKey("a") {
		t.Error("hashAPIKey() is not deterministic")
	}
	if hashAPIKey("a") == hashAPIKey("b") {
		t.Error("hashAPIKey() collided")
	}
}

func TestMillisRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 14, 15, 9, 26, 535_000_000, time.UTC)
	if got := fromMillis(toMillis(ts)); !got.Equal(ts) {
		t.Errorf("fromMillis(toMillis(%v)) = %v", ts, got)
	}
}

func TestMissionsEncoding(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		want string
	}{
		{"nil", nil, "[]"},
		{"empty", []string{}, "[]"},
		{"values", []string{"m0", "m5"}, `["m0","m5"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := encodeMissions(tt.ids)
			if err != nil {
				t.Fatalf("encodeMissions() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("encodeMissions() = %s, want %s", data, tt.want)
			}
			back, err := decodeMissions(data)
			if err != nil {
				t.Fatalf("decodeMissions() error = %v", err)
			}
			if len(back) != len(tt.ids) {
				t.Errorf("decodeMissions() = %v, want %v", back, tt.ids)
			}
		})
	}

	if _, err := decodeMissions([]byte("{")); err == nil {
		t.Error("decodeMissions() accepted invalid JSON")
	}
}

func TestDefaultLimit(t *testing.T) {
	tests := map[int]int{0: 100, -1: 100, 5: 5, 1000: 1000, 1001: 100}
	for in, want := range tests {
		if got := defaultLimit(in); got != want {
			t.Errorf("defaultLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestCompletionWhere(t *testing.T) {
	tests := []struct {
		name   string
		filter CompletionFilter
		ph     placeholder
		want   string
		args   int
	}{
		{"empty", CompletionFilter{}, sqlitePlaceholder, "", 0},
		{"wallet sqlite", CompletionFilter{Wallet: "G1"}, sqlitePlaceholder, " WHERE wallet = ?", 1},
		{"all postgres", CompletionFilter{Wallet: "G1", MissionID: "m0", Evidence: "abc"}, postgresPlaceholder,
			" WHERE wallet = $1 AND mission_id = $2 AND evidence = $3", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := completionWhere(tt.filter, tt.ph)
			if got := w.String(); got != tt.want {
				t.Errorf("completionWhere() = %q, want %q", got, tt.want)
			}
			if len(w.args) != tt.args {
				t.Errorf("completionWhere() args = %v, want %d", w.args, tt.args)
			}
		})
	}

	w := completionWhere(CompletionFilter{MissionID: "m0"}, postgresPlaceholder)
	if got := w.next(10); got != "$2" {
		t.Errorf("next() = %q, want $2", got)
	}
}
