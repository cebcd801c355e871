package enums

import "testing"

func TestParseSnapshotBackend(t *testing.T) {
	t.Parallel()

	got, err := ParseSnapshotBackend(" Redis ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != SnapshotBackendRedis {
		t.Fatalf("expected redis, got %q", got)
	}
	if _, err := ParseSnapshotBackend("s3"); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if SnapshotBackend("").IsValid() {
		t.Fatal("empty backend should be invalid")
	}
}

func TestParseCurrency(t *testing.T) {
	t.Parallel()

	if c, err := ParseCurrency("USD"); err != nil || c != CurrencyUSD {
		t.Fatalf("expected USD, got %q err=%v", c, err)
	}
	if _, err := ParseCurrency("usd"); err == nil {
		t.Fatal("currency codes are case sensitive")
	}
}
