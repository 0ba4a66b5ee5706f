package sha256

import "testing"

func TestFingerprintDeterministic(t *testing.T) {
	t.Parallel()

	got := Fingerprint([]byte("hello world"))
	if want := "b94d27b9934d3e08"; got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if again := Fingerprint([]byte("hello world")); again != got {
		t.Fatalf("expected deterministic fingerprint, got %s vs %s", got, again)
	}
	if Fingerprint([]byte("hello world!")) == got {
		t.Fatal("expected different content to change the fingerprint")
	}
}
