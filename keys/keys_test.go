package keys

import (
	"strings"
	"testing"
)

func TestEncodeDeterministic(t *testing.T) {
	enc := Encoder{Namespace: "model1"}

	k1 := enc.Encode("hello")
	k2 := enc.Encode("hello")
	if k1 != k2 {
		t.Errorf("same input produced different keys: %q vs %q", k1, k2)
	}

	// Stable across encoder instances too
	if k3 := (Encoder{Namespace: "model1"}).Encode("hello"); k3 != k1 {
		t.Errorf("fresh encoder produced different key: %q vs %q", k3, k1)
	}
}

func TestEncodeKnownDigest(t *testing.T) {
	// sha256("hello"), pinned so the scheme cannot drift silently across
	// releases and invalidate existing caches.
	const helloDigest = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

	got := Encoder{Namespace: "ns"}.Encode("hello")
	if want := "ns:" + helloDigest; got != want {
		t.Errorf("Encode(hello) = %q, want %q", got, want)
	}
}

func TestEncodeDistinctTexts(t *testing.T) {
	enc := Encoder{Namespace: "model1"}

	texts := []string{"a", "b", "ab", "", "a ", " a", "hello", "hellp"}
	seen := make(map[string]string)
	for _, text := range texts {
		key := enc.Encode(text)
		if prev, ok := seen[key]; ok {
			t.Errorf("texts %q and %q collided on key %q", prev, text, key)
		}
		seen[key] = text
	}
}

func TestEncodeNamespaceIsolation(t *testing.T) {
	k1 := Encoder{Namespace: "model1"}.Encode("x")
	k2 := Encoder{Namespace: "model2"}.Encode("x")
	if k1 == k2 {
		t.Errorf("different namespaces produced the same key %q", k1)
	}
}

func TestEncodeHidesText(t *testing.T) {
	text := "secret payload / with : unsafe * chars"
	key := Encoder{Namespace: "ns"}.Encode(text)
	if strings.Contains(key, "secret") {
		t.Errorf("raw text leaked into key %q", key)
	}
}

func TestPrefix(t *testing.T) {
	enc := Encoder{Namespace: "model1"}
	key := enc.Encode("anything")
	if !strings.HasPrefix(key, enc.Prefix()) {
		t.Errorf("key %q does not start with prefix %q", key, enc.Prefix())
	}
}

func TestSplitKey(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
	}{
		{"plain", "model1"},
		{"empty", ""},
		{"with separator", "org:team:model"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := Encoder{Namespace: tt.namespace}.Encode("some text")

			ns, digest, ok := SplitKey(key)
			if !ok {
				t.Fatalf("SplitKey(%q) not ok", key)
			}
			if ns != tt.namespace {
				t.Errorf("namespace = %q, want %q", ns, tt.namespace)
			}
			if len(digest) != 64 {
				t.Errorf("digest length = %d, want 64", len(digest))
			}
			if !InNamespace(key, tt.namespace) {
				t.Errorf("InNamespace(%q, %q) = false", key, tt.namespace)
			}
		})
	}
}

func TestSplitKeyRejectsForeignKeys(t *testing.T) {
	for _, key := range []string{"", "short", "ns:notahexdigest", strings.Repeat("z", 70)} {
		if _, _, ok := SplitKey(key); ok {
			t.Errorf("SplitKey(%q) unexpectedly ok", key)
		}
	}
}
