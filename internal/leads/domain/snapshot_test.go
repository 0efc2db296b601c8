package domain

import (
	"strings"
	"testing"
)

func TestSnapshotEnvelopeCarriesKind(t *testing.T) {
	raw, err := EncodeSnapshot(StatusSnapshot{Status: LeadStatusClosed})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(raw), `"kind":"status"`) {
		t.Fatalf("expected kind in envelope, got %s", raw)
	}

	decoded, err := DecodeSnapshot(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	status, ok := decoded.(StatusSnapshot)
	if !ok || status.Status != LeadStatusClosed {
		t.Fatalf("unexpected decoded snapshot %#v", decoded)
	}
}

func TestNilSnapshotEncodesToNull(t *testing.T) {
	raw, err := EncodeSnapshot(nil)
	if err != nil || raw != nil {
		t.Fatalf("expected nil encoding, got %s, %v", raw, err)
	}
	s, err := DecodeSnapshot(nil)
	if err != nil || s != nil {
		t.Fatalf("expected nil snapshot, got %v, %v", s, err)
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	if _, err := DecodeSnapshot([]byte(`{"kind":"mystery","data":{}}`)); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
