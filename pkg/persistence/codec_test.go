package persistence

import (
	"bytes"
	"testing"
)

func sampleDocument() Document {
	return Document{
		Table: map[string]map[string]float64{
			"anger": {"furious": 1.4, "fed up": 1.1},
			"joy":   {"happy": 1.0, "over the moon": 1.5},
			"sad":   {"gloomy": 0.9},
		},
		Hash:      "a1b2c3",
		FetchedAt: 1700000000,
	}
}

func TestCodecRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "compressed"
		}
		t.Run(name, func(t *testing.T) {
			codec := NewCodec(compress)
			doc := sampleDocument()

			raw, err := codec.Encode(doc)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if !bytes.HasPrefix(raw, []byte(MagicBytes)) {
				t.Errorf("encoded payload missing magic prefix %q", MagicBytes)
			}

			got, err := codec.Decode(raw)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if got.Hash != doc.Hash {
				t.Errorf("hash = %q, want %q", got.Hash, doc.Hash)
			}
			if got.FetchedAt != doc.FetchedAt {
				t.Errorf("fetchedAt = %d, want %d", got.FetchedAt, doc.FetchedAt)
			}
			if len(got.Table) != len(doc.Table) {
				t.Fatalf("table has %d emotions, want %d", len(got.Table), len(doc.Table))
			}
			if w := got.Table["joy"]["over the moon"]; w != 1.5 {
				t.Errorf("joy[over the moon] = %v, want 1.5", w)
			}
		})
	}
}

func TestCodecRejectsBadMagic(t *testing.T) {
	codec := NewCodec(false)
	raw, err := codec.Encode(sampleDocument())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	raw[0] = 'X'

	if _, err := codec.Decode(raw); err == nil {
		t.Error("expected error for corrupted magic bytes, got nil")
	}
}

func TestCodecRejectsChecksumMismatch(t *testing.T) {
	codec := NewCodec(false)
	raw, err := codec.Encode(sampleDocument())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	// Flip a payload byte past the header.
	raw[len(raw)-1] ^= 0xff

	if _, err := codec.Decode(raw); err == nil {
		t.Error("expected error for checksum mismatch, got nil")
	}
}

func TestCodecRejectsTruncated(t *testing.T) {
	codec := NewCodec(false)
	raw, err := codec.Encode(sampleDocument())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	for _, n := range []int{0, 3, len(MagicBytes), 10} {
		if n > len(raw) {
			continue
		}
		if _, err := codec.Decode(raw[:n]); err == nil {
			t.Errorf("expected error decoding %d-byte prefix, got nil", n)
		}
	}
}
