package service

import (
	"encoding/base64"
	"testing"

	"kitvault-api/internal/model"
)

func newTestCodec(t *testing.T) *ItemCodec {
	t.Helper()
	codec, err := NewItemCodec()
	if err != nil {
		t.Fatalf("NewItemCodec: %v", err)
	}
	t.Cleanup(codec.Close)
	return codec
}

func TestCodecRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	items := []model.Item{
		{Type: "apple", Count: 5},
		{Type: "sword", Count: 1, Attributes: map[string]string{"material": "iron"}},
		{Type: "bread", Count: 64},
	}

	payload, err := codec.EncodeItems(items)
	if err != nil {
		t.Fatalf("EncodeItems: %v", err)
	}
	if payload == "" {
		t.Fatal("encoded payload is empty")
	}

	got, err := codec.DecodeItems(payload)
	if err != nil {
		t.Fatalf("DecodeItems: %v", err)
	}
	if len(got) != len(items) {
		t.Fatalf("decoded %d items, want %d", len(got), len(items))
	}
	for i := range items {
		if !got[i].Equal(items[i]) {
			t.Errorf("item %d mismatch: got %+v, want %+v", i, got[i], items[i])
		}
	}
}

func TestCodecEmptyPayloadIsAbsent(t *testing.T) {
	codec := newTestCodec(t)

	got, err := codec.DecodeItems("")
	if err != nil {
		t.Fatalf("DecodeItems(\"\"): %v", err)
	}
	if got != nil {
		t.Errorf("empty payload should decode to nil, got %v", got)
	}
}

func TestCodecEmptySequence(t *testing.T) {
	codec := newTestCodec(t)

	payload, err := codec.EncodeItems(nil)
	if err != nil {
		t.Fatalf("EncodeItems(nil): %v", err)
	}
	if payload == "" {
		t.Fatal("an encoded empty sequence must not be the empty string")
	}

	got, err := codec.DecodeItems(payload)
	if err != nil {
		t.Fatalf("DecodeItems: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestCodecRejectsMalformedPayloads(t *testing.T) {
	codec := newTestCodec(t)

	cases := map[string]string{
		"not base64":     "!!!not-base64!!!",
		"not zstd":       base64.StdEncoding.EncodeToString([]byte("plain bytes")),
		"trailing bytes": "",
	}

	// Build a payload with valid framing plus trailing garbage.
	valid, err := codec.EncodeItems([]model.Item{{Type: "apple", Count: 1}})
	if err != nil {
		t.Fatalf("EncodeItems: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(valid)
	if err != nil {
		t.Fatalf("decoding own payload: %v", err)
	}
	plain, err := codec.dec.DecodeAll(raw, nil)
	if err != nil {
		t.Fatalf("decompressing own payload: %v", err)
	}
	tampered := codec.enc.EncodeAll(append(plain, 0xFF), nil)
	cases["trailing bytes"] = base64.StdEncoding.EncodeToString(tampered)

	for name, payload := range cases {
		if _, err := codec.DecodeItems(payload); err == nil {
			t.Errorf("%s: expected decode error, got none", name)
		}
	}
}
