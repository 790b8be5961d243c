package service

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"kitvault-api/internal/model"

	"github.com/klauspost/compress/zstd"
)

// maxPayloadItems bounds the decoded item count so a corrupt payload cannot
// trigger a huge allocation.
const maxPayloadItems = 4096

// ItemCodec turns an ordered item sequence into a single text-safe payload
// string and back. Wire form: uvarint count followed by self-delimiting item
// blocks, zstd-compressed, base64-wrapped so the result embeds cleanly in a
// line-oriented kit file.
type ItemCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewItemCodec creates a codec with shared zstd state.
func NewItemCodec() (*ItemCodec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &ItemCodec{enc: enc, dec: dec}, nil
}

// EncodeItems encodes an ordered item sequence. The empty sequence is valid
// and encodes as count=0; decode of the result yields an empty (non-nil)
// slice, distinct from "no payload".
func (c *ItemCodec) EncodeItems(items []model.Item) (string, error) {
	if len(items) > maxPayloadItems {
		return "", fmt.Errorf("too many items: %d", len(items))
	}

	raw := binary.AppendUvarint(nil, uint64(len(items)))
	for _, item := range items {
		raw = item.AppendBinary(raw)
	}

	compressed := c.enc.EncodeAll(raw, nil)
	return base64.StdEncoding.EncodeToString(compressed), nil
}

// DecodeItems decodes a payload string. An empty payload returns (nil, nil):
// semantically "no payload", not "zero items". Malformed input returns a
// non-nil error; callers log it and treat the kit as empty rather than fail
// hard.
func (c *ItemCodec) DecodeItems(payload string) ([]model.Item, error) {
	if payload == "" {
		return nil, nil
	}

	compressed, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding payload wrapper: %w", err)
	}

	raw, err := c.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing payload: %w", err)
	}

	r := bytes.NewReader(raw)
	count, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("reading item count: %w", err)
	}
	if count > maxPayloadItems {
		return nil, fmt.Errorf("item count %d out of range", count)
	}

	items := make([]model.Item, 0, count)
	for n := uint64(0); n < count; n++ {
		item, err := model.ReadItem(r)
		if err != nil {
			return nil, fmt.Errorf("reading item %d: %w", n, err)
		}
		items = append(items, item)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("payload has %d trailing bytes", r.Len())
	}
	return items, nil
}

// Close releases zstd resources.
func (c *ItemCodec) Close() {
	c.enc.Close()
	c.dec.Close()
}
