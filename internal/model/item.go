package model

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
)

// itemWireVersion is the version tag written in front of every item block.
// Bump it when the block layout changes; decoders reject unknown versions.
const itemWireVersion = 1

// maxItemStringLen bounds every string field inside an item block so a
// corrupt length prefix cannot trigger a huge allocation.
const maxItemStringLen = 1 << 16

// Item is the minimal explicit reward-item representation: a type
// identifier, a stack count and an open attribute bag. The payload codec
// treats items as opaque self-delimiting blocks via AppendBinary/ReadItem.
type Item struct {
	Type       string            `json:"type"`
	Count      int               `json:"count"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Clone returns an independent copy; mutating one granted instance must not
// affect another.
func (i Item) Clone() Item {
	c := i
	if i.Attributes != nil {
		c.Attributes = make(map[string]string, len(i.Attributes))
		for k, v := range i.Attributes {
			c.Attributes[k] = v
		}
	}
	return c
}

// Equal compares two items, treating nil and empty attribute bags as equal.
func (i Item) Equal(other Item) bool {
	if i.Type != other.Type || i.Count != other.Count {
		return false
	}
	if len(i.Attributes) != len(other.Attributes) {
		return false
	}
	for k, v := range i.Attributes {
		if other.Attributes[k] != v {
			return false
		}
	}
	return true
}

// AppendBinary appends the item as a self-delimiting block:
// version byte, type string, count, then the attribute bag with keys in
// sorted order so encoding is deterministic.
func (i Item) AppendBinary(dst []byte) []byte {
	dst = append(dst, itemWireVersion)
	dst = appendString(dst, i.Type)
	dst = binary.AppendUvarint(dst, uint64(i.Count))
	dst = binary.AppendUvarint(dst, uint64(len(i.Attributes)))

	keys := make([]string, 0, len(i.Attributes))
	for k := range i.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		dst = appendString(dst, k)
		dst = appendString(dst, i.Attributes[k])
	}
	return dst
}

// ReadItem consumes one item block from r.
func ReadItem(r *bytes.Reader) (Item, error) {
	var item Item

	version, err := r.ReadByte()
	if err != nil {
		return item, fmt.Errorf("reading item version: %w", err)
	}
	if version != itemWireVersion {
		return item, fmt.Errorf("unknown item version %d", version)
	}

	if item.Type, err = readString(r); err != nil {
		return item, fmt.Errorf("reading item type: %w", err)
	}

	count, err := binary.ReadUvarint(r)
	if err != nil {
		return item, fmt.Errorf("reading item count: %w", err)
	}
	item.Count = int(count)

	attrCount, err := binary.ReadUvarint(r)
	if err != nil {
		return item, fmt.Errorf("reading attribute count: %w", err)
	}
	if attrCount > maxItemStringLen {
		return item, fmt.Errorf("attribute count %d out of range", attrCount)
	}
	if attrCount > 0 {
		item.Attributes = make(map[string]string, attrCount)
		for n := uint64(0); n < attrCount; n++ {
			k, err := readString(r)
			if err != nil {
				return item, fmt.Errorf("reading attribute key: %w", err)
			}
			v, err := readString(r)
			if err != nil {
				return item, fmt.Errorf("reading attribute value: %w", err)
			}
			item.Attributes[k] = v
		}
	}
	return item, nil
}

func appendString(dst []byte, s string) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(s)))
	return append(dst, s...)
}

func readString(r *bytes.Reader) (string, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return "", err
	}
	if n > maxItemStringLen {
		return "", fmt.Errorf("string length %d out of range", n)
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
