// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ledger

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/sqids/sqids-go"
)

// codeAlphabet avoids characters that are easy to misread on paper (0/O, 1/I/L).
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

var kindPrefixes = map[Kind]string{
	KindMultiQR: "MQ",
	KindTokushu: "TK",
}

var kindTags = map[Kind]uint64{
	KindMultiQR: 1,
	KindTokushu: 2,
}

// Token is the information carried inside a generated code.
type Token struct {
	Kind     Kind
	Quantity int
	IssuedAt time.Time
}

// Generator mints structured credit code tokens of the form MQ-XXXXXXXXXX.
//
// The body is a sqids encoding of (kind, quantity, issue second, random salt),
// so a code can be decoded back to what it was issued for.
type Generator struct {
	encoder *sqids.Sqids
}

// NewGenerator builds a [Generator] on the fixed code alphabet.
func NewGenerator() (*Generator, error) {
	encoder, err := sqids.New(sqids.Options{
		Alphabet:  codeAlphabet,
		MinLength: 12,
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to build code encoder: %w", err)
	}
	return &Generator{encoder: encoder}, nil
}

// Generate mints a new code for kind and quantity issued at at.
func (g *Generator) Generate(kind Kind, quantity int, at time.Time) (string, error) {
	prefix, ok := kindPrefixes[kind]
	if !ok {
		return "", fmt.Errorf("ledger: unknown kind %q", kind)
	}
	if quantity < 1 {
		return "", fmt.Errorf("ledger: quantity %d must be positive", quantity)
	}

	var salt [4]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return "", fmt.Errorf("ledger: failed to read salt: %w", err)
	}

	body, err := g.encoder.Encode([]uint64{
		kindTags[kind],
		uint64(quantity),
		uint64(at.Unix()),
		uint64(binary.BigEndian.Uint32(salt[:])),
	})
	if err != nil {
		return "", fmt.Errorf("ledger: failed to encode code: %w", err)
	}

	return prefix + "-" + body, nil
}

// Decode reads a generated code back. It reports false for codes that were
// not produced by a [Generator], such as externally supplied ones.
func (g *Generator) Decode(code string) (Token, bool) {
	prefix, body, found := strings.Cut(code, "-")
	if !found {
		return Token{}, false
	}

	numbers := g.encoder.Decode(body)
	if len(numbers) != 4 {
		return Token{}, false
	}

	// sqids decodes arbitrary strings; re-encoding rejects non-canonical input.
	if canonical, err := g.encoder.Encode(numbers); err != nil || canonical != body {
		return Token{}, false
	}

	for kind, tag := range kindTags {
		if tag == numbers[0] && kindPrefixes[kind] == prefix {
			return Token{
				Kind:     kind,
				Quantity: int(numbers[1]),
				IssuedAt: time.Unix(int64(numbers[2]), 0).UTC(),
			}, true
		}
	}
	return Token{}, false
}
