// Package service provides functionality for URL shortening and resolution.
package service

import (
	"crypto/rand"
	"io"
	"strings"
)

// DefaultIDLength is the number of characters in a short id.
const DefaultIDLength = 12

// IDGenerator produces random short ids over a Base62 alphabet.
type IDGenerator struct {
	numChars int       // The desired length of the short id.
	elements string    // Base62 encoding elements (0-9, a-z, A-Z).
	random   io.Reader // Entropy source.
}

// NewIDGenerator creates a generator of ids with numChars characters.
func NewIDGenerator(numChars int) *IDGenerator {
	if numChars <= 0 {
		numChars = DefaultIDLength
	}
	return &IDGenerator{
		numChars: numChars,
		elements: "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ",
		random:   rand.Reader,
	}
}

// Generate returns a new id. Bytes at or above the largest multiple of the
// alphabet size are discarded so every symbol is equally likely.
func (g *IDGenerator) Generate() (string, error) {
	limit := byte(256 - 256%len(g.elements))

	out := make([]byte, 0, g.numChars)
	buf := make([]byte, g.numChars+g.numChars/2)
	for len(out) < g.numChars {
		if _, err := io.ReadFull(g.random, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, g.elements[int(b)%len(g.elements)])
			if len(out) == g.numChars {
				break
			}
		}
	}
	return string(out), nil
}

// Valid reports whether id has the generator's length and alphabet.
func (g *IDGenerator) Valid(id string) bool {
	if len(id) != g.numChars {
		return false
	}
	for i := 0; i < len(id); i++ {
		if strings.IndexByte(g.elements, id[i]) < 0 {
			return false
		}
	}
	return true
}
