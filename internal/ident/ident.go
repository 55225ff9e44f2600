// Package ident computes stable content identities for reviewable items.
//
// The identity covers the fields that define the pedagogical unit (the verb
// and sense number, or the scenario setting), not the display text, so that
// regenerated definitions or examples do not reset a learner's scheduling
// history for the same unit.
package ident

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"

	"github.com/fluentvoice/synapse/internal/domain"
)

// Normalize returns the canonical identity string for an item. Parts are
// lowercased, whitespace-trimmed, and joined with newlines so adjacent
// fields cannot collide.
func Normalize(item domain.Item) string {
	parts := []string{string(item.Kind), item.Verb}
	switch item.Kind {
	case domain.ItemScenario:
		parts = append(parts, item.Character, item.Situation)
	default:
		parts = append(parts, "sense:"+strconv.Itoa(item.SenseNumber))
	}

	for i, p := range parts {
		p = strings.ToLower(p)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		parts[i] = p
	}
	return strings.Join(parts, "\n")
}

// Hash returns the SHA-256 of the normalized identity as a hex string.
func Hash(item domain.Item) string {
	normalized := Normalize(item)
	hashBytes := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hashBytes)
}
