package ident

import (
	"testing"

	"github.com/fluentvoice/synapse/internal/domain"
)

func TestNormalize(t *testing.T) {
	item := domain.Item{
		Kind:        domain.ItemVerbSense,
		Verb:        "  Break Down \r\n",
		SenseNumber: 1,
	}
	expected := "verb_sense\nbreak down\nsense:1"
	if got := Normalize(item); got != expected {
		t.Errorf("Expected normalized string to be %q, but got %q", expected, got)
	}
}

func TestHash(t *testing.T) {
	t.Run("generates correct sense hash", func(t *testing.T) {
		item := domain.Item{
			Kind:        domain.ItemVerbSense,
			Verb:        "break down",
			SenseNumber: 1,
		}
		// Hash of "verb_sense\nbreak down\nsense:1"
		expected := "bbd51aeda7eaf5465d8d4793f94e225b9e5fa4e2241e837e99d5da09deb8f51d"
		if got := Hash(item); got != expected {
			t.Errorf("Expected hash %q, but got %q", expected, got)
		}
	})

	t.Run("generates correct scenario hash", func(t *testing.T) {
		item := domain.Item{
			Kind:      domain.ItemScenario,
			Verb:      "get along with",
			Character: "Maya",
			Situation: "First day at a new office",
		}
		// Hash of "scenario\nget along with\nmaya\nfirst day at a new office"
		expected := "60902222d4a9ff3bbe060d1d6181c4e79ae6b8a9d352d1d12b36dd067260a60f"
		if got := Hash(item); got != expected {
			t.Errorf("Expected hash %q, but got %q", expected, got)
		}
	})

	t.Run("display text does not affect identity", func(t *testing.T) {
		a := domain.Item{Kind: domain.ItemVerbSense, Verb: "put off", SenseNumber: 2, Definition: "to postpone"}
		b := domain.Item{Kind: domain.ItemVerbSense, Verb: "put off", SenseNumber: 2, Definition: "to delay until later"}
		if Hash(a) != Hash(b) {
			t.Error("Expected regenerated definitions to keep the same identity")
		}
	})

	t.Run("senses of one verb are distinct units", func(t *testing.T) {
		a := domain.Item{Kind: domain.ItemVerbSense, Verb: "break down", SenseNumber: 1}
		b := domain.Item{Kind: domain.ItemVerbSense, Verb: "break down", SenseNumber: 2}
		if Hash(a) == Hash(b) {
			t.Error("Expected different senses to hash differently")
		}
	})
}
