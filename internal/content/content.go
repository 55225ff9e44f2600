// Package content parses deck files into reviewable items.
//
// A deck file is JSON: either a bare array of phrasal verbs (the shape the
// content generators emit) or an object with "verbs" and "scenarios" lists.
// Every numbered sense and every scenario becomes its own item, scheduled
// independently.
package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fluentvoice/synapse/internal/domain"
	"github.com/fluentvoice/synapse/internal/ident"
)

type senseJSON struct {
	SenseNumber int      `json:"senseNumber"`
	Definition  string   `json:"definition"`
	Examples    []string `json:"examples"`
}

type verbJSON struct {
	Verb   string      `json:"verb"`
	Senses []senseJSON `json:"senses"`
}

type scenarioJSON struct {
	Character   string `json:"character"`
	Situation   string `json:"situation"`
	PhrasalVerb string `json:"phrasalVerb"`
	ContextText string `json:"contextText"`
}

type deckJSON struct {
	Verbs     []verbJSON     `json:"verbs"`
	Scenarios []scenarioJSON `json:"scenarios"`
}

// ParseFile reads a deck file from the given path and extracts all items.
func ParseFile(path string) ([]domain.Item, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	items, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return items, nil
}

// Parse reads deck JSON from an io.Reader and extracts all items, with
// their content hashes filled in.
func Parse(r io.Reader) ([]domain.Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var deck deckJSON
	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("[")) {
		if err := json.Unmarshal(data, &deck.Verbs); err != nil {
			return nil, fmt.Errorf("decoding verb list: %w", err)
		}
	} else if err := json.Unmarshal(data, &deck); err != nil {
		return nil, fmt.Errorf("decoding deck: %w", err)
	}

	var items []domain.Item
	for _, verb := range deck.Verbs {
		if verb.Verb == "" {
			return nil, fmt.Errorf("verb entry with empty verb")
		}
		for _, sense := range verb.Senses {
			item := domain.Item{
				Kind:        domain.ItemVerbSense,
				Verb:        verb.Verb,
				SenseNumber: sense.SenseNumber,
				Definition:  sense.Definition,
			}
			if len(sense.Examples) > 0 {
				item.Example = sense.Examples[0]
			}
			item.Hash = ident.Hash(item)
			items = append(items, item)
		}
	}
	for _, sc := range deck.Scenarios {
		if sc.PhrasalVerb == "" {
			return nil, fmt.Errorf("scenario %q with empty phrasal verb", sc.Situation)
		}
		item := domain.Item{
			Kind:        domain.ItemScenario,
			Verb:        sc.PhrasalVerb,
			Character:   sc.Character,
			Situation:   sc.Situation,
			ContextText: sc.ContextText,
		}
		item.Hash = ident.Hash(item)
		items = append(items, item)
	}
	return items, nil
}
