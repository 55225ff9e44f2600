package domain

// ItemKind distinguishes the reviewable unit types the app studies.
type ItemKind string

const (
	// ItemVerbSense is one sense of a phrasal verb. Each sense schedules
	// independently; two senses of the same verb are separate items.
	ItemVerbSense ItemKind = "verb_sense"
	// ItemScenario is a roleplay scenario practicing a phrasal verb in
	// context.
	ItemScenario ItemKind = "scenario"
)

// Item is one reviewable content payload. The scheduler treats items as
// opaque; only the content layer and the session API read these fields.
type Item struct {
	// Hash is the stable content identity, computed by the ident package.
	// It doubles as the card ID.
	Hash string   `json:"hash"`
	Kind ItemKind `json:"kind"`

	// Verb sense fields.
	Verb        string `json:"verb,omitempty"`
	SenseNumber int    `json:"sense_number,omitempty"`
	Definition  string `json:"definition,omitempty"`
	Example     string `json:"example,omitempty"`

	// Scenario fields.
	Character   string `json:"character,omitempty"`
	Situation   string `json:"situation,omitempty"`
	ContextText string `json:"context_text,omitempty"`
}
