package match

// Type describes which signal carried a match.
type Type string

// Match types.
const (
	TypeExact     Type = "exact"
	TypeFuzzyName Type = "fuzzy-name"
	TypeEmail     Type = "email"
	TypePhone     Type = "phone"
	TypeBoth      Type = "both"
)

// Fields names the columns holding identity values. Each list is searched in
// order and the first non-empty column wins, so a panel export with two phone
// columns can list both.
type Fields struct {
	Name  []string
	Phone []string
	Email []string
	// ID is the column used as the target identifier in outcomes. When empty
	// or blank on a row, an id is generated from the row index.
	ID string
}

// Weights are the score contributions of each signal on a 0-100 scale.
type Weights struct {
	EmailExact  float64
	EmailFuzzy  float64 // multiplied by the email similarity
	PhoneExact  float64
	PhoneSuffix float64
	Name        float64 // multiplied by the name similarity
	Both        float64 // email and phone both hit

	// Containment is the similarity assigned when one normalized name
	// contains the other.
	Containment float64
	// PhoneSuffixDigits trailing digits must agree for a suffix hit, and both
	// numbers need at least PhoneMinDigits digits.
	PhoneSuffixDigits int
	PhoneMinDigits    int
}

// DefaultWeights returns the weights used by the registration cross-check.
func DefaultWeights() Weights {
	return Weights{
		EmailExact:        50,
		EmailFuzzy:        40,
		PhoneExact:        50,
		PhoneSuffix:       40,
		Name:              50,
		Both:              100,
		Containment:       0.9,
		PhoneSuffixDigits: 8,
		PhoneMinDigits:    10,
	}
}

// Options configures a Matcher.
type Options struct {
	Source Fields
	Target Fields

	// Threshold is the minimum name similarity (0-1) for a name signal.
	Threshold float64
	// EmailSimilarity must be exceeded for a non-identical email to count.
	EmailSimilarity float64
	// MinScore is the lowest accepted best score. Zero accepts any candidate
	// with at least one signal.
	MinScore float64

	Weights Weights

	// IDPrefix is used for generated target ids, e.g. FAM_00042.
	IDPrefix string

	// Blocking restricts scoring to targets sharing a phone suffix, email,
	// email local part or compact name with the source. Fuzzy-only pairs that
	// share none of those keys are not considered.
	Blocking bool
}

// DefaultOptions returns options with the standard weights and the name,
// phone and email columns used by the English panel exports.
func DefaultOptions() Options {
	f := Fields{
		Name:  []string{"name"},
		Phone: []string{"phone"},
		Email: []string{"email"},
	}
	return Options{
		Source:          f,
		Target:          f,
		Threshold:       0.8,
		EmailSimilarity: 0.9,
		Weights:         DefaultWeights(),
		IDPrefix:        "FAM_",
	}
}
