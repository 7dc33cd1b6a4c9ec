package scoreboard

type Policy string

const (
	// PolicyAccuracy scores the producer by how often it evaded the consumer on
	// matching variant tags and the consumer by a signed agreement term.
	PolicyAccuracy Policy = "accuracy"
	// PolicyMargin is zero-sum per testpoint: the consumer gains what the producer loses.
	PolicyMargin Policy = "margin"
)

// Rules describe how a variant's result matrix turns into scores.
type Rules struct {
	Policy    Policy
	Producer  string // role whose outputs become cross-match inputs
	Consumer  string // role whose artifact is executed during cross-matching
	Testcases int
	Combos    []string // variant-combination tags, e.g. "aa", "ab"

	// CreditMissing credits the consumer with a full-score term for every
	// testpoint a producer never brought to cross-matching.
	CreditMissing bool
}

func (r Rules) Roles() []string {
	return []string{r.Producer, r.Consumer}
}

// tagsMatch reports whether a combination compares same-origin variants,
// e.g. "aa" or "bb". Single-letter or empty tags always match.
func tagsMatch(combo string) bool {
	for i := 1; i < len(combo); i++ {
		if combo[i] != combo[0] {
			return false
		}
	}
	return true
}

func (r Rules) matchingCombos() int {
	n := 0
	for _, c := range r.Combos {
		if tagsMatch(c) {
			n++
		}
	}
	return n
}
