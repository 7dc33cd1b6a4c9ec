package judgesrvc

import (
	"fmt"

	"github.com/programme-lv/duel/conf"
	"github.com/programme-lv/duel/domain"
	"github.com/programme-lv/duel/scoreboard"
)

const (
	RoleCheat     = "cheat"
	RoleAnticheat = "anticheat"
)

// newPlagiarism builds the variant where cheaters disguise two equivalent
// programs ("a" and "b") and anticheaters decide which pairs share an origin.
func newPlagiarism(c conf.Contest) *Variant {
	uc, tc := c.Buckets.UserContent, c.Buckets.Testcases
	checkAns := domain.RefPtr(tc, c.Programs.CheckAns)
	accept := domain.RefPtr(tc, c.Programs.Accept)
	normalizer := domain.NewRef(tc, c.Programs.Normalize)
	combos := []string{"aa", "bb", "ab", "ba"}

	v := &Variant{
		Name: VariantPlagiarism,
		Rules: scoreboard.Rules{
			Policy:        scoreboard.PolicyAccuracy,
			Producer:      RoleCheat,
			Consumer:      RoleAnticheat,
			Testcases:     c.Testcases,
			Combos:        combos,
			CreditMissing: true,
		},
		userContent: uc,
		crossInput: func(base string, x int, combo string) domain.ContentRef {
			return domain.NewRef(uc, fmt.Sprintf("%s-%d%s/normalized.p", base, x, combo))
		},
	}

	v.plans = map[string]rolePlan{
		RoleCheat: {
			validate: &validation{
				tags: []string{"a", "b"},
				testpoint: func(base string, x int, tag string) domain.Testpoint {
					return domain.Testpoint{
						Code:    v.ArtifactRef(base),
						Checker: checkAns,
						Input:   domain.NewRef(tc, fmt.Sprintf("%d%s/input.p", x, tag)),
						Output:  domain.RefPtr(uc, fmt.Sprintf("%s-%d%s/output.p", base, x, tag)),
						Answer:  domain.RefPtr(tc, fmt.Sprintf("%d.ans", x)),
					}
				},
			},
			canon: &canonicalization{
				combos: combos,
				testpoint: func(base string, x int, combo string) domain.Testpoint {
					t1, t2 := combo[:1], combo[1:]
					return domain.Testpoint{
						Code:    normalizer,
						Checker: accept,
						Input:   domain.NewRef(tc, fmt.Sprintf("%d.ans", x)),
						Output:  domain.RefPtr(uc, fmt.Sprintf("%s-%d%s/normalized.p", base, x, combo)),
						SupplementaryFiles: []domain.ContentRef{
							domain.NewRef(tc, fmt.Sprintf("%d%s/input.p", x, t1)),
							domain.NewRef(uc, fmt.Sprintf("%s-%d%s/output.p", base, x, t2)),
						},
					}
				},
			},
		},
		RoleAnticheat: {},
	}
	return v
}
