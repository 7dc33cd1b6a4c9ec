package judgesrvc

import (
	"fmt"

	"github.com/programme-lv/duel/conf"
	"github.com/programme-lv/duel/domain"
	"github.com/programme-lv/duel/scoreboard"
)

const (
	RoleClient = "client"
	RoleServer = "server"
)

// newScheduling builds the variant where clients generate task sets and
// servers schedule them. The slo checker scores how well a schedule met its deadlines.
func newScheduling(c conf.Contest) *Variant {
	uc, tc := c.Buckets.UserContent, c.Buckets.Testcases
	validator := domain.RefPtr(tc, c.Programs.Validator)
	slo := domain.RefPtr(tc, c.Programs.Slo)

	v := &Variant{
		Name: VariantScheduling,
		Rules: scoreboard.Rules{
			Policy:    scoreboard.PolicyMargin,
			Producer:  RoleClient,
			Consumer:  RoleServer,
			Testcases: c.Testcases,
			Combos:    []string{"std"},
		},
		userContent: uc,
		crossInput: func(base string, x int, _ string) domain.ContentRef {
			return domain.NewRef(uc, fmt.Sprintf("%s-%d/tasks.out", base, x))
		},
		crossChecker: slo,
	}

	v.plans = map[string]rolePlan{
		RoleClient: {
			validate: &validation{
				tags: []string{""},
				testpoint: func(base string, x int, _ string) domain.Testpoint {
					return domain.Testpoint{
						Code:    v.ArtifactRef(base),
						Checker: validator,
						Input:   domain.NewRef(tc, fmt.Sprintf("%d/desc.in", x)),
						Output:  domain.RefPtr(uc, fmt.Sprintf("%s-%d/tasks.out", base, x)),
					}
				},
			},
		},
		RoleServer: {
			validate: &validation{
				tags:       []string{""},
				requireAll: true,
				testpoint: func(base string, x int, _ string) domain.Testpoint {
					return domain.Testpoint{
						Code:    v.ArtifactRef(base),
						Checker: slo,
						Input:   domain.NewRef(tc, fmt.Sprintf("%d/tasks.in", x)),
					}
				},
			},
		},
	}
	return v
}
