package judgesrvc

import (
	"fmt"

	"github.com/programme-lv/duel/conf"
	"github.com/programme-lv/duel/domain"
	"github.com/programme-lv/duel/scoreboard"
)

const (
	VariantPlagiarism = "plagiarism"
	VariantScheduling = "scheduling"
)

// Variant binds a contest flavour to its roles, scoring rules and the
// object layout every stage reads from and writes to.
type Variant struct {
	Name  string
	Rules scoreboard.Rules

	userContent string

	plans map[string]rolePlan

	// crossInput is where the producer's stage output for (testcase, combo) lives.
	crossInput   func(producerBase string, x int, combo string) domain.ContentRef
	crossChecker *domain.ContentRef
}

type rolePlan struct {
	validate *validation
	canon    *canonicalization
}

type validation struct {
	// tags split a testcase into variants that all have to be accepted
	tags []string
	// requireAll turns a validation shortfall into a stage failure
	requireAll bool
	testpoint  func(base string, x int, tag string) domain.Testpoint
}

type canonicalization struct {
	combos    []string
	testpoint func(base string, x int, combo string) domain.Testpoint
}

func NewVariant(c conf.Contest) (*Variant, error) {
	switch c.Variant {
	case VariantPlagiarism:
		return newPlagiarism(c), nil
	case VariantScheduling:
		return newScheduling(c), nil
	default:
		return nil, fmt.Errorf("unknown contest variant %q", c.Variant)
	}
}

func (v *Variant) Roles() []string {
	return v.Rules.Roles()
}

func (v *Variant) HasRole(role string) bool {
	return role == v.Rules.Producer || role == v.Rules.Consumer
}

// Opposite returns the role a submission of role is matched against.
func (v *Variant) Opposite(role string) string {
	if role == v.Rules.Producer {
		return v.Rules.Consumer
	}
	return v.Rules.Producer
}

func (v *Variant) Testcases() []int {
	xs := make([]int, v.Rules.Testcases)
	for i := range xs {
		xs[i] = i + 1
	}
	return xs
}

// SourceRef is where the user uploads the source of submission id.
func (v *Variant) SourceRef(id string) domain.ContentRef {
	return domain.NewRef(v.userContent, id+".cpp")
}

// ArtifactRef is where the compiled submission id is stored.
func (v *Variant) ArtifactRef(id string) domain.ContentRef {
	return domain.NewRef(v.userContent, id)
}

func (v *Variant) CompileJob(id string) domain.CompileJob {
	return domain.CompileJob{
		Source:   v.SourceRef(id),
		Artifact: v.ArtifactRef(id),
	}
}

// crossTestpoints pairs the producer's surviving testcases with the consumer's artifact.
// The order is testcase ascending, then combo in rule order.
func (v *Variant) crossTestpoints(producerBase string, ok []int, consumerId string) ([]domain.Testpoint, []domain.TestpointScore) {
	tps := make([]domain.Testpoint, 0, len(ok)*len(v.Rules.Combos))
	labels := make([]domain.TestpointScore, 0, cap(tps))
	for _, x := range ok {
		for _, combo := range v.Rules.Combos {
			tps = append(tps, domain.Testpoint{
				Code:    v.ArtifactRef(consumerId),
				Checker: v.crossChecker,
				Input:   v.crossInput(producerBase, x, combo),
			})
			labels = append(labels, domain.TestpointScore{Testcase: x, Variant: combo})
		}
	}
	return tps, labels
}
