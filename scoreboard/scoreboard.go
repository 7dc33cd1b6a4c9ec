package scoreboard

import (
	"sort"

	"github.com/programme-lv/duel/domain"
)

type Row struct {
	Rank   int                `json:"rank"`
	User   string             `json:"user"`
	Scores map[string]float64 `json:"scores"` // role -> score
	Total  float64            `json:"total"`
}

type Scoreboard struct {
	Roles []string `json:"roles"`
	Rows  []Row    `json:"rows"`
}

func (b Scoreboard) Clone() Scoreboard {
	rows := make([]Row, len(b.Rows))
	for i, r := range b.Rows {
		scores := make(map[string]float64, len(r.Scores))
		for k, v := range r.Scores {
			scores[k] = v
		}
		r.Scores = scores
		rows[i] = r
	}
	roles := make([]string, len(b.Roles))
	copy(roles, b.Roles)
	return Scoreboard{Roles: roles, Rows: rows}
}

// Compute rebuilds the whole scoreboard from the state.
// Rows are sorted by total descending, then by user ascending.
func Compute(r Rules, s domain.State) Scoreboard {
	users := map[string]struct{}{}
	for _, role := range r.Roles() {
		for u := range s[role] {
			users[u] = struct{}{}
		}
	}

	rows := make([]Row, 0, len(users))
	for u := range users {
		row := Row{User: u, Scores: map[string]float64{}}
		for _, role := range r.Roles() {
			if _, ok := s[role][u]; !ok {
				continue
			}
			row.Scores[role] = r.RoleScore(s, role, u)
		}
		row.Total = r.total(row.Scores)
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Total != rows[j].Total {
			return rows[i].Total > rows[j].Total
		}
		return rows[i].User < rows[j].User
	})
	for i := range rows {
		if i > 0 && rows[i].Total == rows[i-1].Total {
			rows[i].Rank = rows[i-1].Rank
		} else {
			rows[i].Rank = i + 1
		}
	}

	return Scoreboard{Roles: r.Roles(), Rows: rows}
}

func (r Rules) total(scores map[string]float64) float64 {
	total := 0.0
	for _, role := range r.Roles() {
		sc := scores[role]
		if r.Policy == PolicyAccuracy && sc < 0 {
			sc = 0
		}
		total += sc
	}
	return total
}

// RoleScore is the score of user in role. Users without opponents score 0.
func (r Rules) RoleScore(s domain.State, role string, user string) float64 {
	entry, ok := s[role][user]
	if !ok {
		return 0
	}
	results := r.liveResults(s, role, entry)

	switch r.Policy {
	case PolicyMargin:
		return r.marginScore(role, results)
	default:
		if role == r.Producer {
			return r.accuracyProducer(results)
		}
		return r.accuracyConsumer(s, results)
	}
}

// liveResults drops results whose opponent no longer holds the opposite role.
func (r Rules) liveResults(s domain.State, role string, e domain.Entry) []domain.OpponentResult {
	opposite := r.Consumer
	if role == r.Consumer {
		opposite = r.Producer
	}
	out := make([]domain.OpponentResult, 0, len(e.Result))
	for opp, res := range e.Result {
		if _, ok := s[opposite][opp]; ok {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OpponentUser < out[j].OpponentUser
	})
	return out
}

func (r Rules) accuracyProducer(results []domain.OpponentResult) float64 {
	denom := float64(len(results) * r.Testcases * r.matchingCombos())
	if denom == 0 {
		return 0
	}
	sum := 0.0
	for _, res := range results {
		for _, tp := range res.Testpoints {
			if tagsMatch(tp.Variant) {
				sum += 1 - tp.Score
			}
		}
	}
	return sum / denom
}

func (r Rules) accuracyConsumer(s domain.State, results []domain.OpponentResult) float64 {
	sum := 0.0
	n := 0
	for _, res := range results {
		for _, tp := range res.Testpoints {
			sum += AgreementTerm(tp.Variant, tp.Score)
			n++
		}
		if r.CreditMissing {
			missing := r.Testcases*len(r.Combos) - len(res.Testpoints)
			if missing > 0 {
				sum += float64(missing)
				n += missing
			}
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// AgreementTerm is expect * (score*2 - 1) where expect is +1 for matching tags.
func AgreementTerm(combo string, score float64) float64 {
	expect := -1.0
	if tagsMatch(combo) {
		expect = 1
	}
	return expect * (score*2 - 1)
}

func (r Rules) marginScore(role string, results []domain.OpponentResult) float64 {
	sum := 0.0
	n := 0
	for _, res := range results {
		for _, tp := range res.Testpoints {
			sum += MarginContribution(r, role, tp.Score)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// MarginContribution is (score-0.5)*2 for the consumer and (0.5-score)*2 for the producer.
func MarginContribution(r Rules, role string, score float64) float64 {
	if role == r.Consumer {
		return (score - 0.5) * 2
	}
	return (0.5 - score) * 2
}
