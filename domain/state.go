package domain

import "sort"

type TestpointScore struct {
	Testcase int     `json:"testcase"`
	Variant  string  `json:"variant"`
	Score    float64 `json:"score"`
}

type OpponentResult struct {
	OpponentUser         string           `json:"opponentUser"`
	OpponentSubmissionID string           `json:"opponentSubmissionId"`
	Testpoints           []TestpointScore `json:"testpoints"`
}

// Entry is a user's standing within one role.
type Entry struct {
	SubmissionID string                    `json:"submissionId"`
	Ok           []int                     `json:"ok"`
	Result       map[string]OpponentResult `json:"result"`
}

// RoleState maps user to the user's entry.
type RoleState map[string]Entry

// State holds the RoleState of every role.
type State map[string]RoleState

func NewState(roles ...string) State {
	s := make(State, len(roles))
	for _, r := range roles {
		s[r] = RoleState{}
	}
	return s
}

func (r OpponentResult) Clone() OpponentResult {
	if r.Testpoints != nil {
		r.Testpoints = append(make([]TestpointScore, 0, len(r.Testpoints)), r.Testpoints...)
	}
	return r
}

func (e Entry) Clone() Entry {
	c := Entry{SubmissionID: e.SubmissionID}
	if e.Ok != nil {
		c.Ok = append(make([]int, 0, len(e.Ok)), e.Ok...)
	}
	if e.Result != nil {
		c.Result = make(map[string]OpponentResult, len(e.Result))
		for k, v := range e.Result {
			c.Result[k] = v.Clone()
		}
	}
	return c
}

// Clone returns a deep copy; the worker mutates clones only.
func (s State) Clone() State {
	out := make(State, len(s))
	for role, rs := range s {
		c := make(RoleState, len(rs))
		for user, e := range rs {
			c[user] = e.Clone()
		}
		out[role] = c
	}
	return out
}

// Users returns the users of a role in ascending order.
func (rs RoleState) Users() []string {
	users := make([]string, 0, len(rs))
	for u := range rs {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}
