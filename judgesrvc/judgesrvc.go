package judgesrvc

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/programme-lv/duel/domain"
	"github.com/programme-lv/duel/logger"
	"github.com/programme-lv/duel/schedclient"
	"golang.org/x/sync/errgroup"
)

type JudgeSrvc struct {
	logger  *slog.Logger
	sched   schedclient.Scheduler
	variant *Variant
}

func NewJudgeSrvc(sched schedclient.Scheduler, variant *Variant) *JudgeSrvc {
	return &JudgeSrvc{
		logger:  slog.Default().With("module", "judge"),
		sched:   sched,
		variant: variant,
	}
}

// Compile builds the submission's artifact. A refusal is a *CompileError,
// a scheduler failure is a *StageError.
func (s *JudgeSrvc) Compile(ctx context.Context, subm domain.Submission) error {
	log := logger.FromContext(logger.WithStage(ctx, StageCompile))

	res, err := s.sched.Compile(ctx, s.variant.CompileJob(subm.ID))
	if err != nil {
		return stageErr(StageCompile, err)
	}
	if !res.Compiled() {
		log.Info("compilation rejected", "result", res.Result)
		return &CompileError{Result: res.Result, Message: res.Message}
	}
	log.Info("compiled")
	return nil
}

// Judge runs validation, canonicalization and cross-matching for subm against
// the opponents in snapshot. It returns the next state, which replaces the
// submitter's entries and refreshes the opponents' mirror entries, plus a
// diagnostic message for testcases dropped along the way.
// On error the snapshot must be discarded as a whole.
func (s *JudgeSrvc) Judge(ctx context.Context, subm domain.Submission, snapshot domain.State) (domain.State, string, error) {
	v := s.variant
	if !v.HasRole(subm.Role) {
		return nil, "", stageErr(StageValidate, fmt.Errorf("unknown role %q", subm.Role))
	}
	plan := v.plans[subm.Role]

	ok := v.Testcases()
	var diag []string

	if plan.validate != nil {
		var err error
		var lines []string
		ok, lines, err = s.validate(logger.WithStage(ctx, StageValidate), plan.validate, subm.ID)
		if err != nil {
			return nil, "", stageErr(StageValidate, err)
		}
		diag = append(diag, lines...)
		if plan.validate.requireAll && len(ok) != v.Rules.Testcases {
			err := fmt.Errorf("%d of %d testcases passed:\n%s", len(ok), v.Rules.Testcases, strings.Join(lines, "\n"))
			return nil, "", stageErr(StageValidate, err)
		}
	}

	if plan.canon != nil {
		var err error
		var lines []string
		ok, lines, err = s.canonicalize(logger.WithStage(ctx, StageCanon), plan.canon, subm.ID, ok)
		if err != nil {
			return nil, "", stageErr(StageCanon, err)
		}
		diag = append(diag, lines...)
	}

	results, err := s.crossMatch(logger.WithStage(ctx, StageCross), subm, ok, snapshot)
	if err != nil {
		return nil, "", stageErr(StageCross, err)
	}

	next := snapshot.Clone()
	if next[subm.Role] == nil {
		next[subm.Role] = domain.RoleState{}
	}
	opposite := v.Opposite(subm.Role)
	if next[opposite] == nil {
		next[opposite] = domain.RoleState{}
	}

	own := domain.Entry{
		SubmissionID: subm.ID,
		Ok:           ok,
		Result:       make(map[string]domain.OpponentResult, len(results)),
	}
	for _, r := range results {
		own.Result[r.opponent] = domain.OpponentResult{
			OpponentUser:         r.opponent,
			OpponentSubmissionID: r.opponentId,
			Testpoints:           r.scores(),
		}

		opp := next[opposite][r.opponent]
		if opp.Result == nil {
			opp.Result = map[string]domain.OpponentResult{}
		}
		opp.Result[subm.User] = domain.OpponentResult{
			OpponentUser:         subm.User,
			OpponentSubmissionID: subm.ID,
			Testpoints:           r.scores(),
		}
		next[opposite][r.opponent] = opp
	}
	next[subm.Role][subm.User] = own

	return next, strings.Join(diag, "\n"), nil
}

// validate runs every (testcase, tag) of the submission on its own. A testcase
// survives only when all of its tags are accepted.
func (s *JudgeSrvc) validate(ctx context.Context, plan *validation, base string) ([]int, []string, error) {
	log := logger.FromContext(ctx)
	xs := s.variant.Testcases()

	tps := make([]domain.Testpoint, 0, len(xs)*len(plan.tags))
	for _, x := range xs {
		for _, t := range plan.tags {
			tps = append(tps, plan.testpoint(base, x, t))
		}
	}
	res, err := s.sched.Run(ctx, tps)
	if err != nil {
		return nil, nil, err
	}

	ok := make([]int, 0, len(xs))
	var diag []string
	i := 0
	for _, x := range xs {
		passed := true
		for _, t := range plan.tags {
			r := res[i]
			i++
			if r.Accepted() {
				continue
			}
			passed = false
			diag = append(diag, verdictLine(fmt.Sprintf("%d%s", x, t), r))
		}
		if passed {
			ok = append(ok, x)
		}
	}
	log.Info("validated", "ok", len(ok), "total", len(xs))
	return ok, diag, nil
}

// canonicalize normalizes every combo of the surviving testcases. A testcase
// is retained only when all of its combos are accepted.
func (s *JudgeSrvc) canonicalize(ctx context.Context, plan *canonicalization, base string, ok []int) ([]int, []string, error) {
	log := logger.FromContext(ctx)
	if len(ok) == 0 {
		return ok, nil, nil
	}

	tps := make([]domain.Testpoint, 0, len(ok)*len(plan.combos))
	for _, x := range ok {
		for _, c := range plan.combos {
			tps = append(tps, plan.testpoint(base, x, c))
		}
	}
	res, err := s.sched.Run(ctx, tps)
	if err != nil {
		return nil, nil, err
	}

	kept := make([]int, 0, len(ok))
	var diag []string
	i := 0
	for _, x := range ok {
		passed := true
		for _, c := range plan.combos {
			r := res[i]
			i++
			if r.Accepted() {
				continue
			}
			passed = false
			diag = append(diag, verdictLine(fmt.Sprintf("%d%s", x, c), r))
		}
		if passed {
			kept = append(kept, x)
		}
	}
	log.Info("canonicalized", "kept", len(kept), "total", len(ok))
	return kept, diag, nil
}

type crossResult struct {
	opponent   string
	opponentId string
	tps        []domain.Testpoint
	labels     []domain.TestpointScore
	raw        []schedclient.RunResult
}

// scores returns a freshly normalized copy, so both sides of a pair own their slice.
func (r crossResult) scores() []domain.TestpointScore {
	out := make([]domain.TestpointScore, len(r.labels))
	for i, l := range r.labels {
		l.Score = NormalizeScore(r.raw[i].Score)
		out[i] = l
	}
	return out
}

// crossMatch runs one batch per opponent concurrently. The first failure
// cancels the rest and nothing is returned.
func (s *JudgeSrvc) crossMatch(ctx context.Context, subm domain.Submission, ok []int, snapshot domain.State) ([]crossResult, error) {
	log := logger.FromContext(ctx)
	v := s.variant
	opposite := v.Opposite(subm.Role)
	opponents := snapshot[opposite].Users()

	results := make([]crossResult, 0, len(opponents))
	for _, opp := range opponents {
		if opp == subm.User {
			continue
		}
		entry := snapshot[opposite][opp]
		r := crossResult{opponent: opp, opponentId: entry.SubmissionID}
		if subm.Role == v.Rules.Producer {
			r.tps, r.labels = v.crossTestpoints(subm.ID, ok, entry.SubmissionID)
		} else {
			r.tps, r.labels = v.crossTestpoints(entry.SubmissionID, entry.Ok, subm.ID)
		}
		results = append(results, r)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range results {
		r := &results[i]
		g.Go(func() error {
			raw, err := s.sched.Run(gctx, r.tps)
			if err != nil {
				return fmt.Errorf("against %s (%s): %w", r.opponent, r.opponentId, err)
			}
			r.raw = raw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info("cross-matched", "opponents", len(results))
	return results, nil
}

func verdictLine(id string, r schedclient.RunResult) string {
	if r.Message == "" {
		return fmt.Sprintf("testcase %s: %s", id, r.Result)
	}
	return fmt.Sprintf("testcase %s: %s: %s", id, r.Result, r.Message)
}
