package judgesrvc_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/programme-lv/duel/conf"
	"github.com/programme-lv/duel/domain"
	"github.com/programme-lv/duel/judgesrvc"
	"github.com/programme-lv/duel/schedclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJudge(t *testing.T, variant string, sched schedclient.Scheduler) *judgesrvc.JudgeSrvc {
	t.Helper()
	c := conf.DefaultContest()
	c.Variant = variant
	v, err := judgesrvc.NewVariant(c)
	require.NoError(t, err)
	return judgesrvc.NewJudgeSrvc(sched, v)
}

func subm(role, user, id string) domain.Submission {
	return domain.Submission{ID: id, User: user, Role: role, Status: domain.StatusJudging}
}

func accepted(tps []domain.Testpoint, score float64) []schedclient.RunResult {
	res := make([]schedclient.RunResult, len(tps))
	for i := range res {
		res[i] = schedclient.RunResult{Result: schedclient.ResultAccepted, Score: score}
	}
	return res
}

func isCross(tp domain.Testpoint) bool {
	return tp.Checker == nil
}

func TestCompileJobLayout(t *testing.T) {
	sched := &schedclient.Fake{}
	j := newJudge(t, judgesrvc.VariantPlagiarism, sched)

	require.NoError(t, j.Compile(context.Background(), subm("cheat", "alice", "alice/1")))
	jobs := sched.Compiles()
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.NewRef("5buc", "alice/1.cpp"), jobs[0].Source)
	assert.Equal(t, domain.NewRef("5buc", "alice/1"), jobs[0].Artifact)
}

func TestCompileRejected(t *testing.T) {
	sched := &schedclient.Fake{
		CompileFunc: func(domain.CompileJob) (schedclient.CompileResult, error) {
			return schedclient.CompileResult{Result: "failed", Message: "main.cpp:1: expected ';'"}, nil
		},
	}
	j := newJudge(t, judgesrvc.VariantPlagiarism, sched)

	err := j.Compile(context.Background(), subm("cheat", "alice", "alice/1"))
	var ce *judgesrvc.CompileError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "main.cpp:1: expected ';'", ce.Error())
}

func TestCompileTransportFailureIsStageError(t *testing.T) {
	sched := &schedclient.Fake{
		CompileFunc: func(domain.CompileJob) (schedclient.CompileResult, error) {
			return schedclient.CompileResult{}, errors.New("connection refused")
		},
	}
	j := newJudge(t, judgesrvc.VariantPlagiarism, sched)

	err := j.Compile(context.Background(), subm("cheat", "alice", "alice/1"))
	var se *judgesrvc.StageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, judgesrvc.StageCompile, se.Stage)
}

func TestCheatPipelineWritesBothSides(t *testing.T) {
	sched := &schedclient.Fake{
		RunFunc: func(tps []domain.Testpoint) ([]schedclient.RunResult, error) {
			if isCross(tps[0]) {
				return accepted(tps, 1.7), nil
			}
			return accepted(tps, 1), nil
		},
	}
	j := newJudge(t, judgesrvc.VariantPlagiarism, sched)

	snapshot := domain.NewState("cheat", "anticheat")
	snapshot["anticheat"]["bob"] = domain.Entry{SubmissionID: "bob/1", Result: map[string]domain.OpponentResult{}}
	before := snapshot.Clone()

	next, msg, err := j.Judge(context.Background(), subm("cheat", "alice", "alice/1"), snapshot)
	require.NoError(t, err)
	require.Empty(t, msg)
	require.Equal(t, before, snapshot, "snapshot must not be mutated")

	own := next["cheat"]["alice"]
	require.Equal(t, "alice/1", own.SubmissionID)
	require.Equal(t, []int{1, 2, 3, 4}, own.Ok)
	require.Contains(t, own.Result, "bob")
	require.Equal(t, "bob/1", own.Result["bob"].OpponentSubmissionID)
	require.Len(t, own.Result["bob"].Testpoints, 16)
	for _, tp := range own.Result["bob"].Testpoints {
		require.Equal(t, 1.0, tp.Score)
	}
	require.Equal(t, domain.TestpointScore{Testcase: 1, Variant: "aa", Score: 1}, own.Result["bob"].Testpoints[0])
	require.Equal(t, domain.TestpointScore{Testcase: 1, Variant: "bb", Score: 1}, own.Result["bob"].Testpoints[1])

	mirror := next["anticheat"]["bob"].Result["alice"]
	require.Equal(t, "alice", mirror.OpponentUser)
	require.Equal(t, "alice/1", mirror.OpponentSubmissionID)
	require.Equal(t, own.Result["bob"].Testpoints, mirror.Testpoints)

	mirror.Testpoints[0].Score = 0
	require.Equal(t, 1.0, own.Result["bob"].Testpoints[0].Score, "sides must not share slices")

	batches := sched.Batches()
	require.Len(t, batches, 3)
	require.Len(t, batches[0], 8)  // 4 testcases x 2 tags
	require.Len(t, batches[1], 16) // 4 testcases x 4 combos
	require.Len(t, batches[2], 16)

	v := batches[0][1]
	assert.Equal(t, domain.NewRef("5buc", "alice/1"), v.Code)
	assert.Equal(t, domain.RefPtr("5bt", "checkans"), v.Checker)
	assert.Equal(t, domain.NewRef("5bt", "1b/input.p"), v.Input)
	assert.Equal(t, domain.RefPtr("5buc", "alice/1-1b/output.p"), v.Output)
	assert.Equal(t, domain.RefPtr("5bt", "1.ans"), v.Answer)

	c := batches[1][2] // testcase 1, combo "ab"
	assert.Equal(t, domain.NewRef("5bt", "normalize"), c.Code)
	assert.Equal(t, domain.RefPtr("5bt", "ac"), c.Checker)
	assert.Equal(t, domain.NewRef("5bt", "1.ans"), c.Input)
	assert.Equal(t, domain.RefPtr("5buc", "alice/1-1ab/normalized.p"), c.Output)
	assert.Equal(t, []domain.ContentRef{
		domain.NewRef("5bt", "1a/input.p"),
		domain.NewRef("5buc", "alice/1-1b/output.p"),
	}, c.SupplementaryFiles)

	x := batches[2][3] // testcase 1, combo "ba"
	assert.Equal(t, domain.NewRef("5buc", "bob/1"), x.Code)
	assert.Nil(t, x.Checker)
	assert.Equal(t, domain.NewRef("5buc", "alice/1-1ba/normalized.p"), x.Input)
	assert.Nil(t, x.Output)
}

func TestValidationShortfallIsNotFatal(t *testing.T) {
	sched := &schedclient.Fake{
		RunFunc: func(tps []domain.Testpoint) ([]schedclient.RunResult, error) {
			res := accepted(tps, 1)
			for i, tp := range tps {
				if tp.Input.Key == "2b/input.p" {
					res[i] = schedclient.RunResult{Result: "wrong_answer", Message: "line 3 differs"}
				}
				if tp.Output != nil && tp.Output.Key == "alice/1-3ba/normalized.p" {
					res[i] = schedclient.RunResult{Result: "runtime_error"}
				}
			}
			return res, nil
		},
	}
	j := newJudge(t, judgesrvc.VariantPlagiarism, sched)

	snapshot := domain.NewState("cheat", "anticheat")
	snapshot["anticheat"]["bob"] = domain.Entry{SubmissionID: "bob/1"}

	next, msg, err := j.Judge(context.Background(), subm("cheat", "alice", "alice/1"), snapshot)
	require.NoError(t, err)
	require.Equal(t, []int{1, 4}, next["cheat"]["alice"].Ok)
	require.Equal(t, "testcase 2b: wrong_answer: line 3 differs\ntestcase 3ba: runtime_error", msg)

	batches := sched.Batches()
	require.Len(t, batches, 3)
	require.Len(t, batches[1], 12, "testcase 2 must not reach canonicalization")
	require.Len(t, batches[2], 8)
	require.Len(t, next["anticheat"]["bob"].Result["alice"].Testpoints, 8)
}

func TestAnticheatUsesProducerOkSet(t *testing.T) {
	sched := &schedclient.Fake{
		RunFunc: func(tps []domain.Testpoint) ([]schedclient.RunResult, error) {
			return accepted(tps, 0.25), nil
		},
	}
	j := newJudge(t, judgesrvc.VariantPlagiarism, sched)

	snapshot := domain.NewState("cheat", "anticheat")
	snapshot["cheat"]["alice"] = domain.Entry{
		SubmissionID: "alice/1",
		Ok:           []int{1, 3},
		Result: map[string]domain.OpponentResult{
			"carol": {OpponentUser: "carol", OpponentSubmissionID: "carol/1"},
		},
	}
	snapshot["cheat"]["bob"] = domain.Entry{SubmissionID: "bob/9", Ok: []int{}}

	next, _, err := j.Judge(context.Background(), subm("anticheat", "bob", "bob/2"), snapshot)
	require.NoError(t, err)

	own := next["anticheat"]["bob"]
	require.Equal(t, []int{1, 2, 3, 4}, own.Ok)
	require.Len(t, own.Result, 1, "own cheat entry is not an opponent")
	require.Len(t, own.Result["alice"].Testpoints, 8)
	require.Equal(t, 3, own.Result["alice"].Testpoints[4].Testcase)

	alice := next["cheat"]["alice"]
	require.Equal(t, []int{1, 3}, alice.Ok)
	require.Contains(t, alice.Result, "carol", "other pairs are untouched")
	require.Equal(t, "bob/2", alice.Result["bob"].OpponentSubmissionID)

	batches := sched.Batches()
	require.Len(t, batches, 1)
	assert.Equal(t, domain.NewRef("5buc", "bob/2"), batches[0][0].Code)
	assert.Equal(t, domain.NewRef("5buc", "alice/1-1aa/normalized.p"), batches[0][0].Input)
}

func TestCrossMatchFailureLeavesNoResults(t *testing.T) {
	sched := &schedclient.Fake{
		RunFunc: func(tps []domain.Testpoint) ([]schedclient.RunResult, error) {
			if isCross(tps[0]) && tps[0].Code.Key == "b2/1" {
				return nil, &schedclient.BatchError{Result: "internal_error", Message: "sandbox lost"}
			}
			return accepted(tps, 1), nil
		},
	}
	j := newJudge(t, judgesrvc.VariantPlagiarism, sched)

	snapshot := domain.NewState("cheat", "anticheat")
	for _, u := range []string{"b1", "b2", "b3"} {
		snapshot["anticheat"][u] = domain.Entry{SubmissionID: u + "/1", Result: map[string]domain.OpponentResult{}}
	}
	before := snapshot.Clone()

	next, _, err := j.Judge(context.Background(), subm("cheat", "alice", "alice/1"), snapshot)
	require.Nil(t, next)
	var se *judgesrvc.StageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, judgesrvc.StageCross, se.Stage)
	require.Contains(t, err.Error(), "sandbox lost")
	var be *schedclient.BatchError
	require.ErrorAs(t, err, &be)
	require.Equal(t, before, snapshot)
}

func TestResubmissionReplacesEntry(t *testing.T) {
	sched := &schedclient.Fake{
		RunFunc: func(tps []domain.Testpoint) ([]schedclient.RunResult, error) {
			res := accepted(tps, 0)
			for i, tp := range tps {
				if tp.Input.Key == "4a/input.p" {
					res[i].Result = "wrong_answer"
				}
			}
			return res, nil
		},
	}
	j := newJudge(t, judgesrvc.VariantPlagiarism, sched)

	snapshot := domain.NewState("cheat", "anticheat")
	snapshot["cheat"]["alice"] = domain.Entry{
		SubmissionID: "alice/1",
		Ok:           []int{1, 2, 3, 4},
		Result: map[string]domain.OpponentResult{
			"bob":  {OpponentUser: "bob", OpponentSubmissionID: "bob/1"},
			"gone": {OpponentUser: "gone", OpponentSubmissionID: "gone/1"},
		},
	}
	snapshot["anticheat"]["bob"] = domain.Entry{
		SubmissionID: "bob/1",
		Result: map[string]domain.OpponentResult{
			"alice": {OpponentUser: "alice", OpponentSubmissionID: "alice/1"},
		},
	}

	next, _, err := j.Judge(context.Background(), subm("cheat", "alice", "alice/2"), snapshot)
	require.NoError(t, err)

	alice := next["cheat"]["alice"]
	require.Equal(t, "alice/2", alice.SubmissionID)
	require.Equal(t, []int{1, 2, 3}, alice.Ok)
	require.NotContains(t, alice.Result, "gone")
	require.Len(t, alice.Result["bob"].Testpoints, 12)
	require.Equal(t, "alice/2", next["anticheat"]["bob"].Result["alice"].OpponentSubmissionID)
}

func TestNoOpponentsStillRecordsEntry(t *testing.T) {
	sched := &schedclient.Fake{}
	j := newJudge(t, judgesrvc.VariantPlagiarism, sched)

	next, _, err := j.Judge(context.Background(), subm("cheat", "alice", "alice/1"), domain.NewState("cheat", "anticheat"))
	require.NoError(t, err)
	require.Empty(t, next["cheat"]["alice"].Result)
	require.Len(t, sched.Batches(), 2)
}

func TestServerRequiresFullValidation(t *testing.T) {
	sched := &schedclient.Fake{
		RunFunc: func(tps []domain.Testpoint) ([]schedclient.RunResult, error) {
			res := accepted(tps, 1)
			for i, tp := range tps {
				if tp.Input.Key == "3/tasks.in" {
					res[i] = schedclient.RunResult{Result: "time_limit_exceeded"}
				}
			}
			return res, nil
		},
	}
	j := newJudge(t, judgesrvc.VariantScheduling, sched)

	snapshot := domain.NewState("client", "server")
	snapshot["client"]["carol"] = domain.Entry{SubmissionID: "carol/1", Ok: []int{1, 2, 3, 4}}

	next, _, err := j.Judge(context.Background(), subm("server", "sam", "sam/1"), snapshot)
	require.Nil(t, next)
	var se *judgesrvc.StageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, judgesrvc.StageValidate, se.Stage)
	require.True(t, strings.Contains(err.Error(), "testcase 3: time_limit_exceeded"))
	require.Len(t, sched.Batches(), 1, "cross-matching must not start")
}

func TestSchedulingClientCrossMatch(t *testing.T) {
	sched := &schedclient.Fake{
		RunFunc: func(tps []domain.Testpoint) ([]schedclient.RunResult, error) {
			res := accepted(tps, 1)
			if tps[0].Input.Bucket == "5buc" {
				res[0].Score = -0.5
				res[1].Score = 0.75
			}
			return res, nil
		},
	}
	j := newJudge(t, judgesrvc.VariantScheduling, sched)

	snapshot := domain.NewState("client", "server")
	snapshot["server"]["sam"] = domain.Entry{SubmissionID: "sam/1", Ok: []int{1, 2, 3, 4}}

	next, _, err := j.Judge(context.Background(), subm("client", "carol", "carol/1"), snapshot)
	require.NoError(t, err)

	tps := next["client"]["carol"].Result["sam"].Testpoints
	require.Len(t, tps, 4)
	require.Equal(t, domain.TestpointScore{Testcase: 1, Variant: "std", Score: 0}, tps[0])
	require.Equal(t, 0.75, tps[1].Score)

	batches := sched.Batches()
	require.Len(t, batches, 2)
	assert.Equal(t, domain.RefPtr("5bt", "validator"), batches[0][0].Checker)
	assert.Equal(t, domain.NewRef("5bt", "1/desc.in"), batches[0][0].Input)
	assert.Equal(t, domain.RefPtr("5buc", "carol/1-1/tasks.out"), batches[0][0].Output)

	assert.Equal(t, domain.NewRef("5buc", "sam/1"), batches[1][0].Code)
	assert.Equal(t, domain.RefPtr("5bt", "slo"), batches[1][0].Checker)
	assert.Equal(t, domain.NewRef("5buc", "carol/1-1/tasks.out"), batches[1][0].Input)
}

func TestUnknownVariant(t *testing.T) {
	c := conf.DefaultContest()
	c.Variant = "chess"
	_, err := judgesrvc.NewVariant(c)
	require.Error(t, err)
}
