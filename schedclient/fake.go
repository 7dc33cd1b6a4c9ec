package schedclient

import (
	"context"
	"sync"

	"github.com/programme-lv/duel/domain"
)

// Fake is an in-memory Scheduler for tests and local runs without sandboxes.
// Unset hooks compile everything and accept every testpoint with score 1.
type Fake struct {
	CompileFunc func(job domain.CompileJob) (CompileResult, error)
	RunFunc     func(tps []domain.Testpoint) ([]RunResult, error)

	mu       sync.Mutex
	compiles []domain.CompileJob
	batches  [][]domain.Testpoint
}

var _ Scheduler = (*Fake)(nil)

func (f *Fake) Compile(ctx context.Context, job domain.CompileJob) (CompileResult, error) {
	f.mu.Lock()
	f.compiles = append(f.compiles, job)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return CompileResult{}, err
	}
	if f.CompileFunc != nil {
		return f.CompileFunc(job)
	}
	return CompileResult{Result: ResultCompiled}, nil
}

func (f *Fake) Run(ctx context.Context, tps []domain.Testpoint) ([]RunResult, error) {
	f.mu.Lock()
	f.batches = append(f.batches, tps)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.RunFunc != nil {
		return f.RunFunc(tps)
	}
	res := make([]RunResult, len(tps))
	for i := range res {
		res[i] = RunResult{Result: ResultAccepted, Score: 1}
	}
	return res, nil
}

func (f *Fake) Compiles() []domain.CompileJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.CompileJob(nil), f.compiles...)
}

func (f *Fake) Batches() [][]domain.Testpoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]domain.Testpoint(nil), f.batches...)
}
