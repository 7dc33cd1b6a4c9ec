package queuesrvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/programme-lv/duel/arena"
	"github.com/programme-lv/duel/domain"
	"github.com/programme-lv/duel/judgesrvc"
	"github.com/programme-lv/duel/logger"
	"github.com/programme-lv/duel/statestore"
)

type Judge interface {
	Compile(ctx context.Context, subm domain.Submission) error
	Judge(ctx context.Context, subm domain.Submission, snapshot domain.State) (domain.State, string, error)
}

// Worker drives queue heads through compile and judge one at a time.
type Worker struct {
	logger *slog.Logger
	queue  Queue
	subms  statestore.SubmissionRepo
	slots  statestore.SlotRepo
	judge  Judge
	arena  *arena.Arena
	poll   time.Duration
	now    func() time.Time
}

func NewWorker(
	queue Queue,
	subms statestore.SubmissionRepo,
	slots statestore.SlotRepo,
	judge Judge,
	arena *arena.Arena,
	poll time.Duration,
) *Worker {
	return &Worker{
		logger: slog.Default().With("module", "worker"),
		queue:  queue,
		subms:  subms,
		slots:  slots,
		judge:  judge,
		arena:  arena,
		poll:   poll,
		now:    time.Now,
	}
}

// Run processes the queue until ctx is cancelled. A submission that is being
// judged when ctx is cancelled still runs to a terminal status before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started", "poll", w.poll)
	for {
		if ctx.Err() != nil {
			w.logger.Info("worker stopped")
			return nil
		}

		entry, ok, err := w.queue.Head(ctx)
		if err != nil {
			if ctx.Err() == nil {
				w.logger.Error("failed to read queue head", "error", err)
			}
			w.sleep(ctx)
			continue
		}
		if !ok {
			w.sleep(ctx)
			continue
		}

		// the in-flight submission is not cancelled on shutdown
		jobCtx := context.WithoutCancel(ctx)
		if err := w.process(jobCtx, entry); err != nil {
			w.logger.Error("submission will be retried", "subm_id", entry.SubmissionID, "error", err)
			w.sleep(ctx)
			continue
		}
		if err := w.queue.Pop(jobCtx, entry); err != nil {
			w.logger.Error("failed to pop queue head", "subm_id", entry.SubmissionID, "error", err)
			w.sleep(ctx)
		}
	}
}

func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.poll):
	}
}

// process returns an error only when the submission could not reach a
// terminal status; the head is then kept and re-driven from scratch.
func (w *Worker) process(ctx context.Context, entry domain.QueueEntry) (err error) {
	ctx = logger.WithLogger(ctx, w.logger)
	ctx = logger.WithSubmission(ctx, entry.SubmissionID, entry.User, entry.Role)
	log := logger.FromContext(ctx)

	subm, err := w.subms.GetSubmission(ctx, entry.SubmissionID)
	if errors.Is(err, statestore.ErrNotFound) {
		log.Warn("queued submission does not exist, dropping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load submission: %w", err)
	}
	if subm.Status.Terminal() {
		log.Info("submission already finished, dropping", "status", subm.Status)
		return nil
	}
	if subm.Status.InFlight() {
		log.Warn("re-driving interrupted submission", "status", subm.Status)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("judging panicked", "panic", r)
			err = w.finish(ctx, &subm, domain.StatusError, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if err := w.setStatus(ctx, &subm, domain.StatusCompiling, ""); err != nil {
		return err
	}
	if err := w.judge.Compile(ctx, subm); err != nil {
		var ce *judgesrvc.CompileError
		if errors.As(err, &ce) {
			if err := w.releaseSlot(ctx, subm); err != nil {
				return err
			}
			return w.finish(ctx, &subm, domain.StatusCompileError, ce.Error())
		}
		return w.finish(ctx, &subm, domain.StatusError, err.Error())
	}

	if err := w.setStatus(ctx, &subm, domain.StatusJudging, ""); err != nil {
		return err
	}
	next, diag, err := w.judge.Judge(ctx, subm, w.arena.Snapshot())
	if err != nil {
		return w.finish(ctx, &subm, domain.StatusError, err.Error())
	}
	if err := w.arena.Commit(ctx, next); err != nil {
		return w.finish(ctx, &subm, domain.StatusError, err.Error())
	}
	return w.finish(ctx, &subm, domain.StatusDone, diag)
}

func (w *Worker) setStatus(ctx context.Context, subm *domain.Submission, status domain.Status, msg string) error {
	subm.Status = status
	subm.Message = msg
	subm.UpdatedAt = w.now()
	if err := w.subms.PutSubmission(ctx, *subm); err != nil {
		return fmt.Errorf("failed to set status %s: %w", status, err)
	}
	return nil
}

func (w *Worker) finish(ctx context.Context, subm *domain.Submission, status domain.Status, msg string) error {
	if err := w.setStatus(ctx, subm, status, msg); err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	if status == domain.StatusDone {
		log.Info("submission judged")
	} else {
		log.Warn("submission failed", "status", status, "message", msg)
	}
	return nil
}

// releaseSlot lets the user resubmit the role immediately after a compile error.
func (w *Worker) releaseSlot(ctx context.Context, subm domain.Submission) error {
	slot, ok, err := w.slots.GetSlot(ctx, subm.User, subm.Role)
	if err != nil {
		return fmt.Errorf("failed to load slot: %w", err)
	}
	if !ok || slot.SubmissionID != subm.ID || slot.Time.IsZero() {
		return nil
	}
	slot.Time = time.Time{}
	if err := w.slots.PutSlot(ctx, slot); err != nil {
		return fmt.Errorf("failed to release slot: %w", err)
	}
	return nil
}
