package submsrvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/programme-lv/duel/domain"
	"github.com/programme-lv/duel/judgesrvc"
	"github.com/programme-lv/duel/queuesrvc"
	"github.com/programme-lv/duel/statestore"
)

const presignTtl = 60 * time.Second

// ObjectStore is the user content bucket.
type ObjectStore interface {
	Size(ctx context.Context, key string) (int64, bool, error)
	Delete(ctx context.Context, key string) error
	PresignPut(ctx context.Context, key string, ttl time.Duration) (string, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type SubmSrvc struct {
	logger  *slog.Logger
	variant *judgesrvc.Variant
	objects ObjectStore
	subms   statestore.SubmissionRepo
	slots   statestore.SlotRepo
	queue   queuesrvc.Queue

	interval time.Duration
	maxBytes int64
	now      func() time.Time

	// serializes the duplicate and rate limit checks with the slot update
	mu sync.Mutex
}

type Option func(*SubmSrvc)

func WithClock(now func() time.Time) Option {
	return func(s *SubmSrvc) { s.now = now }
}

func NewSubmSrvc(
	variant *judgesrvc.Variant,
	objects ObjectStore,
	subms statestore.SubmissionRepo,
	slots statestore.SlotRepo,
	queue queuesrvc.Queue,
	interval time.Duration,
	maxBytes int64,
	opts ...Option,
) *SubmSrvc {
	s := &SubmSrvc{
		logger:   slog.Default().With("module", "subm"),
		variant:  variant,
		objects:  objects,
		subms:    subms,
		slots:    slots,
		queue:    queue,
		interval: interval,
		maxBytes: maxBytes,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SubmSrvc) Roles() []string {
	return s.variant.Roles()
}

type Upload struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// NewUpload reserves a fresh submission id and a short-lived upload URL for its source.
func (s *SubmSrvc) NewUpload(ctx context.Context, user string) (Upload, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Upload{}, fmt.Errorf("failed to generate uuid: %w", err)
	}
	ref := s.variant.SourceRef(user + "/" + id.String())
	url, err := s.objects.PresignPut(ctx, ref.Key, presignTtl)
	if err != nil {
		return Upload{}, err
	}
	return Upload{ID: id.String(), URL: url}, nil
}

// Submit turns an uploaded source into a pending submission for role and
// enqueues it. The returned submission id is "{user}/{postfixId}".
func (s *SubmSrvc) Submit(ctx context.Context, role string, user string, postfixId string) (domain.Submission, error) {
	if !s.variant.HasRole(role) {
		return domain.Submission{}, ErrInvalidRole(role)
	}
	if postfixId == "" || strings.Contains(postfixId, "/") {
		return domain.Submission{}, ErrInvalidSubmissionId()
	}
	id := user + "/" + postfixId
	log := s.logger.With("subm_id", id, "user", user, "role", role)

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.subms.GetSubmission(ctx, id)
	if err == nil {
		return domain.Submission{}, ErrDuplicateSubmission()
	}
	if !errors.Is(err, statestore.ErrNotFound) {
		return domain.Submission{}, fmt.Errorf("failed to check submission: %w", err)
	}

	now := s.now()
	slot, ok, err := s.slots.GetSlot(ctx, user, role)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("failed to load slot: %w", err)
	}
	if ok && !slot.Time.IsZero() {
		retryAfter := slot.Time.Add(s.interval)
		if now.Before(retryAfter) {
			log.Info("submission rate limited", "retry_after", retryAfter)
			return domain.Submission{}, ErrRateLimited(retryAfter)
		}
	}

	key := s.variant.SourceRef(id).Key
	size, exists, err := s.objects.Size(ctx, key)
	if err != nil {
		return domain.Submission{}, err
	}
	if !exists {
		return domain.Submission{}, ErrArtifactNotFound()
	}
	if size > s.maxBytes {
		if err := s.objects.Delete(ctx, key); err != nil {
			log.Error("failed to delete oversized source", "error", err)
		}
		return domain.Submission{}, ErrArtifactTooLarge(s.maxBytes)
	}

	subm := domain.Submission{
		ID:        id,
		User:      user,
		Role:      role,
		Time:      now,
		Status:    domain.StatusPending,
		UpdatedAt: now,
	}
	if err := s.subms.CreateSubmission(ctx, subm); err != nil {
		if errors.Is(err, statestore.ErrDuplicate) {
			return domain.Submission{}, ErrDuplicateSubmission()
		}
		return domain.Submission{}, fmt.Errorf("failed to create submission: %w", err)
	}
	err = s.slots.PutSlot(ctx, domain.Slot{User: user, Role: role, SubmissionID: id, Time: now})
	if err != nil {
		return domain.Submission{}, fmt.Errorf("failed to update slot: %w", err)
	}
	err = s.queue.Push(ctx, domain.QueueEntry{Role: role, User: user, SubmissionID: id})
	if err != nil {
		s.abandon(ctx, log, subm, slot, ok, err)
		return domain.Submission{}, fmt.Errorf("failed to enqueue submission: %w", err)
	}

	log.Info("submission enqueued")
	return subm, nil
}

// abandon undoes a submission that never reached the queue: the slot goes
// back to its previous value and the record ends in error.
func (s *SubmSrvc) abandon(ctx context.Context, log *slog.Logger, subm domain.Submission, prev domain.Slot, hadPrev bool, cause error) {
	if !hadPrev {
		prev = domain.Slot{User: subm.User, Role: subm.Role}
	}
	if err := s.slots.PutSlot(ctx, prev); err != nil {
		log.Error("failed to restore slot", "error", err)
	}
	subm.Status = domain.StatusError
	subm.Message = fmt.Sprintf("failed to enqueue: %v", cause)
	subm.UpdatedAt = s.now()
	if err := s.subms.PutSubmission(ctx, subm); err != nil {
		log.Error("failed to mark unqueued submission", "error", err)
	}
	log.Error("submission not enqueued", "error", cause)
}

// SourceURL returns a download URL for the user's current source of role,
// or "" when the user never submitted for it.
func (s *SubmSrvc) SourceURL(ctx context.Context, role string, user string) (string, error) {
	if !s.variant.HasRole(role) {
		return "", ErrInvalidRole(role)
	}
	slot, ok, err := s.slots.GetSlot(ctx, user, role)
	if err != nil {
		return "", fmt.Errorf("failed to load slot: %w", err)
	}
	if !ok || slot.SubmissionID == "" {
		return "", nil
	}
	return s.objects.PresignGet(ctx, s.variant.SourceRef(slot.SubmissionID).Key, presignTtl)
}

func (s *SubmSrvc) GetSubmission(ctx context.Context, id string) (domain.Submission, error) {
	subm, err := s.subms.GetSubmission(ctx, id)
	if errors.Is(err, statestore.ErrNotFound) {
		return domain.Submission{}, ErrSubmissionNotFound()
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("failed to get submission: %w", err)
	}
	return subm, nil
}

func (s *SubmSrvc) ListSubmissions(ctx context.Context, user string) ([]domain.Submission, error) {
	subms, err := s.subms.ListSubmissions(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return subms, nil
}

func (s *SubmSrvc) ListQueue(ctx context.Context) ([]domain.QueueEntry, error) {
	return s.queue.List(ctx)
}
