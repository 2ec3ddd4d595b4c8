package funnel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fruitytales/questsite/internal/core/domain/subscriber"
)

var (
	ErrUnknownStep                 = errors.New("unknown funnel step")
	ErrStepNotCurrent              = errors.New("step is not the current step")
	ErrEmailStepRequiresSubmission = errors.New("email step completes only through a successful submission")
	ErrSubmitInProgress            = errors.New("email submission already in progress")
	// ErrSubmissionFailed is retryable; the funnel stays on the email step.
	ErrSubmissionFailed = errors.New("email submission failed")
	// ErrFunnelClosed is returned by a submission whose funnel was closed
	// before the response arrived. The response is discarded.
	ErrFunnelClosed = errors.New("funnel closed during submission")
)

const DefaultSubmitTimeout = 15 * time.Second

// StepCompleteHook observes every completed step with the new completed count.
type StepCompleteHook func(step Step, totalCompleted int)

type Options struct {
	// Source and Tags identify the UI surface; they default to the quest modal.
	Source         string
	Tags           []string
	SubmitTimeout  time.Duration
	OnStepComplete StepCompleteHook
	Logger         *logrus.Logger
}

// Controller drives one player through steam, kickstarter and email. It is
// safe for concurrent use.
type Controller struct {
	client IntakeClient
	opts   Options

	mu         sync.Mutex
	current    Step
	completed  map[Step]bool
	emailDraft string
	submitting bool
	// generation changes on every Close so late responses can be recognised.
	generation uint64
}

func NewController(client IntakeClient, opts Options) *Controller {
	if opts.Source == "" {
		opts.Source = subscriber.SourceQuestModal
	}
	if len(opts.Tags) == 0 {
		opts.Tags = []string{subscriber.TagQuestComplete}
	}
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = DefaultSubmitTimeout
	}
	return &Controller{
		client:    client,
		opts:      opts,
		current:   StepSteam,
		completed: make(map[Step]bool, TotalSteps),
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// CompleteStep records a self-reported step (steam or kickstarter) and
// advances to the next one.
func (c *Controller) CompleteStep(step Step) (State, error) {
	c.mu.Lock()
	switch {
	case !step.Valid() || step == StepComplete:
		st := c.snapshotLocked()
		c.mu.Unlock()
		return st, fmt.Errorf("%w: %q", ErrUnknownStep, step)
	case step == StepEmail:
		st := c.snapshotLocked()
		c.mu.Unlock()
		return st, ErrEmailStepRequiresSubmission
	case step != c.current:
		st := c.snapshotLocked()
		c.mu.Unlock()
		return st, fmt.Errorf("%w: %s (current %s)", ErrStepNotCurrent, step, st.CurrentStep)
	}

	total := c.markCompletedLocked(step)
	st := c.snapshotLocked()
	c.mu.Unlock()

	c.stepCompleted(step, total)
	return st, nil
}

func (c *Controller) SetEmailDraft(email string) {
	c.mu.Lock()
	c.emailDraft = email
	c.mu.Unlock()
}

// SubmitEmail sends the email draft to the intake service. A duplicate email
// counts as success: the player is already on the list.
func (c *Controller) SubmitEmail(ctx context.Context) (State, error) {
	c.mu.Lock()
	if c.current != StepEmail {
		st := c.snapshotLocked()
		c.mu.Unlock()
		return st, fmt.Errorf("%w: %s (current %s)", ErrStepNotCurrent, StepEmail, st.CurrentStep)
	}
	if c.submitting {
		st := c.snapshotLocked()
		c.mu.Unlock()
		return st, ErrSubmitInProgress
	}
	email := c.emailDraft
	if !subscriber.IsValidEmail(email) {
		st := c.snapshotLocked()
		c.mu.Unlock()
		return st, fmt.Errorf("%w: %w", ErrSubmissionFailed, subscriber.ErrInvalidEmail)
	}
	c.submitting = true
	gen := c.generation
	c.mu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, c.opts.SubmitTimeout)
	defer cancel()
	_, err := c.client.Subscribe(reqCtx, &subscriber.SubscribeRequest{
		Email:  email,
		Source: c.opts.Source,
		Tags:   append([]string(nil), c.opts.Tags...),
	})

	c.mu.Lock()
	if gen != c.generation {
		st := c.snapshotLocked()
		c.mu.Unlock()
		return st, ErrFunnelClosed
	}
	c.submitting = false

	if err != nil && !errors.Is(err, subscriber.ErrDuplicateEmail) {
		st := c.snapshotLocked()
		c.mu.Unlock()
		c.logf(logrus.WarnLevel, err, "quest email submission failed")
		return st, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}
	if err != nil {
		c.logf(logrus.InfoLevel, nil, "quest email already subscribed; completing step")
	}

	total := c.markCompletedLocked(StepEmail)
	st := c.snapshotLocked()
	c.mu.Unlock()

	c.stepCompleted(StepEmail, total)
	return st, nil
}

// Close resets the funnel from any step. Progress is not kept across reopen.
func (c *Controller) Close() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = StepSteam
	c.completed = make(map[Step]bool, TotalSteps)
	c.emailDraft = ""
	c.submitting = false
	c.generation++
	return c.snapshotLocked()
}

func (c *Controller) markCompletedLocked(step Step) int {
	c.completed[step] = true
	c.current = StepComplete
	for _, s := range canonicalSteps {
		if !c.completed[s] {
			c.current = s
			break
		}
	}
	return len(c.completed)
}

func (c *Controller) snapshotLocked() State {
	done := make([]Step, 0, len(c.completed))
	for _, s := range canonicalSteps {
		if c.completed[s] {
			done = append(done, s)
		}
	}
	return State{
		CurrentStep:    c.current,
		CompletedSteps: done,
		EmailDraft:     c.emailDraft,
		Submitting:     c.submitting,
	}
}

func (c *Controller) stepCompleted(step Step, total int) {
	if c.opts.Logger != nil {
		c.opts.Logger.WithFields(logrus.Fields{"step": step, "completed": total}).Debug("quest step complete")
	}
	if c.opts.OnStepComplete != nil {
		c.opts.OnStepComplete(step, total)
	}
}

func (c *Controller) logf(level logrus.Level, err error, msg string) {
	if c.opts.Logger == nil {
		return
	}
	entry := c.opts.Logger.WithField("source", c.opts.Source)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Log(level, msg)
}
