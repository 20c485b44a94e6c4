package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"staffdesk/internal/metrics"
	"staffdesk/internal/model"
)

const (
	QueueEmail = "jobs:email"

	JobWelcomeEmail = "welcome_email"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Handler processes one job payload. A returned error schedules a retry.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Dispatcher enqueues async jobs. It is the registration Notifier.
type Dispatcher struct{ q Queue }

func NewDispatcher(q Queue) *Dispatcher { return &Dispatcher{q: q} }

// AccountRegistered queues the welcome mail for a new account.
func (d *Dispatcher) AccountRegistered(ctx context.Context, a *model.Account) error {
	return d.Enqueue(ctx, QueueEmail, JobWelcomeEmail, WelcomeEmailPayload{
		ToEmail:  a.Email,
		Name:     a.DisplayName(),
		Username: a.Username,
	})
}

func (d *Dispatcher) Enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.q.Push(ctx, queue, encoded)
}

type PoolOptions struct {
	Queues      []string
	MaxAttempts int           // attempts before a job goes to the DLQ
	PollTimeout time.Duration // upper bound on a blocking pop
	Metrics     *metrics.Metrics
}

// Pool runs workers that pop jobs and dispatch them to handlers by type.
type Pool struct {
	q        Queue
	opts     PoolOptions
	handlers map[string]Handler
	wg       sync.WaitGroup
}

func NewPool(q Queue, opts PoolOptions) *Pool {
	if len(opts.Queues) == 0 {
		opts.Queues = []string{QueueEmail}
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 5 * time.Second
	}
	return &Pool{q: q, opts: opts, handlers: make(map[string]Handler)}
}

// Handle registers h for jobType. Must be called before Start.
func (p *Pool) Handle(jobType string, h Handler) { p.handlers[jobType] = h }

// Start launches n workers that stop when ctx is cancelled.
func (p *Pool) Start(ctx context.Context, n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, id)
		}(i)
	}
	log.Info().Int("workers", n).Strs("queues", p.opts.Queues).Msg("worker pool started")
}

// Wait blocks until every worker has returned.
func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) run(ctx context.Context, id int) {
	for {
		queue, raw, err := p.q.Pop(ctx, p.opts.PollTimeout, p.opts.Queues...)
		if ctx.Err() != nil {
			log.Debug().Int("worker", id).Msg("worker shutting down")
			return
		}
		switch {
		case errors.Is(err, ErrEmpty):
			continue
		case err != nil:
			log.Error().Err(err).Int("worker", id).Msg("queue pop failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		p.process(ctx, queue, raw)
	}
}

func (p *Pool) process(ctx context.Context, queue string, raw []byte) {
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("failed to unmarshal job")
		quoted, _ := json.Marshal(string(raw))
		SendToDLQ(ctx, p.q, queue, Job{Type: "unknown", Payload: quoted}, "malformed job")
		p.opts.Metrics.JobProcessed("unknown", "dead")
		return
	}

	h, ok := p.handlers[job.Type]
	if !ok {
		SendToDLQ(ctx, p.q, queue, job, "no handler for job type")
		p.opts.Metrics.JobProcessed(job.Type, "dead")
		return
	}

	job.Attempts++
	err := h(ctx, job.Payload)
	if err == nil {
		p.opts.Metrics.JobProcessed(job.Type, "ok")
		return
	}

	if job.Attempts >= p.opts.MaxAttempts {
		SendToDLQ(ctx, p.q, queue, job, err.Error())
		p.opts.Metrics.JobProcessed(job.Type, "dead")
		return
	}
	log.Warn().Err(err).Str("type", job.Type).Int("attempt", job.Attempts).Msg("job failed, requeueing")
	encoded, mErr := json.Marshal(job)
	if mErr == nil {
		mErr = p.q.Push(ctx, queue, encoded)
	}
	if mErr != nil {
		log.Error().Err(mErr).Str("type", job.Type).Msg("failed to requeue job")
		SendToDLQ(ctx, p.q, queue, job, err.Error())
		p.opts.Metrics.JobProcessed(job.Type, "dead")
		return
	}
	p.opts.Metrics.JobProcessed(job.Type, "retry")
}
