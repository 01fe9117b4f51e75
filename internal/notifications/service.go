package notifications

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"timelapse/internal/config"
)

const userAgent = "timelapse/0.1.0"

// Kind identifies the job event being announced.
type Kind string

const (
	KindCompleted Kind = "completed"
	KindFailed    Kind = "failed"
	KindTest      Kind = "test"
)

// Event is one job notification, rendered per backend.
type Event struct {
	Kind    Kind
	JobID   string
	Frames  int
	Elapsed time.Duration
	Message string
	At      time.Time
}

// Service defines the notification surface exposed to the job workflow.
type Service interface {
	NotifyJobCompleted(ctx context.Context, jobID string, frames int, elapsed time.Duration) error
	NotifyJobFailed(ctx context.Context, jobID, message string) error
	TestNotification(ctx context.Context) error
	Close() error
}

type backend interface {
	send(ctx context.Context, event Event) error
	close() error
}

// NewService builds a service that fans out to every configured backend:
// ntfy when a topic is set, redis pub/sub when an address is set. With
// neither configured a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	timeout := cfg.NotifyTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var backends []backend
	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		backends = append(backends, newNtfy(topic, &http.Client{Timeout: timeout}))
	}
	if addr := strings.TrimSpace(cfg.Notifications.RedisAddr); addr != "" {
		backends = append(backends, newRedisPublisher(addr, cfg.Notifications.RedisChannel, timeout))
	}
	if len(backends) == 0 {
		return noopService{}
	}
	return &fanout{
		backends:   backends,
		onComplete: cfg.Notifications.OnComplete,
		onFailure:  cfg.Notifications.OnFailure,
		now:        time.Now,
	}
}

type fanout struct {
	backends   []backend
	onComplete bool
	onFailure  bool
	now        func() time.Time
}

func (f *fanout) NotifyJobCompleted(ctx context.Context, jobID string, frames int, elapsed time.Duration) error {
	if !f.onComplete {
		return nil
	}
	return f.dispatch(ctx, Event{Kind: KindCompleted, JobID: jobID, Frames: frames, Elapsed: elapsed})
}

func (f *fanout) NotifyJobFailed(ctx context.Context, jobID, message string) error {
	if !f.onFailure {
		return nil
	}
	return f.dispatch(ctx, Event{Kind: KindFailed, JobID: jobID, Message: strings.TrimSpace(message)})
}

func (f *fanout) TestNotification(ctx context.Context) error {
	return f.dispatch(ctx, Event{Kind: KindTest})
}

// dispatch delivers to every backend; one backend failing does not stop the others.
func (f *fanout) dispatch(ctx context.Context, event Event) error {
	event.At = f.now().UTC()
	var errs []error
	for _, b := range f.backends {
		if err := b.send(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fanout) Close() error {
	var errs []error
	for _, b := range f.backends {
		if err := b.close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, string, int, time.Duration) error { return nil }
func (noopService) NotifyJobFailed(context.Context, string, string) error               { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
func (noopService) Close() error                                                        { return nil }
