package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sunnyrelay/sunnyrelay/pkg/log"
	"github.com/sunnyrelay/sunnyrelay/pkg/storage"
	"github.com/sunnyrelay/sunnyrelay/pkg/sunnyportal"
	"github.com/sunnyrelay/sunnyrelay/pkg/types"
)

// Portal is the part of the Sunny Portal client the relay needs.
type Portal interface {
	Login(ctx context.Context, creds types.Credentials) (*sunnyportal.Session, error)
	HomeManager(ctx context.Context, sess *sunnyportal.Session) (types.HomeManager, error)
}

var _ Portal = (*sunnyportal.Client)(nil)

// Relay logs into the portal, polls the home manager and publishes every
// reading into the state store. Run is the only goroutine that touches the
// session, so at most one login or fetch is ever in flight.
type Relay struct {
	portal Portal
	db     storage.Database

	creds      types.Credentials
	interval   time.Duration
	retryDelay time.Duration
	namespace  string

	after func(time.Duration) <-chan time.Time
	now   func() time.Time

	// owned by Run
	session *sunnyportal.Session

	status statusTracker
}

// New returns a Relay for the given configuration.
func New(portal Portal, db storage.Database, cfg AdapterConfig, namespace string) *Relay {
	r := &Relay{
		portal:     portal,
		db:         db,
		retryDelay: RetryDelay,
		after:      time.After,
		now:        time.Now,
	}
	r.configure(cfg, namespace)
	return r
}

func (r *Relay) configure(cfg AdapterConfig, namespace string) {
	r.creds = types.Credentials{
		Username: cfg.Username,
		Password: cfg.Password,
		PlantOID: cfg.PlantOID,
	}
	r.interval = PollInterval(cfg.Interval)
	r.namespace = namespace
}

// Namespace returns the prefix of every state ID the relay publishes.
func (r *Relay) Namespace() string {
	return r.namespace
}

// Interval returns the effective poll interval.
func (r *Relay) Interval() time.Duration {
	return r.interval
}

// Run authenticates, polls and re-authenticates until ctx is canceled. Every
// failure ends in a fixed RetryDelay wait followed by a fresh login; nothing
// is ever returned except on shutdown.
func (r *Relay) Run(ctx context.Context) error {
	ctx = log.WithAttrs(ctx, slog.String("plantOID", r.creds.PlantOID))
	log.Ctx(ctx).InfoContext(
		ctx,
		"starting sunnyportal relay",
		slog.String("username", r.creds.Username),
		slog.Duration("interval", r.interval),
		slog.String("namespace", r.namespace),
	)
	defer log.Ctx(ctx).InfoContext(ctx, "cleaned everything up")

	for {
		r.runSession(ctx)
		if ctx.Err() != nil {
			return nil
		}

		log.Ctx(ctx).DebugContext(ctx, "waiting to log in again", slog.Duration("delay", r.retryDelay))
		select {
		case <-ctx.Done():
			return nil
		case <-r.after(r.retryDelay):
		}
	}
}

// runSession performs one authentication episode: log in, poll immediately,
// then poll on every tick until a poll fails. The ticker is armed after the
// first successful poll and is always stopped before returning.
func (r *Relay) runSession(ctx context.Context) {
	sess, err := r.portal.Login(ctx, r.creds)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Ctx(ctx).WarnContext(ctx, "failed to log in to sunnyportal", slog.Any("error", err))
		r.status.update(func(s *Status) {
			s.LoginFailures++
			s.LastError = err.Error()
		})
		return
	}
	r.session = sess
	r.status.update(func(s *Status) {
		s.Logins++
		s.Authenticated = true
	})
	defer func() {
		r.session = nil
		r.status.update(func(s *Status) {
			s.Authenticated = false
		})
	}()

	var ticker *time.Ticker
	var tick <-chan time.Time
	defer func() {
		if ticker != nil {
			ticker.Stop()
			r.status.update(func(s *Status) {
				s.TimerArmed = false
			})
		}
	}()

	for {
		if err := r.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			switch {
			case errors.Is(err, sunnyportal.ErrSessionLost):
				log.Ctx(ctx).WarnContext(ctx, "sunnyportal session lost", slog.Any("error", err))
			case errors.Is(err, sunnyportal.ErrMalformedResponse):
				log.Ctx(ctx).WarnContext(ctx, "malformed homemanager response", slog.Any("error", err))
			default:
				log.Ctx(ctx).ErrorContext(ctx, "failed to poll homemanager", slog.Any("error", err))
			}
			return
		}

		if ticker == nil {
			ticker = time.NewTicker(r.interval)
			tick = ticker.C
			r.status.update(func(s *Status) {
				s.TimerArmed = true
				s.TimerArms++
			})
			log.Ctx(ctx).DebugContext(ctx, "poll timer armed", slog.Duration("interval", r.interval))
		}

		select {
		case <-ctx.Done():
			return
		case <-tick:
		}
	}
}

// poll fetches one reading and publishes it. Only portal errors are
// returned; publish errors are logged and counted.
func (r *Relay) poll(ctx context.Context) error {
	hm, err := r.portal.HomeManager(ctx, r.session)
	now := r.now()
	if err != nil {
		r.status.update(func(s *Status) {
			s.PollFailures++
			s.LastPoll = now
			s.LastError = err.Error()
		})
		return err
	}

	log.Ctx(ctx).InfoContext(
		ctx,
		"homemanager reading",
		slog.Any("totalConsumption", hm.TotalConsumption.Value()),
		slog.String("timestamp", hm.DateTime()),
	)

	failures := r.publishHomeManager(ctx, hm)
	r.status.update(func(s *Status) {
		s.Polls++
		s.PublishFailures += failures
		s.LastPoll = now
		s.LastUpdate = hm.DateTime()
	})
	return nil
}
