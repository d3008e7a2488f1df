// Package sessioncache stores resumable sessions by session ID.
// A session can be pulled out only once.
package sessioncache

import (
	"log/slog"
	"psk-resumption/session/tls/common/session"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("session not found")

type Store interface {
	Put(sess *session.Session) error
	// Pull looks up the session and removes it in one step.
	// Expired sessions are removed and reported as ErrNotFound.
	Pull(id []byte) (*session.Session, error)
	Remove(id []byte) error
}

type Options struct {
	// Defaults to session.DefaultLifetime.
	Lifetime time.Duration

	// Zero means unbounded.
	Capacity int

	Clock  clock.Clock
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Lifetime <= 0 {
		o.Lifetime = session.DefaultLifetime
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

func validate(sess *session.Session) error {
	if sess == nil || len(sess.ID) == 0 {
		return errors.New("session has no id")
	}
	return nil
}
