package sessioncache

import (
	"log/slog"
	"os"
	"psk-resumption/session/tls/common/session"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
)

var bucketSessions = []byte("sessions")

// Bolt keeps sessions in a bolt database, so they survive restarts.
type Bolt struct {
	db   *bolt.DB
	opts Options
}

var _ Store = (*Bolt)(nil)

func OpenBolt(path string, mode os.FileMode, opts Options) (*Bolt, error) {
	db, err := bolt.Open(path, mode, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening bolt database")
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSessions)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating sessions bucket")
	}

	return &Bolt{db: db, opts: opts.withDefaults()}, nil
}

func (b *Bolt) Close() error {
	return b.db.Close()
}

func (b *Bolt) Put(sess *session.Session) error {
	if err := validate(sess); err != nil {
		return errors.Wrap(err, "putting session")
	}

	raw, err := sess.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "marshaling session")
	}

	err = b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketSessions)
		if b.opts.Capacity > 0 && bucket.Stats().KeyN >= b.opts.Capacity && bucket.Get(sess.ID) == nil {
			// Keys are random, so this drops an arbitrary session.
			if k, _ := bucket.Cursor().First(); k != nil {
				if err := bucket.Delete(k); err != nil {
					return err
				}
			}
		}
		return bucket.Put(sess.ID, raw)
	})
	if err != nil {
		return errors.Wrap(err, "storing session")
	}

	return nil
}

func (b *Bolt) Pull(id []byte) (*session.Session, error) {
	var raw []byte
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketSessions)

		v := bucket.Get(id)
		if v == nil {
			return ErrNotFound
		}
		// v is only valid during the transaction.
		raw = append([]byte(nil), v...)

		return bucket.Delete(id)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "pulling session")
	}

	sess := new(session.Session)
	if err := sess.UnmarshalBinary(raw); err != nil {
		return nil, errors.Wrap(err, "unmarshaling session")
	}

	if !sess.Rejoinable(b.opts.Clock.Now(), b.opts.Lifetime) {
		b.opts.Logger.Debug("dropped expired session", slog.Time("created_at", sess.CreatedAt))
		return nil, ErrNotFound
	}

	return sess, nil
}

func (b *Bolt) Remove(id []byte) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSessions).Delete(id)
	})
	if err != nil {
		return errors.Wrap(err, "removing session")
	}
	return nil
}
