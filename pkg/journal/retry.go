package journal

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// backoff controls retries of journal writes that hit transient SQLite
// contention (several tm processes may append to one WAL-mode file).
type backoff struct {
	attempts int // retries after the first try
	base     time.Duration
	max      time.Duration
}

var defaultBackoff = backoff{
	attempts: 3,
	base:     50 * time.Millisecond,
	max:      500 * time.Millisecond,
}

// transient reports whether err is worth retrying: SQLITE_BUSY,
// SQLITE_LOCKED (including their extended codes) or IOERR_SHORT_READ.
// Errors that did not come from the driver as *sqlite.Error are matched on
// their text.
func transient(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		switch code & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return code == sqlite3.SQLITE_IOERR_SHORT_READ
	}
	msg := err.Error()
	for _, s := range []string{"SQLITE_BUSY", "SQLITE_LOCKED", "IOERR_SHORT_READ", "database is locked", "database table is locked"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// do runs fn until it succeeds, fails permanently, runs out of attempts or
// ctx is done.
func (b backoff) do(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(); err == nil || !transient(err) || attempt >= b.attempts {
			return err
		}
		t := time.NewTimer(b.delay(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return errors.Join(err, ctx.Err())
		case <-t.C:
		}
	}
}

// delay is base*2^attempt capped at max, plus jitter in [0, base).
func (b backoff) delay(attempt int) time.Duration {
	d := b.base << uint(attempt)
	if d > b.max || d <= 0 {
		d = b.max
	}
	return d + time.Duration(rand.Int63n(int64(b.base)))
}
