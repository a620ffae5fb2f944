// Package docstore persists board records in MongoDB.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/juju/mgo/v3"
)

// ErrRecordNotFound is returned when no record matches the given id.
var ErrRecordNotFound = errors.New("record not found")

const dialTimeout = 10 * time.Second

// storedNow returns the current time at the millisecond precision BSON dates keep.
func storedNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Store provides record access backed by a MongoDB session.
type Store struct {
	session  *mgo.Session
	database string
	now      func() time.Time
}

// New dials MongoDB and verifies the connection.
func New(ctx context.Context, mongoURL, database string) (*Store, error) {
	info, err := mgo.ParseURL(mongoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MongoDB URL: %w", err)
	}

	info.Timeout = dialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		info.Timeout = time.Until(deadline)
	}

	session, err := mgo.DialWithInfo(info)
	if err != nil {
		return nil, fmt.Errorf("failed to dial MongoDB: %w", err)
	}
	session.SetMode(mgo.Monotonic, true)

	if err := session.Ping(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	if database == "" {
		database = info.Database
	}

	return &Store{
		session:  session,
		database: database,
		now:      storedNow,
	}, nil
}

// Ping checks MongoDB connectivity.
func (s *Store) Ping(ctx context.Context) error {
	session := s.session.Copy()
	defer session.Close()

	done := make(chan error, 1)
	go func() { done <- session.Ping() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the root session.
func (s *Store) Close() {
	s.session.Close()
}

// collection returns a fresh session copy and the named collection on it.
// Callers must close the returned session.
func (s *Store) collection(name string) (*mgo.Session, *mgo.Collection) {
	session := s.session.Copy()
	return session, session.DB(s.database).C(name)
}
