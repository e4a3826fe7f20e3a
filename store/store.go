// Package store connects to the data store and manages sessions, profiles,
// chat messages and picker selections
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/segmentio/ksuid"
	bolt "go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"

	"github.com/hyperworkchat/hyperwork/internal/models"
	"github.com/hyperworkchat/hyperwork/internal/timeutil"
)

const (
	sessionBucket      = "sessions"
	sessionIndexBucket = "session_index"
	profileBucket      = "profiles"
	accountBucket      = "accounts"
	messageBucket      = "messages"
	selectionBucket    = "selections"
	metaBucket         = "meta"
)

var errDBLocked = errors.New(
	"the database is locked: is another hyperwork process using it?",
)

// Client is a BoltDB database client.
type Client struct {
	*bolt.DB
	now func() time.Time
}

// recordKey builds a key that sorts by creation time and stays unique.
func recordKey(t time.Time, id string) []byte {
	return append(append(timeutil.ToKey(t), '/'), id...)
}

func (c *Client) CreateSession(
	_ context.Context,
	userID string,
	phase models.Phase,
	plannedDuration int,
) (string, error) {
	sess := models.WorkSession{
		ID:              ksuid.New().String(),
		UserID:          userID,
		Phase:           phase,
		StartTime:       c.now(),
		PlannedDuration: plannedDuration,
	}

	value, err := json.Marshal(sess)
	if err != nil {
		return "", err
	}

	key := recordKey(sess.StartTime, sess.ID)

	err = c.Update(func(tx *bolt.Tx) error {
		err := tx.Bucket([]byte(sessionBucket)).Put(key, value)
		if err != nil {
			return err
		}

		return tx.Bucket([]byte(sessionIndexBucket)).Put([]byte(sess.ID), key)
	})
	if err != nil {
		return "", err
	}

	return sess.ID, nil
}

func getSession(tx *bolt.Tx, id string) (key []byte, sess models.WorkSession, err error) {
	key = tx.Bucket([]byte(sessionIndexBucket)).Get([]byte(id))
	if key == nil {
		return nil, sess, ErrNotFound
	}

	v := tx.Bucket([]byte(sessionBucket)).Get(key)
	if v == nil {
		return nil, sess, ErrNotFound
	}

	err = json.Unmarshal(v, &sess)

	return bytes.Clone(key), sess, err
}

func (c *Client) UpdateSession(
	_ context.Context,
	id string,
	upd models.SessionUpdate,
) error {
	return c.Update(func(tx *bolt.Tx) error {
		key, sess, err := getSession(tx, id)
		if err != nil {
			return err
		}

		if sess.Ended() {
			return ErrSessionEnded
		}

		upd.Apply(&sess)

		value, err := json.Marshal(sess)
		if err != nil {
			return err
		}

		return tx.Bucket([]byte(sessionBucket)).Put(key, value)
	})
}

func (c *Client) GetSession(
	_ context.Context,
	id string,
) (models.WorkSession, error) {
	var sess models.WorkSession

	err := c.View(func(tx *bolt.Tx) error {
		var err error

		_, sess, err = getSession(tx, id)

		return err
	})

	return sess, err
}

func (c *Client) ListSessions(
	_ context.Context,
	userID string,
	limit int,
	before time.Time,
) ([]models.WorkSession, error) {
	limit = limitOrDefault(limit)

	var sessions []models.WorkSession

	err := c.View(func(tx *bolt.Tx) error {
		cur := tx.Bucket([]byte(sessionBucket)).Cursor()

		var k, v []byte

		if before.IsZero() {
			k, v = cur.Last()
		} else {
			// Seek lands on the first key at or after the bound, so step back
			// to stay strictly before it
			k, _ = cur.Seek(timeutil.ToKey(before))
			if k == nil {
				k, v = cur.Last()
			} else {
				k, v = cur.Prev()
			}
		}

		for ; k != nil && len(sessions) < limit; k, v = cur.Prev() {
			var sess models.WorkSession

			err := json.Unmarshal(v, &sess)
			if err != nil {
				return err
			}

			if sess.UserID == userID {
				sessions = append(sessions, sess)
			}
		}

		return nil
	})

	return sessions, err
}

func (c *Client) ListOpenSessions(
	_ context.Context,
	startedBefore time.Time,
) ([]models.WorkSession, error) {
	var sessions []models.WorkSession

	max := timeutil.ToKey(startedBefore)

	err := c.View(func(tx *bolt.Tx) error {
		cur := tx.Bucket([]byte(sessionBucket)).Cursor()

		for k, v := cur.First(); k != nil && bytes.Compare(k, max) < 0; k, v = cur.Next() {
			var sess models.WorkSession

			err := json.Unmarshal(v, &sess)
			if err != nil {
				return err
			}

			if !sess.Ended() {
				sessions = append(sessions, sess)
			}
		}

		return nil
	})

	return sessions, err
}

func emailKey(email string) []byte {
	return []byte(strings.ToLower(strings.TrimSpace(email)))
}

func (c *Client) CreateAccount(
	_ context.Context,
	acct models.Account,
	p models.Profile,
) error {
	return c.Update(func(tx *bolt.Tx) error {
		accounts := tx.Bucket([]byte(accountBucket))

		key := emailKey(acct.Email)
		if accounts.Get(key) != nil {
			return ErrEmailExists
		}

		b, err := json.Marshal(acct)
		if err != nil {
			return err
		}

		err = accounts.Put(key, b)
		if err != nil {
			return err
		}

		return putProfile(tx, p)
	})
}

func (c *Client) GetAccountByEmail(
	_ context.Context,
	email string,
) (models.Account, error) {
	var acct models.Account

	err := c.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(accountBucket)).Get(emailKey(email))
		if b == nil {
			return ErrNotFound
		}

		return json.Unmarshal(b, &acct)
	})

	return acct, err
}

func putProfile(tx *bolt.Tx, p models.Profile) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}

	return tx.Bucket([]byte(profileBucket)).Put([]byte(p.ID), b)
}

func getProfile(tx *bolt.Tx, id string) (models.Profile, error) {
	var p models.Profile

	b := tx.Bucket([]byte(profileBucket)).Get([]byte(id))
	if b == nil {
		return p, ErrNotFound
	}

	err := json.Unmarshal(b, &p)

	return p, err
}

func (c *Client) GetProfile(_ context.Context, id string) (models.Profile, error) {
	var p models.Profile

	err := c.View(func(tx *bolt.Tx) error {
		var err error

		p, err = getProfile(tx, id)

		return err
	})

	return p, err
}

func (c *Client) UpdateProfile(
	_ context.Context,
	p models.Profile,
) (models.Profile, error) {
	var updated models.Profile

	err := c.Update(func(tx *bolt.Tx) error {
		existing, err := getProfile(tx, p.ID)
		if err != nil {
			return err
		}

		updated = existing
		updated.FirstName = p.FirstName
		updated.LastName = p.LastName
		updated.ClassSection = p.ClassSection
		updated.WorkDays = p.WorkDays
		updated.DailyWorkMinutes = p.DailyWorkMinutes
		updated.UpdatedAt = c.now()

		return putProfile(tx, updated)
	})

	return updated, err
}

func (c *Client) IncrementProfilePoints(
	_ context.Context,
	userID string,
	delta int,
) (int, error) {
	if delta < 0 {
		return 0, ErrNegativePoints
	}

	var total int

	err := c.Update(func(tx *bolt.Tx) error {
		p, err := getProfile(tx, userID)
		if err != nil {
			return err
		}

		p.TotalPoints += delta
		p.UpdatedAt = c.now()
		total = p.TotalPoints

		return putProfile(tx, p)
	})

	return total, err
}

func (c *Client) ListProfiles(
	_ context.Context,
	filter ProfileFilter,
) ([]models.Profile, error) {
	var profiles []models.Profile

	err := c.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(profileBucket)).ForEach(func(_, v []byte) error {
			var p models.Profile

			err := json.Unmarshal(v, &p)
			if err != nil {
				return err
			}

			if filter.Role != "" && p.Role != filter.Role {
				return nil
			}

			if filter.ClassSection != "" && p.ClassSection != filter.ClassSection {
				return nil
			}

			profiles = append(profiles, p)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sortProfiles(profiles)

	if filter.Limit > 0 && len(profiles) > filter.Limit {
		profiles = profiles[:filter.Limit]
	}

	return profiles, nil
}

// sortProfiles orders profiles by points, highest first, breaking ties by
// name.
func sortProfiles(profiles []models.Profile) {
	slices.SortStableFunc(profiles, func(a, b models.Profile) int {
		if a.TotalPoints != b.TotalPoints {
			return b.TotalPoints - a.TotalPoints
		}

		return strings.Compare(a.DisplayName(), b.DisplayName())
	})
}

func (c *Client) AddMessage(
	_ context.Context,
	m models.Message,
) (models.Message, error) {
	if m.ID == "" {
		m.ID = ksuid.New().String()
	}

	if m.CreatedAt.IsZero() {
		m.CreatedAt = c.now()
	}

	b, err := json.Marshal(m)
	if err != nil {
		return m, err
	}

	err = c.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(messageBucket)).Put(recordKey(m.CreatedAt, m.ID), b)
	})

	return m, err
}

func (c *Client) ListMessages(
	_ context.Context,
	limit int,
) ([]models.Message, error) {
	limit = limitOrDefault(limit)

	var messages []models.Message

	err := c.View(func(tx *bolt.Tx) error {
		cur := tx.Bucket([]byte(messageBucket)).Cursor()

		for k, v := cur.Last(); k != nil && len(messages) < limit; k, v = cur.Prev() {
			var m models.Message

			err := json.Unmarshal(v, &m)
			if err != nil {
				return err
			}

			messages = append(messages, m)
		}

		return nil
	})

	slices.Reverse(messages)

	return messages, err
}

func (c *Client) AddSelection(
	_ context.Context,
	sel models.Selection,
) (models.Selection, error) {
	if sel.ID == "" {
		sel.ID = ksuid.New().String()
	}

	if sel.SelectedAt.IsZero() {
		sel.SelectedAt = c.now()
	}

	b, err := json.Marshal(sel)
	if err != nil {
		return sel, err
	}

	err = c.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(selectionBucket)).Put(recordKey(sel.SelectedAt, sel.ID), b)
	})

	return sel, err
}

func matchSelection(sel *models.Selection, teacherID, classSection string) bool {
	if sel.TeacherID != teacherID {
		return false
	}

	return classSection == "" || sel.ClassSection == classSection
}

func (c *Client) ListSelections(
	_ context.Context,
	teacherID, classSection string,
) ([]models.Selection, error) {
	var selections []models.Selection

	err := c.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(selectionBucket)).ForEach(func(_, v []byte) error {
			var sel models.Selection

			err := json.Unmarshal(v, &sel)
			if err != nil {
				return err
			}

			if matchSelection(&sel, teacherID, classSection) {
				selections = append(selections, sel)
			}

			return nil
		})
	})

	return selections, err
}

func (c *Client) ClearSelections(
	_ context.Context,
	teacherID, classSection string,
) error {
	return c.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(selectionBucket))

		var keys [][]byte

		err := bucket.ForEach(func(k, v []byte) error {
			var sel models.Selection

			err := json.Unmarshal(v, &sel)
			if err != nil {
				return err
			}

			if matchSelection(&sel, teacherID, classSection) {
				keys = append(keys, bytes.Clone(k))
			}

			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range keys {
			err = bucket.Delete(k)
			if err != nil {
				return err
			}
		}

		return nil
	})
}

func (c *Client) Ping(_ context.Context) error {
	if c.DB == nil {
		return berrors.ErrDatabaseNotOpen
	}

	return c.View(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(metaBucket)) == nil {
			return berrors.ErrBucketNotFound
		}

		return nil
	})
}

// openDB creates or opens a database and locks it.
func openDB(pathToDB string) (*bolt.DB, error) {
	var fileMode fs.FileMode = 0o600

	db, err := bolt.Open(
		pathToDB,
		fileMode,
		&bolt.Options{Timeout: 1 * time.Second},
	)
	if err != nil {
		// another process holding the file lock makes Open time out
		if errors.Is(err, berrors.ErrTimeout) {
			return nil, errDBLocked
		}

		return nil, err
	}

	return db, nil
}

// NewClient returns a wrapper to a BoltDB connection.
func NewClient(dbPath string) (*Client, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}

	c := &Client{
		DB:  db,
		now: time.Now,
	}

	err = db.Update(c.migrate)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return c, nil
}
