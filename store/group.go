package store

import (
	"bytes"
	"context"
	"encoding/json"
	"slices"

	"github.com/segmentio/ksuid"
	bolt "go.etcd.io/bbolt"

	"github.com/hyperworkchat/hyperwork/internal/models"
)

const (
	groupBucket        = "groups"
	groupMemberBucket  = "group_members"
	groupMessageBucket = "group_messages"
)

// groupPrefix is the key prefix shared by the members and messages of a
// group.
func groupPrefix(groupID string) []byte {
	return append([]byte(groupID), '/')
}

func getGroup(tx *bolt.Tx, id string) (models.Group, error) {
	var g models.Group

	b := tx.Bucket([]byte(groupBucket)).Get([]byte(id))
	if b == nil {
		return g, ErrNotFound
	}

	err := json.Unmarshal(b, &g)

	return g, err
}

func putGroupMember(tx *bolt.Tx, m models.GroupMember) error {
	bucket := tx.Bucket([]byte(groupMemberBucket))

	key := append(groupPrefix(m.GroupID), m.UserID...)
	if bucket.Get(key) != nil {
		return nil
	}

	b, err := json.Marshal(m)
	if err != nil {
		return err
	}

	return bucket.Put(key, b)
}

func (c *Client) CreateGroup(
	_ context.Context,
	g models.Group,
	memberIDs []string,
) (models.Group, error) {
	if g.ID == "" {
		g.ID = ksuid.New().String()
	}

	if g.CreatedAt.IsZero() {
		g.CreatedAt = c.now()
	}

	b, err := json.Marshal(g)
	if err != nil {
		return g, err
	}

	err = c.Update(func(tx *bolt.Tx) error {
		err := tx.Bucket([]byte(groupBucket)).Put([]byte(g.ID), b)
		if err != nil {
			return err
		}

		for _, id := range memberIDs {
			err = putGroupMember(tx, models.GroupMember{
				GroupID:  g.ID,
				UserID:   id,
				JoinedAt: g.CreatedAt,
			})
			if err != nil {
				return err
			}
		}

		return nil
	})

	return g, err
}

func (c *Client) GetGroup(_ context.Context, id string) (models.Group, error) {
	var g models.Group

	err := c.View(func(tx *bolt.Tx) error {
		var err error

		g, err = getGroup(tx, id)

		return err
	})

	return g, err
}

func (c *Client) ListGroups(
	_ context.Context,
	classSection string,
) ([]models.Group, error) {
	var groups []models.Group

	err := c.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(groupBucket)).ForEach(func(_, v []byte) error {
			var g models.Group

			err := json.Unmarshal(v, &g)
			if err != nil {
				return err
			}

			if classSection == "" || g.ClassSection == classSection {
				groups = append(groups, g)
			}

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(groups, func(a, b models.Group) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return groups, nil
}

func (c *Client) AddGroupMember(
	_ context.Context,
	groupID, userID string,
) error {
	return c.Update(func(tx *bolt.Tx) error {
		if _, err := getGroup(tx, groupID); err != nil {
			return err
		}

		return putGroupMember(tx, models.GroupMember{
			GroupID:  groupID,
			UserID:   userID,
			JoinedAt: c.now(),
		})
	})
}

func (c *Client) ListGroupMembers(
	_ context.Context,
	groupID string,
) ([]models.GroupMember, error) {
	var members []models.GroupMember

	prefix := groupPrefix(groupID)

	err := c.View(func(tx *bolt.Tx) error {
		cur := tx.Bucket([]byte(groupMemberBucket)).Cursor()

		for k, v := cur.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cur.Next() {
			var m models.GroupMember

			err := json.Unmarshal(v, &m)
			if err != nil {
				return err
			}

			members = append(members, m)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(members, func(a, b models.GroupMember) int {
		return a.JoinedAt.Compare(b.JoinedAt)
	})

	return members, nil
}

func (c *Client) IsGroupMember(
	_ context.Context,
	groupID, userID string,
) (bool, error) {
	var found bool

	key := append(groupPrefix(groupID), userID...)

	err := c.View(func(tx *bolt.Tx) error {
		found = tx.Bucket([]byte(groupMemberBucket)).Get(key) != nil
		return nil
	})

	return found, err
}

func (c *Client) AddGroupMessage(
	_ context.Context,
	m models.Message,
) (models.Message, error) {
	if m.GroupID == "" {
		return m, ErrNoGroup
	}

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

	key := append(groupPrefix(m.GroupID), recordKey(m.CreatedAt, m.ID)...)

	err = c.Update(func(tx *bolt.Tx) error {
		if _, err := getGroup(tx, m.GroupID); err != nil {
			return err
		}

		return tx.Bucket([]byte(groupMessageBucket)).Put(key, b)
	})

	return m, err
}

func (c *Client) ListGroupMessages(
	_ context.Context,
	groupID string,
	limit int,
) ([]models.Message, error) {
	limit = limitOrDefault(limit)

	var messages []models.Message

	prefix := groupPrefix(groupID)

	err := c.View(func(tx *bolt.Tx) error {
		cur := tx.Bucket([]byte(groupMessageBucket)).Cursor()

		// walk the group's keys backwards from the first key past its prefix
		k, v := cur.Seek(append(groupPrefix(groupID), 0xff))
		if k == nil {
			k, v = cur.Last()
		} else {
			k, v = cur.Prev()
		}

		for ; k != nil && bytes.HasPrefix(k, prefix) && len(messages) < limit; k, v = cur.Prev() {
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
