package store

import (
	"encoding/binary"
	"encoding/json"

	"go.etcd.io/bbolt"

	"github.com/hyperworkchat/hyperwork/internal/models"
)

// version 3 added the chat group buckets
const schemaVersion = 3

var schemaVersionKey = []byte("schema_version")

// createBuckets creates the buckets for storing data if they do not exist
// already.
func createBuckets(tx *bbolt.Tx) error {
	for _, name := range []string{
		sessionBucket,
		sessionIndexBucket,
		profileBucket,
		accountBucket,
		messageBucket,
		selectionBucket,
		groupBucket,
		groupMemberBucket,
		groupMessageBucket,
		metaBucket,
	} {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return err
		}
	}

	return nil
}

// rebuildSessionIndex regenerates the id to key index from the sessions
// bucket. Version 1 databases had no index.
func rebuildSessionIndex(tx *bbolt.Tx) error {
	index := tx.Bucket([]byte(sessionIndexBucket))

	cur := tx.Bucket([]byte(sessionBucket)).Cursor()

	for k, v := cur.First(); k != nil; k, v = cur.Next() {
		var s models.WorkSession

		err := json.Unmarshal(v, &s)
		if err != nil {
			return err
		}

		err = index.Put([]byte(s.ID), k)
		if err != nil {
			return err
		}
	}

	return nil
}

func readVersion(tx *bbolt.Tx) uint64 {
	v := tx.Bucket([]byte(metaBucket)).Get(schemaVersionKey)
	if len(v) != 8 {
		return 0
	}

	return binary.BigEndian.Uint64(v)
}

func writeVersion(tx *bbolt.Tx, version uint64) error {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, version)

	return tx.Bucket([]byte(metaBucket)).Put(schemaVersionKey, b)
}

func (c *Client) migrate(tx *bbolt.Tx) error {
	err := createBuckets(tx)
	if err != nil {
		return err
	}

	version := readVersion(tx)
	if version >= schemaVersion {
		return nil
	}

	if version < 2 {
		err = rebuildSessionIndex(tx)
		if err != nil {
			return err
		}
	}

	return writeVersion(tx, schemaVersion)
}
