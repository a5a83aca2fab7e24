package migrate

import (
	"encoding/binary"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/blake2b"

	"github.com/loamdb/loam/pkg/db"
)

func newDigest(enabled bool) hash.Hash {
	if !enabled {
		return nil
	}
	digest, err := blake2b.New256(nil)
	if err != nil {
		// blake2b only fails on a bad key; we pass none
		panic(err)
	}
	return digest
}

// hashRecord feeds one record into the stream digest. Key and value are
// length-prefixed so record boundaries stay unambiguous.
func hashRecord(digest hash.Hash, rec db.Record) {
	var buf [binary.MaxVarintLen64]byte

	n := binary.PutUvarint(buf[:], uint64(len(rec.Key)))
	digest.Write(buf[:n])
	digest.Write(rec.Key)

	n = binary.PutUvarint(buf[:], uint64(len(rec.Value)))
	digest.Write(buf[:n])
	digest.Write(rec.Value)
}

// Verify recomputes the stream fingerprint by re-reading every source key
// from the destination, honoring the same record limit as the run. A digest
// equal to the run's Stats.Fingerprint means the destination faithfully
// contains the migrated records.
func Verify(dst db.Store, src Source, limit int64) ([]byte, error) {
	digest := newDigest(true)

	var count uint64
	for {
		if limit >= 0 && count >= uint64(limit) {
			break
		}

		rec, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("migrate: verify: read record %d: %w", count+1, err)
		}

		value, err := dst.Get(rec.Key)
		if err != nil {
			return nil, fmt.Errorf("migrate: verify: read back key %q: %w", rec.Key, err)
		}
		hashRecord(digest, db.Record{Key: rec.Key, Value: value})
		count++
	}

	return digest.Sum(nil), nil
}
