package db

import (
	"github.com/obsfarm/farmd/common/errors"
)

// Bucket
type Bucket interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Set(key []byte, value []byte) error
	Delete(key []byte) error
}

type BucketID string

//	Bucket ID
const (
	// LedgerAccount maps account records from account identifier.
	LedgerAccount BucketID = "A"

	// LedgerProperty is general key value map for ledger-wide counters.
	LedgerProperty BucketID = "G"

	// TokenBalance maps token balances from account identifier.
	TokenBalance BucketID = "T"
)

// internalKey returns key prefixed with the bucket's id.
func internalKey(id BucketID, key []byte) []byte {
	buf := make([]byte, len(key)+len(id))
	copy(buf, id)
	copy(buf[len(id):], key)
	return buf
}

func DoGet(bk Bucket, key []byte) ([]byte, error) {
	v, err := bk.Get(key)
	if v == nil && err == nil {
		return nil, errors.NotFoundError.New("NotFound")
	}
	return v, err
}
