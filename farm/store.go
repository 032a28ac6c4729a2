package farm

import (
	"math/big"
	"sort"

	"github.com/vmihailenco/msgpack/v4"

	"github.com/obsfarm/farmd/common/db"
	"github.com/obsfarm/farmd/common/errors"
)

var (
	keyTotalClaimed = []byte("total_claimed")
	keyActiveSet    = []byte("active_set")
)

// Store persists ledger records through a db.Database.
type Store struct {
	accounts db.Bucket
	props    db.Bucket
}

func NewStore(dbase db.Database) (*Store, error) {
	accounts, err := dbase.GetBucket(db.LedgerAccount)
	if err != nil {
		return nil, errors.CriticalIOError.Wrap(err, "FailToGetAccountBucket")
	}
	props, err := dbase.GetBucket(db.LedgerProperty)
	if err != nil {
		return nil, errors.CriticalIOError.Wrap(err, "FailToGetPropertyBucket")
	}
	return &Store{accounts: accounts, props: props}, nil
}

// GetAccount returns the stored record or nil if the account is unknown.
func (s *Store) GetAccount(id string) (*Account, error) {
	bs, err := s.accounts.Get([]byte(id))
	if err != nil {
		return nil, errors.CriticalIOError.Wrap(err, "FailToGetAccount")
	}
	if bs == nil {
		return nil, nil
	}
	ac, err := ParseAccount(bs)
	if err != nil {
		return nil, errors.CriticalFormatError.Wrapf(err, "InvalidAccountRecord(id=%s)", id)
	}
	return ac, nil
}

func (s *Store) SetAccount(id string, ac *Account) error {
	bs, err := ac.Bytes()
	if err != nil {
		return errors.CriticalFormatError.Wrap(err, "FailToEncodeAccount")
	}
	if err := s.accounts.Set([]byte(id), bs); err != nil {
		return errors.CriticalIOError.Wrap(err, "FailToSetAccount")
	}
	return nil
}

func (s *Store) GetTotalClaimed() (*big.Int, error) {
	bs, err := s.props.Get(keyTotalClaimed)
	if err != nil {
		return nil, errors.CriticalIOError.Wrap(err, "FailToGetTotalClaimed")
	}
	return new(big.Int).SetBytes(bs), nil
}

func (s *Store) SetTotalClaimed(v *big.Int) error {
	if err := s.props.Set(keyTotalClaimed, v.Bytes()); err != nil {
		return errors.CriticalIOError.Wrap(err, "FailToSetTotalClaimed")
	}
	return nil
}

func (s *Store) GetActiveSet() ([]string, error) {
	bs, err := s.props.Get(keyActiveSet)
	if err != nil {
		return nil, errors.CriticalIOError.Wrap(err, "FailToGetActiveSet")
	}
	if bs == nil {
		return nil, nil
	}
	var ids []string
	if err := msgpack.Unmarshal(bs, &ids); err != nil {
		return nil, errors.CriticalFormatError.Wrap(err, "InvalidActiveSetRecord")
	}
	return ids, nil
}

func (s *Store) SetActiveSet(active map[string]bool) error {
	ids := make([]string, 0, len(active))
	for id := range active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	bs, err := msgpack.Marshal(ids)
	if err != nil {
		return errors.CriticalFormatError.Wrap(err, "FailToEncodeActiveSet")
	}
	if err := s.props.Set(keyActiveSet, bs); err != nil {
		return errors.CriticalIOError.Wrap(err, "FailToSetActiveSet")
	}
	return nil
}
