package db

import (
	"github.com/obsfarm/farmd/common/errors"
)

const MapDBBackend BackendType = "mapdb"

func init() {
	dbCreator := func(name string, dir string) (Database, error) {
		return NewMapDB(), nil
	}
	registerDBCreator(MapDBBackend, dbCreator, false)
}

func NewMapDB() Database {
	return make(mapDatabase)
}

//----------------------------------------
// Database

var _ Database = (mapDatabase)(nil)

type mapDatabase map[BucketID]*mapBucket

func (t mapDatabase) GetBucket(id BucketID) (Bucket, error) {
	if bk, ok := t[id]; ok {
		return bk, nil
	}
	bk := &mapBucket{
		real: make(map[string]string),
	}
	t[id] = bk
	return bk, nil
}

func (t mapDatabase) Close() error {
	return nil
}

//----------------------------------------
// Bucket

var _ Bucket = (*mapBucket)(nil)

type mapBucket struct {
	real map[string]string
}

func (t *mapBucket) Get(k []byte) ([]byte, error) {
	v, ok := t.real[string(k)]
	if ok {
		return []byte(v), nil
	}
	return nil, nil
}

func (t *mapBucket) Has(k []byte) (bool, error) {
	_, ok := t.real[string(k)]
	return ok, nil
}

func (t *mapBucket) Set(k, v []byte) error {
	if len(k) == 0 {
		return errors.IllegalArgumentError.Errorf("IllegalKey(key=%x)", k)
	}
	t.real[string(k)] = string(v)
	return nil
}

func (t *mapBucket) Delete(k []byte) error {
	delete(t.real, string(k))
	return nil
}
