package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/and161185/timetill/internal/errs"
	"github.com/and161185/timetill/internal/model"
)

// BlobStore keeps managed-site bundles, whose file contents can exceed what
// the document file should carry. All methods accept a context because the
// substrate may block on I/O.
type BlobStore interface {
	// ListSites returns all stored sites ordered by id.
	ListSites(ctx context.Context) ([]model.ManagedSite, error)
	// GetSite returns one site by id.
	GetSite(ctx context.Context, id int64) (*model.ManagedSite, error)
	// PutSite stores the site and returns the stored record.
	PutSite(ctx context.Context, site *model.ManagedSite) (*model.ManagedSite, error)
	// DeleteSite removes the site; deleting an absent id is a no-op.
	DeleteSite(ctx context.Context, id int64) error
	// Wipe removes every stored site (clear-all-data).
	Wipe(ctx context.Context) error
	// Close releases the underlying database.
	Close() error
}

var sitesBucket = []byte("sites")

type boltBlobStore struct {
	db *bolt.DB
}

// OpenBlobStore opens the bbolt database at path. If the database cannot be
// opened the returned store is degraded: listing yields an empty sequence
// and mutations fail with ErrPersistence — blob features become unavailable
// instead of taking the app down.
func OpenBlobStore(path string, log *zap.Logger) BlobStore {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		log.Warn("blob store unavailable", zap.String("path", path), zap.Error(err))
		return degradedBlobStore{}
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sitesBucket)
		return err
	})
	if err != nil {
		log.Warn("blob store unavailable", zap.String("path", path), zap.Error(err))
		db.Close()
		return degradedBlobStore{}
	}
	return &boltBlobStore{db: db}
}

func (s *boltBlobStore) ListSites(ctx context.Context) ([]model.ManagedSite, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sites := []model.ManagedSite{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(sitesBucket).ForEach(func(_, v []byte) error {
			var site model.ManagedSite
			if err := json.Unmarshal(v, &site); err != nil {
				return err
			}
			sites = append(sites, site)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list sites: %v", errs.ErrPersistence, err)
	}
	return sites, nil
}

func (s *boltBlobStore) GetSite(ctx context.Context, id int64) (*model.ManagedSite, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var site *model.ManagedSite
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(sitesBucket).Get(itob(id))
		if v == nil {
			return errs.ErrNotFound
		}
		site = &model.ManagedSite{}
		return json.Unmarshal(v, site)
	})
	if err != nil {
		if err == errs.ErrNotFound {
			return nil, fmt.Errorf("%w: site %d", errs.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get site: %v", errs.ErrPersistence, err)
	}
	return site, nil
}

func (s *boltBlobStore) PutSite(ctx context.Context, site *model.ManagedSite) (*model.ManagedSite, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := json.Marshal(site)
	if err != nil {
		return nil, fmt.Errorf("%w: encode site: %v", errs.ErrPersistence, err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sitesBucket).Put(itob(site.ID), b)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: put site: %v", errs.ErrPersistence, err)
	}
	return site, nil
}

func (s *boltBlobStore) DeleteSite(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sitesBucket).Delete(itob(id))
	})
	if err != nil {
		return fmt.Errorf("%w: delete site: %v", errs.ErrPersistence, err)
	}
	return nil
}

func (s *boltBlobStore) Wipe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(sitesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(sitesBucket)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: wipe sites: %v", errs.ErrPersistence, err)
	}
	return nil
}

func (s *boltBlobStore) Close() error { return s.db.Close() }

// itob produces big-endian keys so bucket iteration stays id-ordered.
func itob(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

// degradedBlobStore stands in when the database failed to open.
type degradedBlobStore struct{}

func (degradedBlobStore) ListSites(context.Context) ([]model.ManagedSite, error) {
	return []model.ManagedSite{}, nil
}

func (degradedBlobStore) GetSite(context.Context, int64) (*model.ManagedSite, error) {
	return nil, fmt.Errorf("%w: blob store unavailable", errs.ErrPersistence)
}

func (degradedBlobStore) PutSite(context.Context, *model.ManagedSite) (*model.ManagedSite, error) {
	return nil, fmt.Errorf("%w: blob store unavailable", errs.ErrPersistence)
}

func (degradedBlobStore) DeleteSite(context.Context, int64) error {
	return fmt.Errorf("%w: blob store unavailable", errs.ErrPersistence)
}

func (degradedBlobStore) Wipe(context.Context) error { return nil }

func (degradedBlobStore) Close() error { return nil }
