package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"

	"github.com/hxuan190/chain-gateway/internal/domain"
)

const (
	PoolsBucket = "pools"

	DefaultDBPath = "./data/pools.db"
)

type StoredPool struct {
	Address     string  `json:"address"`
	Connector   string  `json:"connector"`
	Chain       string  `json:"chain"`
	Network     string  `json:"network"`
	Type        string  `json:"type"`
	BaseSymbol  string  `json:"baseSymbol"`
	QuoteSymbol string  `json:"quoteSymbol"`
	FeePct      float64 `json:"feePct,omitempty"`
	UpdatedAt   int64   `json:"updatedAt"`
}

// Storage persists the pool registry in a bbolt file, one sonic-encoded
// record per pool key.
type Storage struct {
	db     *bolt.DB
	dbPath string
}

func NewStorage(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database dir: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", dbPath, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(PoolsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("[poolStorage] opened database")

	return &Storage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Storage) SavePool(pool *domain.Pool) error {
	return s.SavePoolBatch([]*domain.Pool{pool})
}

func (s *Storage) SavePoolBatch(pools []*domain.Pool) error {
	if len(pools) == 0 {
		return nil
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(PoolsBucket))
		for _, pool := range pools {
			data, err := sonic.Marshal(poolToStored(pool))
			if err != nil {
				return fmt.Errorf("failed to marshal pool %s: %w", pool.Address, err)
			}
			if err := b.Put([]byte(pool.Key().String()), data); err != nil {
				return fmt.Errorf("failed to put pool %s: %w", pool.Address, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Int("count", len(pools)).Msg("[poolStorage] FAILED to save batch")
		return err
	}

	log.Debug().Int("count", len(pools)).Msg("[poolStorage] saved pool batch")
	return nil
}

func (s *Storage) DeletePool(key domain.PoolKey) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(PoolsBucket)).Delete([]byte(key.String()))
	})
}

func (s *Storage) LoadAllPools() ([]*domain.Pool, error) {
	var (
		pools           []*domain.Pool
		total           int
		unmarshalFailed int
	)

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(PoolsBucket)).ForEach(func(k, v []byte) error {
			total++
			var stored StoredPool
			if err := sonic.Unmarshal(v, &stored); err != nil {
				log.Error().Str("key", string(k)).Err(err).Msg("[poolStorage] failed to unmarshal pool, skipping")
				unmarshalFailed++
				return nil
			}
			pools = append(pools, storedToPool(&stored))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}

	if unmarshalFailed > 0 {
		log.Error().
			Int("total_in_db", total).
			Int("loaded", len(pools)).
			Int("unmarshal_failed", unmarshalFailed).
			Msg("[poolStorage] pool loading completed with errors")
	} else {
		log.Info().
			Int("total_in_db", total).
			Int("loaded", len(pools)).
			Msg("[poolStorage] pool loading completed successfully")
	}

	return pools, nil
}

func (s *Storage) GetPoolCount() (int, error) {
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket([]byte(PoolsBucket)).Stats().KeyN
		return nil
	})
	return count, err
}

func poolToStored(pool *domain.Pool) *StoredPool {
	return &StoredPool{
		Address:     pool.Address,
		Connector:   pool.Connector,
		Chain:       pool.Chain,
		Network:     pool.Network,
		Type:        string(pool.Type),
		BaseSymbol:  pool.BaseSymbol,
		QuoteSymbol: pool.QuoteSymbol,
		FeePct:      pool.FeePct,
		UpdatedAt:   pool.UpdatedAt.UnixMilli(),
	}
}

func storedToPool(stored *StoredPool) *domain.Pool {
	return &domain.Pool{
		Address:     stored.Address,
		Connector:   stored.Connector,
		Chain:       stored.Chain,
		Network:     stored.Network,
		Type:        domain.PoolType(stored.Type),
		BaseSymbol:  stored.BaseSymbol,
		QuoteSymbol: stored.QuoteSymbol,
		FeePct:      stored.FeePct,
		UpdatedAt:   time.UnixMilli(stored.UpdatedAt).UTC(),
	}
}
