package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/san-kum/ctrlsim/internal/config"
	"github.com/san-kum/ctrlsim/internal/dynamo"
	"github.com/san-kum/ctrlsim/internal/experiment"
	bolt "go.etcd.io/bbolt"
)

const (
	BucketRuns    = "runs"
	BucketSamples = "samples"

	DBFile = "runs.db"
)

// ErrNotFound is returned when a run id is not in the store.
var ErrNotFound = errors.New("storage: run not found")

type RunMetadata struct {
	ID        string             `json:"id"`
	Plant     string             `json:"plant"`
	Preset    string             `json:"preset,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      int64              `json:"seed"`
	Dt        float64            `json:"dt"`
	Duration  float64            `json:"duration"`
	SimTime   float64            `json:"sim_time"`
	Steps     int                `json:"steps"`
	Samples   int                `json:"samples"`
	Status    string             `json:"status"`
	Reason    string             `json:"reason,omitempty"`
	Gains     dynamo.Gains       `json:"gains"`
	Metrics   map[string]float64 `json:"metrics"`
	Config    *config.Config     `json:"config,omitempty"`
}

// Store keeps run metadata and sampled snapshots in a bbolt file. The
// database is opened per operation so several CLI invocations can share it.
type Store struct {
	dbPath string
	now    func() time.Time
}

func New(dataDir string) *Store {
	return &Store{dbPath: filepath.Join(dataDir, DBFile), now: time.Now}
}

func (s *Store) Path() string { return s.dbPath }

func (s *Store) Init() error {
	if err := os.MkdirAll(filepath.Dir(s.dbPath), 0755); err != nil {
		return err
	}
	db, err := s.open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{BucketRuns, BucketSamples} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

func (s *Store) open() (*bolt.DB, error) {
	return bolt.Open(s.dbPath, 0600, &bolt.Options{Timeout: 5 * time.Second})
}

// Save records a finished experiment and returns its run id.
func (s *Store) Save(cfg *config.Config, preset string, res *experiment.Result) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}

	ts := s.now().UTC()
	meta := RunMetadata{
		Plant:     res.Plant,
		Preset:    preset,
		Timestamp: ts,
		Seed:      res.Seed,
		Dt:        cfg.Dt,
		Duration:  cfg.Duration,
		SimTime:   res.SimTime,
		Steps:     res.Steps,
		Samples:   len(res.Samples),
		Status:    res.Status,
		Reason:    res.Reason,
		Gains:     cfg.Controller.Gains(),
		Metrics:   res.Metrics,
		Config:    cfg,
	}

	samples, err := json.Marshal(res.Samples)
	if err != nil {
		return "", err
	}

	db, err := s.open()
	if err != nil {
		return "", err
	}
	defer func() { _ = db.Close() }()

	err = db.Update(func(tx *bolt.Tx) error {
		runs := tx.Bucket([]byte(BucketRuns))
		base := fmt.Sprintf("%s_%s", meta.Plant, ts.Format("20060102-150405"))
		meta.ID = base
		for n := 2; runs.Get([]byte(meta.ID)) != nil; n++ {
			meta.ID = fmt.Sprintf("%s-%d", base, n)
		}

		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		if err := runs.Put([]byte(meta.ID), data); err != nil {
			return err
		}
		return tx.Bucket([]byte(BucketSamples)).Put([]byte(meta.ID), samples)
	})
	if err != nil {
		return "", err
	}
	return meta.ID, nil
}

// List returns every stored run, newest first. Unreadable entries are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	if _, err := os.Stat(s.dbPath); errors.Is(err, os.ErrNotExist) {
		return []RunMetadata{}, nil
	}
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	runs := make([]RunMetadata, 0)
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketRuns))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var meta RunMetadata
			if err := json.Unmarshal(v, &meta); err != nil {
				return nil
			}
			runs = append(runs, meta)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(id string) (*RunMetadata, error) {
	var meta RunMetadata
	err := s.view(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(BucketRuns)).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(v, &meta)
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadSamples(id string) ([]dynamo.Snapshot, error) {
	var samples []dynamo.Snapshot
	err := s.view(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(BucketSamples)).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(v, &samples)
	})
	return samples, err
}

func (s *Store) Delete(id string) error {
	if err := s.Init(); err != nil {
		return err
	}
	db, err := s.open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return db.Update(func(tx *bolt.Tx) error {
		runs := tx.Bucket([]byte(BucketRuns))
		if runs.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err := runs.Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket([]byte(BucketSamples)).Delete([]byte(id))
	})
}

func (s *Store) view(fn func(tx *bolt.Tx) error) error {
	if _, err := os.Stat(s.dbPath); errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	db, err := s.open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return db.View(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(BucketRuns)) == nil || tx.Bucket([]byte(BucketSamples)) == nil {
			return ErrNotFound
		}
		return fn(tx)
	})
}
