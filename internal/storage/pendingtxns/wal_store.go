// Package pendingtxns journals submitted transactions until they are confirmed or fail.
package pendingtxns

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"github.com/vadiminshakov/madao/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultDir    = "./wal/pending"
	segmentLimit  = 1000
	maxSegments   = 100
	keyPrefix     = "pending_txn_"
	statusPending = "pending"
	statusCleared = "cleared"
)

type record struct {
	Status string            `json:"status"`
	Txn    domain.PendingTxn `json:"txn"`
	Time   time.Time         `json:"time"`
}

// WALStore pending-transaction tracker persisted in a WAL.
// Reopening the store restores transactions that were never cleared.
type WALStore struct {
	wal     *gowal.Wal
	mu      sync.RWMutex
	pending []domain.PendingTxn
	l       *zap.Logger
}

// NewWALStore opens the journal under dir and replays it.
func NewWALStore(l *zap.Logger, dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "pending_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init pending txn WAL")
	}

	s := &WALStore{wal: wal, l: l}
	for msg := range wal.Iterator() {
		if !strings.HasPrefix(msg.Key, keyPrefix) {
			continue
		}
		var rec record
		if err := json.Unmarshal(msg.Value, &rec); err != nil {
			l.Error("failed to unmarshal pending txn", zap.Error(err), zap.String("key", msg.Key))
			continue
		}
		s.apply(rec)
	}

	if len(s.pending) > 0 {
		l.Info("restored pending transactions", zap.Int("count", len(s.pending)))
	}
	return s, nil
}

// Add registers txn as pending.
func (s *WALStore) Add(txn domain.PendingTxn) error {
	if txn.TxnHash == "" {
		return errors.New("pending txn hash is required")
	}
	return s.persist(record{Status: statusPending, Txn: txn, Time: time.Now().UTC()})
}

// Clear removes the transaction with hash from the pending set.
func (s *WALStore) Clear(hash string) error {
	if hash == "" {
		return errors.New("pending txn hash is required")
	}
	return s.persist(record{Status: statusCleared, Txn: domain.PendingTxn{TxnHash: hash}, Time: time.Now().UTC()})
}

// Pending returns the pending transactions in submission order.
func (s *WALStore) Pending() []domain.PendingTxn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.pending)
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wal.Close()
}

func (s *WALStore) persist(rec record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshal pending txn")
	}
	key := fmt.Sprintf("%s%s", keyPrefix, rec.Txn.TxnHash)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(nextIndex, key, payload); err != nil {
		return errors.Wrap(err, "write pending txn")
	}
	s.apply(rec)
	return nil
}

// apply must be called with mu held or before the store is shared.
func (s *WALStore) apply(rec record) {
	s.pending = slices.DeleteFunc(s.pending, func(p domain.PendingTxn) bool {
		return p.TxnHash == rec.Txn.TxnHash
	})
	if rec.Status == statusPending {
		s.pending = append(s.pending, rec.Txn)
	}
}
