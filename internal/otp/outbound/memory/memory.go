// Package memory provides process-local implementations of the OTP record
// store and account registry. Records for one destination are serialized by
// a per-destination lock, so requests for different destinations never wait
// on each other.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type slot struct {
	mu sync.Mutex
	// records are ordered oldest first.
	records []*entity.Record
	// dead is set once the slot has been unlinked from the store.
	dead bool
}

type Store struct {
	mu    sync.Mutex
	slots map[string]*slot
	index map[int64]string
}

func NewStore() *Store {
	return &Store{
		slots: map[string]*slot{},
		index: map[int64]string{},
	}
}

// lock returns the locked slot for key. Without create, a destination that
// has no slot yields nil, so lookups never allocate.
func (s *Store) lock(key string, create bool) *slot {
	for {
		s.mu.Lock()
		sl, ok := s.slots[key]
		if !ok {
			if !create {
				s.mu.Unlock()
				return nil
			}
			sl = &slot{}
			s.slots[key] = sl
		}
		s.mu.Unlock()

		sl.mu.Lock()
		if !sl.dead {
			return sl
		}
		sl.mu.Unlock()
	}
}

// lockID returns the locked slot holding record id, or nil.
func (s *Store) lockID(id int64) *slot {
	s.mu.Lock()
	key, ok := s.index[id]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return s.lock(key, false)
}

func (s *Store) forget(ids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.index, id)
	}
}

func clone(r *entity.Record) *entity.Record {
	c := *r
	return &c
}

// newest returns the most recent record matching keep, or nil.
func (sl *slot) newest(keep func(r *entity.Record) bool) *entity.Record {
	for i := len(sl.records) - 1; i >= 0; i-- {
		if keep(sl.records[i]) {
			return sl.records[i]
		}
	}
	return nil
}

func (sl *slot) byID(id int64) (int, *entity.Record) {
	for i, r := range sl.records {
		if r.ID == id {
			return i, r
		}
	}
	return -1, nil
}

func (s *Store) FindLive(ctx context.Context, dest entity.Destination, now time.Time) (*entity.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sl := s.lock(dest.Key(), false)
	if sl == nil {
		return nil, goerror.ErrNotFound
	}
	defer sl.mu.Unlock()

	rec := sl.newest(func(r *entity.Record) bool { return r.IsLive(now) })
	if rec == nil {
		return nil, goerror.ErrNotFound
	}
	return clone(rec), nil
}

// Create stores rec unless a live record already exists for its destination,
// in which case it returns goerror.ErrConflict. Expired unconsumed records
// for the destination are discarded first.
func (s *Store) Create(ctx context.Context, rec entity.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := rec.Destination.Key()
	sl := s.lock(key, true)
	defer sl.mu.Unlock()

	var dropped []int64
	sl.records = slices.DeleteFunc(sl.records, func(r *entity.Record) bool {
		if !r.Consumed && r.IsExpired(rec.CreatedAt) {
			dropped = append(dropped, r.ID)
			return true
		}
		return false
	})
	s.forget(dropped...)

	if sl.newest(func(r *entity.Record) bool { return !r.Consumed }) != nil {
		return goerror.ErrConflict
	}

	s.mu.Lock()
	if _, exists := s.index[rec.ID]; exists {
		s.mu.Unlock()
		return goerror.ErrConflict
	}
	s.index[rec.ID] = key
	s.mu.Unlock()

	sl.records = append(sl.records, clone(&rec))
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sl := s.lockID(id)
	if sl == nil {
		s.forget(id)
		return nil
	}
	defer sl.mu.Unlock()

	if i, _ := sl.byID(id); i >= 0 {
		sl.records = slices.Delete(sl.records, i, i+1)
	}
	s.forget(id)
	return nil
}

// LoadForVerification returns the record for dest whose code digest matches
// and that is unexpired, unconsumed and not exhausted.
func (s *Store) LoadForVerification(ctx context.Context, dest entity.Destination, codeHash string, now time.Time) (*entity.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sl := s.lock(dest.Key(), false)
	if sl == nil {
		return nil, goerror.ErrNotFound
	}
	defer sl.mu.Unlock()

	rec := sl.verifiable(codeHash, now)
	if rec == nil {
		return nil, goerror.ErrNotFound
	}
	return clone(rec), nil
}

func (sl *slot) verifiable(codeHash string, now time.Time) *entity.Record {
	return sl.newest(func(r *entity.Record) bool {
		return r.CodeHash == codeHash && !r.Consumed && !r.IsExpired(now) && !r.IsExhausted()
	})
}

func (s *Store) MarkConsumed(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sl := s.lockID(id)
	if sl == nil {
		return goerror.ErrNotFound
	}
	defer sl.mu.Unlock()

	_, rec := sl.byID(id)
	if rec == nil {
		return goerror.ErrNotFound
	}
	return consume(rec)
}

func consume(rec *entity.Record) error {
	if rec.Consumed {
		return entity.ErrAlreadyConsumed
	}
	rec.Consumed = true
	return nil
}

func (s *Store) IncrementAttempts(ctx context.Context, id int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	sl := s.lockID(id)
	if sl == nil {
		return 0, goerror.ErrNotFound
	}
	defer sl.mu.Unlock()

	_, rec := sl.byID(id)
	if rec == nil {
		return 0, goerror.ErrNotFound
	}
	rec.Attempts++
	return rec.Attempts, nil
}

// Verify runs one verification attempt for dest under the destination lock.
func (s *Store) Verify(ctx context.Context, dest entity.Destination, codeHash string, now time.Time) (*entity.VerifyResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sl := s.lock(dest.Key(), false)
	if sl == nil {
		status, _ := entity.Classify(nil, now)
		return &entity.VerifyResult{Status: status}, nil
	}
	defer sl.mu.Unlock()

	if rec := sl.verifiable(codeHash, now); rec != nil {
		if err := consume(rec); err != nil {
			return nil, err
		}
		return &entity.VerifyResult{Status: entity.VerifyStatusVerified, Record: clone(rec)}, nil
	}

	latest := sl.newest(func(*entity.Record) bool { return true })
	status, count := entity.Classify(latest, now)
	if count {
		latest.Attempts++
		status = entity.AfterIncrement(latest.Attempts, latest.MaxAttempts)
	}

	res := &entity.VerifyResult{Status: status}
	if latest != nil {
		res.Record = clone(latest)
	}
	return res, nil
}

// Redeem removes the consumed record id for dest and returns it.
func (s *Store) Redeem(ctx context.Context, id int64, dest entity.Destination) (*entity.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sl := s.lock(dest.Key(), false)
	if sl == nil {
		return nil, goerror.ErrNotFound
	}
	defer sl.mu.Unlock()

	i, rec := sl.byID(id)
	if rec == nil || !rec.Consumed {
		return nil, goerror.ErrNotFound
	}

	sl.records = slices.Delete(sl.records, i, i+1)
	s.forget(id)
	return clone(rec), nil
}

// PruneExpired deletes every record that expired before the given instant.
func (s *Store) PruneExpired(ctx context.Context, before time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	slots := make(map[string]*slot, len(s.slots))
	for key, sl := range s.slots {
		slots[key] = sl
	}
	s.mu.Unlock()

	var pruned int64
	for key, sl := range slots {
		var dropped []int64
		sl.mu.Lock()
		sl.records = slices.DeleteFunc(sl.records, func(r *entity.Record) bool {
			if r.ExpiresAt.Before(before) {
				dropped = append(dropped, r.ID)
				return true
			}
			return false
		})
		sl.mu.Unlock()

		s.forget(dropped...)
		pruned += int64(len(dropped))
		s.unlinkIfEmpty(key, sl)
	}

	return pruned, nil
}

// unlinkIfEmpty drops an empty slot from the store. A slot that is busy is
// left for the next pass.
func (s *Store) unlinkIfEmpty(key string, sl *slot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slots[key] != sl || !sl.mu.TryLock() {
		return
	}
	defer sl.mu.Unlock()

	if len(sl.records) == 0 {
		sl.dead = true
		delete(s.slots, key)
	}
}

// size reports how many destinations currently hold a slot.
func (s *Store) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}
