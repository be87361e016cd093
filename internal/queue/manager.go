package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/waghmarepb/consolidate/internal/logging"
)

// SlotName is the persistence slot holding the encoded upload queue.
const SlotName = "upload_queue"

// Store persists the whole encoded queue as an ordered list of strings.
type Store interface {
	Read(ctx context.Context) ([]string, error)
	Write(ctx context.Context, values []string) error
}

// Transport performs one full upload of a file's bytes to the ingestion
// service. The returned error's text becomes the record's failure message.
type Transport interface {
	Upload(ctx context.Context, fileName string, data []byte) error
}

// Manager owns the ordered in-memory upload queue, mirroring it to the Store
// on every mutation and driving records through the Transport one at a time.
type Manager struct {
	store     Store
	transport Transport
	logger    *slog.Logger

	mu      sync.Mutex
	records []*UploadRecord

	tasks     chan dispatchTask
	workerCtx context.Context
	stop      context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	updates chan struct{}
}

// NewManager constructs a Manager and starts its dispatch worker. Call Close
// to stop the worker.
func NewManager(store Store, transport Transport, logger *slog.Logger) *Manager {
	workerCtx, stop := context.WithCancel(context.Background())
	m := &Manager{
		store:     store,
		transport: transport,
		logger:    logging.WithComponent(logger, "queue"),
		tasks:     make(chan dispatchTask, 64),
		workerCtx: workerCtx,
		stop:      stop,
		done:      make(chan struct{}),
		updates:   make(chan struct{}, 1),
	}
	go m.runWorker()
	return m
}

// Close stops the dispatch worker. Tasks already queued are abandoned; their
// Dispatch callers return ErrManagerClosed.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.stop()
		<-m.done
	})
}

// Updates returns a coalesced notification channel that receives a value
// after every queue mutation. Collaborators re-read Records on receipt.
func (m *Manager) Updates() <-chan struct{} {
	return m.updates
}

// Load reads the persisted slot and installs the queue sorted by AddedAt
// descending. Entries that cannot be decoded as records are skipped with a
// log line rather than failing the whole load. Call once at startup.
func (m *Manager) Load(ctx context.Context) error {
	encoded, err := m.store.Read(ctx)
	if err != nil {
		return fmt.Errorf("load queue: %w", err)
	}

	records := make([]*UploadRecord, 0, len(encoded))
	for i, text := range encoded {
		record := Decode(text)
		if IsSentinel(record) {
			m.logger.Warn("skipping undecodable queue entry",
				logging.Int("index", i),
				logging.String("reason", record.ErrorMessage))
			continue
		}
		records = append(records, record)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].AddedAt.After(records[j].AddedAt)
	})

	m.mu.Lock()
	m.records = records
	m.mu.Unlock()
	m.notifyUpdate()

	m.logger.Debug("queue loaded",
		logging.Int("records", len(records)),
		logging.Int("skipped", len(encoded)-len(records)))
	return nil
}

// Enqueue creates pending records for the selections, inserts them at the
// head of the queue as one contiguous block in the given order, persists,
// and returns the new records. Persistence failure is reported but leaves
// the in-memory queue intact for the session.
func (m *Manager) Enqueue(ctx context.Context, selections []Selection) ([]*UploadRecord, error) {
	if len(selections) == 0 {
		return nil, nil
	}

	addedAt := time.Now().UTC()
	batch := make([]*UploadRecord, 0, len(selections))
	for _, sel := range selections {
		batch = append(batch, NewRecord(sel, addedAt))
	}

	m.mu.Lock()
	m.records = append(append([]*UploadRecord{}, batch...), m.records...)
	err := m.persistLocked(ctx)
	m.mu.Unlock()
	m.notifyUpdate()

	for _, record := range batch {
		m.logger.Info("record enqueued",
			logging.String("id", record.ID),
			logging.String("file_name", record.FileName),
			logging.Int64("size_bytes", record.FileSizeBytes))
	}
	return batch, err
}

// Remove deletes a record by ID unconditionally and persists. It does not
// cancel an in-flight dispatch for that record; such a dispatch completes
// as a no-op. The first return value reports whether the record was present.
func (m *Manager) Remove(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	removed := false
	kept := m.records[:0]
	for _, record := range m.records {
		if record.ID == id {
			removed = true
			continue
		}
		kept = append(kept, record)
	}
	m.records = kept
	var err error
	if removed {
		err = m.persistLocked(ctx)
	}
	m.mu.Unlock()

	if removed {
		m.notifyUpdate()
		m.logger.Info("record removed", logging.String("id", id))
	}
	return removed, err
}

// Reset returns a failed record to pending so it can be dispatched again and
// persists. Records in any other state are left untouched.
func (m *Manager) Reset(ctx context.Context, id string) error {
	m.mu.Lock()
	record := m.findLocked(id)
	if record == nil || record.Status != StatusFailed {
		m.mu.Unlock()
		return nil
	}
	record.SetPending()
	err := m.persistLocked(ctx)
	m.mu.Unlock()
	m.notifyUpdate()

	m.logger.Info("record reset", logging.String("id", id))
	return err
}

// Records returns a snapshot of the queue in head-to-tail order.
func (m *Manager) Records() []*UploadRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*UploadRecord, 0, len(m.records))
	for _, record := range m.records {
		out = append(out, record.Clone())
	}
	return out
}

// Find returns a snapshot of one record by ID, or nil.
func (m *Manager) Find(id string) *UploadRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if record := m.findLocked(id); record != nil {
		return record.Clone()
	}
	return nil
}

// Len returns the number of records in the queue.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *Manager) findLocked(id string) *UploadRecord {
	for _, record := range m.records {
		if record.ID == id {
			return record
		}
	}
	return nil
}

// persistLocked overwrites the slot with the full encoded queue. Callers
// hold m.mu. The write is best-effort: on failure the in-memory queue stays
// authoritative for the session.
func (m *Manager) persistLocked(ctx context.Context) error {
	encoded := make([]string, 0, len(m.records))
	for _, record := range m.records {
		text, err := Encode(record)
		if err != nil {
			return fmt.Errorf("persist queue: %w", err)
		}
		encoded = append(encoded, text)
	}
	if err := m.store.Write(ctx, encoded); err != nil {
		m.logger.Error("persist queue failed", logging.Error(err))
		return fmt.Errorf("persist queue: %w", err)
	}
	return nil
}

func (m *Manager) notifyUpdate() {
	select {
	case m.updates <- struct{}{}:
	default:
	}
}
