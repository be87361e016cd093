package queue

import (
	"context"
	"errors"
	"os"

	"github.com/waghmarepb/consolidate/internal/logging"
)

// ErrManagerClosed is returned by Dispatch when the manager's worker has
// been stopped.
var ErrManagerClosed = errors.New("queue: manager closed")

type dispatchTask struct {
	ctx  context.Context
	id   string
	done chan struct{}
}

// Dispatch submits one record to the dispatch worker and waits for its
// upload attempt to finish. Records whose status is not pending are left
// unchanged. The worker processes tasks strictly one at a time, so at most
// one transport call is ever in flight.
func (m *Manager) Dispatch(ctx context.Context, record *UploadRecord) error {
	if record == nil {
		return nil
	}
	task := dispatchTask{ctx: ctx, id: record.ID, done: make(chan struct{})}
	select {
	case m.tasks <- task:
	case <-m.workerCtx.Done():
		return ErrManagerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-task.done:
		return nil
	case <-m.workerCtx.Done():
		select {
		case <-task.done:
			return nil
		default:
		}
		return ErrManagerClosed
	}
}

// DispatchBatch processes the given records strictly one at a time in the
// order supplied, waiting for each upload attempt, success or failure, to
// finish before starting the next. A failed record never aborts the rest of
// the batch.
func (m *Manager) DispatchBatch(ctx context.Context, records []*UploadRecord) error {
	for _, record := range records {
		if err := m.Dispatch(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

// runWorker is the single dispatch worker: a FIFO consumer that serializes
// every upload attempt.
func (m *Manager) runWorker() {
	defer close(m.done)
	for {
		select {
		case task := <-m.tasks:
			m.dispatch(task.ctx, task.id)
			close(task.done)
		case <-m.workerCtx.Done():
			return
		}
	}
}

// dispatch performs one upload attempt for the record with the given ID.
func (m *Manager) dispatch(ctx context.Context, id string) {
	m.mu.Lock()
	record := m.findLocked(id)
	if record == nil || record.Status != StatusPending {
		m.mu.Unlock()
		return
	}
	record.SetUploading()
	fileName := record.FileName
	sourcePath := record.SourcePath
	if err := m.persistLocked(ctx); err != nil {
		// Best-effort: the attempt proceeds on in-memory state.
		m.logger.Warn("persisting uploading transition failed", logging.Error(err))
	}
	m.mu.Unlock()
	m.notifyUpdate()

	m.logger.Info("dispatching upload",
		logging.String("id", id),
		logging.String("file_name", fileName))

	var uploadErr error
	data, readErr := os.ReadFile(sourcePath)
	if readErr != nil {
		// A missing source is reported exactly like a transport failure.
		uploadErr = readErr
	} else {
		uploadErr = m.transport.Upload(ctx, fileName, data)
	}

	m.mu.Lock()
	record = m.findLocked(id)
	if record == nil {
		// Removed while the upload was in flight; do not resurrect it.
		m.mu.Unlock()
		m.logger.Warn("upload finished for removed record", logging.String("id", id))
		return
	}
	if uploadErr != nil {
		record.SetFailed(uploadErr.Error())
	} else {
		record.SetCompleted()
	}
	if err := m.persistLocked(ctx); err != nil {
		m.logger.Warn("persisting upload outcome failed", logging.Error(err))
	}
	status := record.Status
	m.mu.Unlock()
	m.notifyUpdate()

	if uploadErr != nil {
		m.logger.Warn("upload failed",
			logging.String("id", id),
			logging.String("file_name", fileName),
			logging.Error(uploadErr))
	} else {
		m.logger.Info("upload completed",
			logging.String("id", id),
			logging.String("file_name", fileName),
			logging.String("status", string(status)))
	}
}
