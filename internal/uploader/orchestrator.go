// Package uploader drives the folder-creation-then-upload sequence against
// the remote store and generates remote object names.
package uploader

import (
	"bytes"
	"context"
	"errors"

	"invoicedrop/internal/batch"
	"invoicedrop/internal/quota"
	"invoicedrop/internal/storage"
	"invoicedrop/pkg/faults"
	"invoicedrop/pkg/logger"
)

// Task is one media item bound for the remote store. Size and extension are
// validated by the caller before the task reaches Upload; the orchestrator
// assumes those preconditions hold.
type Task struct {
	BatchID   string
	Category  quota.Category
	Staged    *StagedFile
	Extension string
}

// Result describes a completed upload.
type Result struct {
	FilePath string
	Size     int64
	Category quota.Category
	NewCount uint
}

type Orchestrator struct {
	store       storage.RemoteStore
	tracker     *quota.Tracker
	log         *logger.Logger
	baseFolder  string
	probeWrites bool
}

func NewOrchestrator(store storage.RemoteStore, tracker *quota.Tracker, log *logger.Logger, baseFolder string, probeWrites bool) *Orchestrator {
	return &Orchestrator{
		store:       store,
		tracker:     tracker,
		log:         log,
		baseFolder:  baseFolder,
		probeWrites: probeWrites,
	}
}

// FolderPath resolves the remote folder for a batch.
func (o *Orchestrator) FolderPath(batchID string) string {
	return o.baseFolder + "/" + batch.SafeFolderName(batchID)
}

// Upload performs the full sequence for one task: ensure the remote folder,
// optionally probe write access, push the payload, then bump the quota
// counter. The staged artifact is released unconditionally, and the counter
// is only incremented after the remote write succeeded.
func (o *Orchestrator) Upload(ctx context.Context, task Task) (*Result, error) {
	defer func() {
		stagedPath := task.Staged.Path
		if err := task.Staged.Release(); err != nil {
			o.log.Warnf("failed to remove staged artifact %s: %v", stagedPath, err)
		}
	}()

	folderPath := o.FolderPath(task.BatchID)

	// Existence is re-verified on every upload: the folder may have been
	// created by a concurrent session or an external actor.
	exists, err := o.store.Exists(ctx, folderPath)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := o.store.CreateFolder(ctx, folderPath); err != nil && !errors.Is(err, faults.ErrAlreadyExists) {
			return nil, err
		}
	}

	if o.probeWrites {
		o.probeWriteAccess(ctx, folderPath)
	}

	filename := GenerateFilename(task.Extension)
	filePath := folderPath + "/" + filename

	body, err := task.Staged.Open()
	if err != nil {
		return nil, err
	}
	uploadErr := o.store.UploadBytes(ctx, filePath, body, task.Staged.Size, true)
	_ = body.Close()
	if uploadErr != nil {
		return nil, uploadErr
	}

	newCount, err := o.tracker.Increment(task.BatchID, task.Category)
	if err != nil {
		return nil, faults.New(faults.KindQuotaExceeded, "increment_quota", err)
	}

	return &Result{
		FilePath: filePath,
		Size:     task.Staged.Size,
		Category: task.Category,
		NewCount: newCount,
	}, nil
}

// probeWriteAccess uploads and immediately deletes a zero-byte marker. A
// failing probe is a warning, not an abort: the main upload is still
// attempted.
func (o *Orchestrator) probeWriteAccess(ctx context.Context, folderPath string) {
	probePath := folderPath + "/.probe_" + randomSuffix()
	if err := o.store.UploadBytes(ctx, probePath, bytes.NewReader(nil), 0, true); err != nil {
		o.log.Warnf("write probe failed for %s: %v", folderPath, err)
		return
	}
	if err := o.store.DeleteObject(ctx, probePath); err != nil {
		o.log.Warnf("failed to delete write probe %s: %v", probePath, err)
	}
}
