package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"invoicedrop/internal/allowlist"
	"invoicedrop/internal/batch"
	"invoicedrop/internal/quota"
	"invoicedrop/internal/session"
	"invoicedrop/internal/storage/memstore"
	"invoicedrop/internal/uploader"
	"invoicedrop/pkg/faults"
	"invoicedrop/pkg/logger"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc     *Service
	store   *memstore.Store
	tracker *quota.Tracker
}

func newFixture(t *testing.T, ceilings quota.Ceilings, idleTimeout time.Duration) *fixture {
	t.Helper()
	store := memstore.New()
	tracker := quota.NewTracker(ceilings)
	sessions := session.NewStore(tracker)
	log := &logger.Logger{Logger: zap.NewNop()}
	orch := uploader.NewOrchestrator(store, tracker, log, "invoices", false)
	staging := uploader.NewStagingArea(t.TempDir())

	limits := Limits{
		MaxBytes: map[quota.Category]int64{
			quota.CategoryPhoto:    20 << 20,
			quota.CategoryVideo:    200 << 20,
			quota.CategoryDocument: 50 << 20,
		},
		Extensions: map[quota.Category][]string{
			quota.CategoryPhoto:    {".jpg", ".jpeg", ".png"},
			quota.CategoryVideo:    {".mp4", ".mov"},
			quota.CategoryDocument: {".pdf", ".docx"},
		},
	}

	svc := New(
		allowlist.NewMemory([]string{"alice"}),
		sessions,
		tracker,
		orch,
		staging,
		log,
		limits,
		batch.Bounds{MinLen: 3, MaxLen: 50},
		idleTimeout,
	)
	return &fixture{svc: svc, store: store, tracker: tracker}
}

func photo(content string) Media {
	return Media{
		Category:     quota.CategoryPhoto,
		ContentID:    "file-photo",
		Payload:      strings.NewReader(content),
		DeclaredSize: int64(len(content)),
		Extension:    ".jpg",
	}
}

func video(content string) Media {
	return Media{
		Category:     quota.CategoryVideo,
		ContentID:    "file-video",
		Payload:      strings.NewReader(content),
		DeclaredSize: int64(len(content)),
		Extension:    ".mp4",
	}
}

func TestBeginBatchStartsWithZeroCounters(t *testing.T) {
	f := newFixture(t, quota.Ceilings{Photos: 50, Videos: 10, Documents: 20}, time.Hour)
	ctx := context.Background()

	out := f.svc.BeginBatch(ctx, "alice", "INV-2024.01")
	require.Contains(t, out, `Batch "INV-2024.01" started`)
	require.Contains(t, out, "invoices/INV-2024.01")

	status := f.svc.Status(ctx, "alice")
	require.Contains(t, status, "0/50 photos")
	require.Contains(t, status, "0/10 videos")
	require.Contains(t, status, "0/20 documents")
}

func TestBeginBatchRejectsSecondIdentifier(t *testing.T) {
	f := newFixture(t, quota.Ceilings{Photos: 50, Videos: 10, Documents: 20}, time.Hour)
	ctx := context.Background()

	f.svc.BeginBatch(ctx, "alice", "INV-1")
	out := f.svc.BeginBatch(ctx, "alice", "INV-2")
	require.Contains(t, out, `Batch "INV-1" is already active`)
}

func TestBeginBatchValidationMessages(t *testing.T) {
	f := newFixture(t, quota.Ceilings{Photos: 50, Videos: 10, Documents: 20}, time.Hour)
	ctx := context.Background()

	require.Contains(t, f.svc.BeginBatch(ctx, "alice", "ab"), "too short")
	require.Contains(t, f.svc.BeginBatch(ctx, "alice", strings.Repeat("x", 51)), "too long")
	require.Contains(t, f.svc.BeginBatch(ctx, "alice", "inv 2024"), "may only contain")
}

func TestPhotoUploadCreatesFolderAndCounts(t *testing.T) {
	f := newFixture(t, quota.Ceilings{Photos: 50, Videos: 10, Documents: 20}, time.Hour)
	ctx := context.Background()

	f.svc.BeginBatch(ctx, "alice", "INV-2024.01")
	out := f.svc.HandleMedia(ctx, "alice", photo("jpeg bytes"))
	require.Contains(t, out, "Saved photo 1/50")

	require.True(t, f.store.HasFolder("invoices/INV-2024.01"))
	require.Equal(t, 1, f.store.ObjectCount())
	require.Equal(t, uint(1), f.tracker.Snapshot("INV-2024.01").Photos)
}

func TestQuotaRejectionLeavesOtherCountsAlone(t *testing.T) {
	f := newFixture(t, quota.Ceilings{Photos: 50, Videos: 2, Documents: 20}, time.Hour)
	ctx := context.Background()

	f.svc.BeginBatch(ctx, "alice", "INV-1")
	require.Contains(t, f.svc.HandleMedia(ctx, "alice", photo("p")), "Saved photo")
	require.Contains(t, f.svc.HandleMedia(ctx, "alice", video("v1")), "Saved video 1/2")
	require.Contains(t, f.svc.HandleMedia(ctx, "alice", video("v2")), "Saved video 2/2")

	out := f.svc.HandleMedia(ctx, "alice", video("v3"))
	require.Contains(t, out, "Limit reached for videos: 2/2")

	counts := f.tracker.Snapshot("INV-1")
	require.Equal(t, uint(1), counts.Photos)
	require.Equal(t, uint(2), counts.Videos)
	// The rejected item never reached the store.
	require.Equal(t, 3, f.store.ObjectCount())
}

func TestUnauthorizedUserIsRefusedEverywhere(t *testing.T) {
	f := newFixture(t, quota.Ceilings{Photos: 50, Videos: 10, Documents: 20}, time.Hour)
	ctx := context.Background()

	require.Equal(t, notAuthorizedMsg, f.svc.Greet(ctx, "mallory"))
	require.Equal(t, notAuthorizedMsg, f.svc.BeginBatch(ctx, "mallory", "INV-1"))
	require.Equal(t, notAuthorizedMsg, f.svc.HandleMedia(ctx, "mallory", photo("x")))
	require.Equal(t, notAuthorizedMsg, f.svc.Status(ctx, "mallory"))
	require.Equal(t, notAuthorizedMsg, f.svc.Reset(ctx, "mallory"))
}

func TestCaptionOpensBatchOnTheFly(t *testing.T) {
	f := newFixture(t, quota.Ceilings{Photos: 50, Videos: 10, Documents: 20}, time.Hour)
	ctx := context.Background()

	m := photo("jpeg bytes")
	m.Caption = " INV-777 "
	out := f.svc.HandleMedia(ctx, "alice", m)
	require.Contains(t, out, "Saved photo 1/50")
	require.True(t, f.store.HasFolder("invoices/INV-777"))

	status := f.svc.Status(ctx, "alice")
	require.Contains(t, status, `Batch "INV-777"`)
}

func TestMediaWithoutBatchOrCaptionIsPrompted(t *testing.T) {
	f := newFixture(t, quota.Ceilings{Photos: 50, Videos: 10, Documents: 20}, time.Hour)
	ctx := context.Background()

	out := f.svc.HandleMedia(ctx, "alice", photo("x"))
	require.Contains(t, out, "No active batch")
	require.Equal(t, 0, f.store.ObjectCount())
}

func TestOversizedFileIsRejectedLocally(t *testing.T) {
	f := newFixture(t, quota.Ceilings{Photos: 50, Videos: 10, Documents: 20}, time.Hour)
	ctx := context.Background()

	f.svc.BeginBatch(ctx, "alice", "INV-1")
	m := photo("tiny")
	m.DeclaredSize = 21 << 20
	out := f.svc.HandleMedia(ctx, "alice", m)
	require.Contains(t, out, "too large")
	require.Equal(t, 0, f.store.ObjectCount())
	require.Equal(t, quota.Counts{}, f.tracker.Snapshot("INV-1"))
}

func TestUnsupportedExtensionIsRejected(t *testing.T) {
	f := newFixture(t, quota.Ceilings{Photos: 50, Videos: 10, Documents: 20}, time.Hour)
	ctx := context.Background()

	f.svc.BeginBatch(ctx, "alice", "INV-1")
	m := Media{
		Category:     quota.CategoryDocument,
		ContentID:    "file-doc",
		Payload:      strings.NewReader("MZ"),
		DeclaredSize: 2,
		Extension:    ".exe",
	}
	out := f.svc.HandleMedia(ctx, "alice", m)
	require.Contains(t, out, `Format ".exe" is not accepted`)
	require.Equal(t, 0, f.store.ObjectCount())
}

func TestTransientStorageFailureDoesNotCount(t *testing.T) {
	f := newFixture(t, quota.Ceilings{Photos: 50, Videos: 10, Documents: 20}, time.Hour)
	ctx := context.Background()

	f.svc.BeginBatch(ctx, "alice", "INV-1")
	f.store.FailNext("upload_bytes", faults.New(faults.KindRemoteTransient, "upload_bytes", context.DeadlineExceeded))

	out := f.svc.HandleMedia(ctx, "alice", photo("x"))
	require.Contains(t, out, "temporary storage error")
	require.Equal(t, quota.Counts{}, f.tracker.Snapshot("INV-1"))

	// The next attempt succeeds and counts once.
	f.store.FailNext("upload_bytes", nil)
	out = f.svc.HandleMedia(ctx, "alice", photo("x"))
	require.Contains(t, out, "Saved photo 1/50")
}

func TestAccessDeniedFailureMessage(t *testing.T) {
	f := newFixture(t, quota.Ceilings{Photos: 50, Videos: 10, Documents: 20}, time.Hour)
	ctx := context.Background()

	f.svc.BeginBatch(ctx, "alice", "INV-1")
	f.store.FailNext("upload_bytes", faults.New(faults.KindRemoteAccessDenied, "upload_bytes", faults.ErrUnauthorized))

	out := f.svc.HandleMedia(ctx, "alice", photo("x"))
	require.Contains(t, out, "access was denied")
}

func TestResetReportsFinalCounts(t *testing.T) {
	f := newFixture(t, quota.Ceilings{Photos: 50, Videos: 10, Documents: 20}, time.Hour)
	ctx := context.Background()

	f.svc.BeginBatch(ctx, "alice", "INV-1")
	f.svc.HandleMedia(ctx, "alice", photo("a"))
	f.svc.HandleMedia(ctx, "alice", photo("b"))

	out := f.svc.Reset(ctx, "alice")
	require.Contains(t, out, `Batch "INV-1" closed`)
	require.Contains(t, out, "2 photos, 0 videos, 0 documents")

	require.Contains(t, f.svc.Reset(ctx, "alice"), "No active batch")
	require.Equal(t, quota.Counts{}, f.tracker.Snapshot("INV-1"))
}

func TestIdleExpiryClosesBatchLazily(t *testing.T) {
	f := newFixture(t, quota.Ceilings{Photos: 50, Videos: 10, Documents: 20}, 10*time.Millisecond)
	ctx := context.Background()

	f.svc.BeginBatch(ctx, "alice", "INV-1")
	f.svc.HandleMedia(ctx, "alice", photo("a"))

	time.Sleep(30 * time.Millisecond)

	out := f.svc.Status(ctx, "alice")
	require.Contains(t, out, "Session expired after inactivity")
	require.Contains(t, out, `Batch "INV-1" was closed with 1 uploaded files`)
	require.Contains(t, out, "No active batch")

	// The counters were dropped with the session.
	require.Equal(t, quota.Counts{}, f.tracker.Snapshot("INV-1"))
}
