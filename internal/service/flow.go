// Package service implements the event pipeline of the bot: every inbound
// chat event passes through authorization, lazy session expiry, quota and
// validation checks, and ends in a user-facing outcome string which the
// transport delivers back.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"invoicedrop/internal/allowlist"
	"invoicedrop/internal/batch"
	"invoicedrop/internal/quota"
	"invoicedrop/internal/session"
	"invoicedrop/internal/uploader"
	"invoicedrop/pkg/faults"
	"invoicedrop/pkg/logger"
)

// Limits bundles the per-category size ceilings and extension allow-lists
// checked locally before any remote call.
type Limits struct {
	MaxBytes   map[quota.Category]int64
	Extensions map[quota.Category][]string
}

// Media is one inbound media item, payload not yet staged.
type Media struct {
	Category     quota.Category
	ContentID    string
	Payload      io.Reader
	DeclaredSize int64
	Extension    string
	Caption      string
}

type Service struct {
	allow       allowlist.Allowlist
	sessions    *session.Store
	tracker     *quota.Tracker
	orch        *uploader.Orchestrator
	staging     *uploader.StagingArea
	log         *logger.Logger
	limits      Limits
	bounds      batch.Bounds
	idleTimeout time.Duration
}

func New(
	allow allowlist.Allowlist,
	sessions *session.Store,
	tracker *quota.Tracker,
	orch *uploader.Orchestrator,
	staging *uploader.StagingArea,
	log *logger.Logger,
	limits Limits,
	bounds batch.Bounds,
	idleTimeout time.Duration,
) *Service {
	return &Service{
		allow:       allow,
		sessions:    sessions,
		tracker:     tracker,
		orch:        orch,
		staging:     staging,
		log:         log,
		limits:      limits,
		bounds:      bounds,
		idleTimeout: idleTimeout,
	}
}

// prepare runs the steps shared by every entry point: authorization and lazy
// idle-timeout eviction. The returned notice is non-empty when a stale
// session was just closed and should be prepended to the outcome.
func (s *Service) prepare(ctx context.Context, userID string) (notice string, authorized bool) {
	allowed, err := s.allow.IsAllowed(ctx, userID)
	if err != nil {
		s.log.Errorf("allowlist lookup failed for user %s: %v", userID, err)
		return "", false
	}
	if !allowed {
		return "", false
	}

	if s.sessions.IsExpired(userID, s.idleTimeout) {
		if batchID, counts, had := s.sessions.EndBatch(userID); had {
			s.log.Infof("session for user %s expired, batch %s closed with %d files", userID, batchID, counts.Total())
			notice = fmt.Sprintf("Session expired after inactivity. Batch %q was closed with %d uploaded files.\n", batchID, counts.Total())
		}
	}
	s.sessions.Touch(userID)
	return notice, true
}

const notAuthorizedMsg = "You are not authorized to use this bot. Contact the administrator."

// Greet handles /start.
func (s *Service) Greet(ctx context.Context, userID string) string {
	notice, ok := s.prepare(ctx, userID)
	if !ok {
		return notAuthorizedMsg
	}
	return notice + "Hi! Send an invoice number to start a batch, then send photos, videos or documents. Finish with /reset. Check progress with /status."
}

// BeginBatch handles a plain-text message as a batch identifier.
func (s *Service) BeginBatch(ctx context.Context, userID, raw string) string {
	notice, ok := s.prepare(ctx, userID)
	if !ok {
		return notAuthorizedMsg
	}

	if current, active := s.sessions.CurrentBatch(userID); active {
		return notice + fmt.Sprintf("Batch %q is already active. Send /reset to close it before starting a new one.", current)
	}

	normalized, err := batch.Validate(raw, s.bounds)
	if err != nil {
		return notice + identifierErrorMsg(err, s.bounds)
	}

	if err := s.sessions.BeginBatch(userID, normalized); err != nil {
		return notice + fmt.Sprintf("Batch %q is already active. Send /reset to close it before starting a new one.", normalized)
	}
	s.log.Infof("user %s started batch %s", userID, normalized)
	return notice + fmt.Sprintf("Batch %q started. Send photos, videos or documents; they will be stored under %s.", normalized, s.orch.FolderPath(normalized))
}

// Reset handles /reset: closes the active batch and reports its counts.
func (s *Service) Reset(ctx context.Context, userID string) string {
	notice, ok := s.prepare(ctx, userID)
	if !ok {
		return notAuthorizedMsg
	}

	batchID, counts, had := s.sessions.EndBatch(userID)
	if !had {
		return notice + "No active batch to reset. Send an invoice number to start one."
	}
	s.log.Infof("user %s closed batch %s (%d photos, %d videos, %d documents)", userID, batchID, counts.Photos, counts.Videos, counts.Documents)
	return notice + fmt.Sprintf("Batch %q closed. Uploaded: %d photos, %d videos, %d documents.", batchID, counts.Photos, counts.Videos, counts.Documents)
}

// Status handles /status: reports the active batch and remaining quota.
func (s *Service) Status(ctx context.Context, userID string) string {
	notice, ok := s.prepare(ctx, userID)
	if !ok {
		return notAuthorizedMsg
	}

	batchID, active := s.sessions.CurrentBatch(userID)
	if !active {
		return notice + "No active batch. Send an invoice number to start one."
	}
	counts := s.tracker.Snapshot(batchID)
	return notice + fmt.Sprintf(
		"Batch %q: %d/%d photos, %d/%d videos, %d/%d documents.",
		batchID,
		counts.Photos, s.tracker.Limit(quota.CategoryPhoto),
		counts.Videos, s.tracker.Limit(quota.CategoryVideo),
		counts.Documents, s.tracker.Limit(quota.CategoryDocument),
	)
}

// HandleMedia runs the full pipeline for one media item.
func (s *Service) HandleMedia(ctx context.Context, userID string, m Media) string {
	notice, ok := s.prepare(ctx, userID)
	if !ok {
		return notAuthorizedMsg
	}

	batchID, active := s.sessions.CurrentBatch(userID)
	if !active {
		// A valid identifier in the caption opens the batch on the fly, so
		// an album sent together with its invoice number just works.
		caption := strings.TrimSpace(m.Caption)
		if caption == "" {
			return notice + "No active batch. Send an invoice number first, or put it in the file caption."
		}
		normalized, err := batch.Validate(caption, s.bounds)
		if err != nil {
			return notice + identifierErrorMsg(err, s.bounds)
		}
		if err := s.sessions.BeginBatch(userID, normalized); err != nil {
			return notice + fmt.Sprintf("Batch %q is already active. Send /reset to close it first.", normalized)
		}
		batchID = normalized
		s.log.Infof("user %s started batch %s from caption", userID, batchID)
	}

	// Local prechecks: size ceiling and extension allow-list must not cost a
	// remote call.
	if maxBytes := s.limits.MaxBytes[m.Category]; maxBytes > 0 && m.DeclaredSize > maxBytes {
		return notice + fmt.Sprintf("This %s is too large: %s (limit %s).", m.Category, formatBytes(m.DeclaredSize), formatBytes(maxBytes))
	}
	if !s.extensionAllowed(m.Category, m.Extension) {
		return notice + fmt.Sprintf("Format %q is not accepted for %ss.", m.Extension, m.Category)
	}
	if s.tracker.Remaining(batchID, m.Category) == 0 {
		counts := s.tracker.Snapshot(batchID)
		return notice + fmt.Sprintf("Limit reached for %ss: %d/%d. Send /reset to close batch %q.", m.Category, counts.Of(m.Category), s.tracker.Limit(m.Category), batchID)
	}

	staged, err := s.staging.Stage(m.ContentID, m.Payload)
	if err != nil {
		s.log.Errorf("staging failed for user %s: %v", userID, err)
		return notice + failureMsg(err)
	}

	result, err := s.orch.Upload(ctx, uploader.Task{
		BatchID:   batchID,
		Category:  m.Category,
		Staged:    staged,
		Extension: m.Extension,
	})
	if err != nil {
		s.log.Errorf("upload failed for user %s batch %s: %v", userID, batchID, err)
		return notice + failureMsg(err)
	}

	s.log.Infof("user %s uploaded %s (%d bytes) to %s", userID, m.Category, result.Size, result.FilePath)
	return notice + fmt.Sprintf("Saved %s %d/%d to %s.", result.Category, result.NewCount, s.tracker.Limit(result.Category), result.FilePath)
}

func (s *Service) extensionAllowed(cat quota.Category, ext string) bool {
	allowed := s.limits.Extensions[cat]
	if len(allowed) == 0 {
		return true
	}
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	for _, a := range allowed {
		if strings.EqualFold(a, ext) {
			return true
		}
	}
	return false
}

func identifierErrorMsg(err error, bounds batch.Bounds) string {
	switch {
	case errors.Is(err, faults.ErrEmptyIdentifier):
		return "The invoice number is empty. Please send a non-empty identifier."
	case errors.Is(err, faults.ErrIdentifierTooShort):
		return fmt.Sprintf("The invoice number is too short: at least %d characters are required.", boundsMin(bounds))
	case errors.Is(err, faults.ErrIdentifierTooLong):
		return fmt.Sprintf("The invoice number is too long: at most %d characters are allowed.", boundsMax(bounds))
	case errors.Is(err, faults.ErrInvalidCharacters):
		return "The invoice number may only contain letters, digits, '-', '_' and '.'."
	default:
		return "The invoice number is not valid."
	}
}

func boundsMin(b batch.Bounds) int {
	if b.MinLen > 0 {
		return b.MinLen
	}
	return batch.DefaultMinLen
}

func boundsMax(b batch.Bounds) int {
	if b.MaxLen > 0 {
		return b.MaxLen
	}
	return batch.DefaultMaxLen
}

// failureMsg converts a classified failure into the user-facing outcome.
// No raw provider error ever reaches the chat.
func failureMsg(err error) string {
	switch faults.KindOf(err) {
	case faults.KindQuotaExceeded:
		return "The batch limit for this file type is reached. Send /reset to close the batch."
	case faults.KindRemoteQuota:
		return "The remote storage is out of capacity. Contact the administrator."
	case faults.KindRemoteAccessDenied:
		return "Storage access was denied. Contact the administrator to check the credentials."
	case faults.KindLocalIO:
		return "Could not read the file payload. Please resend the file."
	default:
		return "A temporary storage error occurred. Please resend the file."
	}
}

func formatBytes(n int64) string {
	const mb = 1 << 20
	if n >= mb {
		return fmt.Sprintf("%.1f MB", float64(n)/mb)
	}
	return fmt.Sprintf("%d KB", n/(1<<10))
}
