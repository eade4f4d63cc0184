package bot

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"invoicedrop/internal/quota"
	"invoicedrop/internal/service"
	"invoicedrop/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	userID := strconv.FormatInt(msg.From.ID, 10)
	ctx = context.WithValue(ctx, logger.RequestIdKey, uuid.NewString())
	ctx = context.WithValue(ctx, logger.UserIdKey, userID)

	var outcome string
	switch {
	case msg.IsCommand():
		outcome = b.handleCommand(ctx, userID, msg)
	case msg.Photo != nil && len(msg.Photo) > 0:
		outcome = b.handlePhoto(ctx, userID, msg)
	case msg.Video != nil:
		outcome = b.handleVideo(ctx, userID, msg)
	case msg.Document != nil:
		outcome = b.handleDocument(ctx, userID, msg)
	case strings.TrimSpace(msg.Text) != "":
		outcome = b.svc.BeginBatch(ctx, userID, msg.Text)
	default:
		outcome = "Send an invoice number, a photo, a video or a document."
	}

	b.reply(msg.Chat.ID, outcome)
}

func (b *Bot) handleCommand(ctx context.Context, userID string, msg *tgbotapi.Message) string {
	switch msg.Command() {
	case "start":
		return b.svc.Greet(ctx, userID)
	case "help":
		return "Send an invoice number to open a batch, then send photos, videos or documents.\n" +
			"/status shows the current batch and remaining quota.\n" +
			"/reset closes the batch."
	case "status":
		return b.svc.Status(ctx, userID)
	case "reset":
		return b.svc.Reset(ctx, userID)
	default:
		return "Unknown command. Try /help."
	}
}

func (b *Bot) handlePhoto(ctx context.Context, userID string, msg *tgbotapi.Message) string {
	// Telegram sends several resolutions of the same photo; the last entry
	// is the original-size rendition.
	photo := msg.Photo[len(msg.Photo)-1]
	return b.handleMedia(ctx, userID, service.Media{
		Category:     quota.CategoryPhoto,
		ContentID:    photo.FileID,
		DeclaredSize: int64(photo.FileSize),
		Extension:    ".jpg",
		Caption:      msg.Caption,
	})
}

func (b *Bot) handleVideo(ctx context.Context, userID string, msg *tgbotapi.Message) string {
	video := msg.Video
	ext := extensionOf(video.FileName, ".mp4")
	return b.handleMedia(ctx, userID, service.Media{
		Category:     quota.CategoryVideo,
		ContentID:    video.FileID,
		DeclaredSize: int64(video.FileSize),
		Extension:    ext,
		Caption:      msg.Caption,
	})
}

func (b *Bot) handleDocument(ctx context.Context, userID string, msg *tgbotapi.Message) string {
	doc := msg.Document
	ext := extensionOf(doc.FileName, "")
	return b.handleMedia(ctx, userID, service.Media{
		Category:     quota.CategoryDocument,
		ContentID:    doc.FileID,
		DeclaredSize: int64(doc.FileSize),
		Extension:    ext,
		Caption:      msg.Caption,
	})
}

// handleMedia fetches the payload from Telegram's file API and feeds the
// pipeline. The download happens before any remote storage call.
func (b *Bot) handleMedia(ctx context.Context, userID string, m service.Media) string {
	url, err := b.api.GetFileDirectURL(m.ContentID)
	if err != nil {
		b.log.Errorf("failed to resolve file url for %s: %v", m.ContentID, err)
		return "Could not fetch the file from Telegram. Please resend it."
	}

	resp, err := b.httpClient.Get(url)
	if err != nil {
		b.log.Errorf("failed to download %s: %v", m.ContentID, err)
		return "Could not fetch the file from Telegram. Please resend it."
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		b.log.Errorf("telegram file download returned %d for %s", resp.StatusCode, m.ContentID)
		return fmt.Sprintf("Telegram refused the file download (HTTP %d). Please resend it.", resp.StatusCode)
	}

	m.Payload = resp.Body
	return b.svc.HandleMedia(ctx, userID, m)
}

func extensionOf(filename, fallback string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return fallback
	}
	return ext
}
