package uploader

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// GenerateFilename produces a collision-resistant object name of the form
// {yyyymmdd_hhmmss}_{8-hex-random}{ext}. The original filename is never used;
// fresh entropy per call makes a uniqueness check against the remote folder
// unnecessary.
func GenerateFilename(ext string) string {
	ts := time.Now().Format("20060102_150405")
	return ts + "_" + randomSuffix() + normalizeExt(ext)
}

func randomSuffix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in a bad state; a
		// constant suffix still yields a usable, second-resolution name.
		return "00000000"
	}
	return hex.EncodeToString(buf)
}

func normalizeExt(ext string) string {
	ext = strings.TrimSpace(strings.ToLower(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
