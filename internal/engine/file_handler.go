package engine

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"hr-backend/internal/instrument"
	"hr-backend/internal/storage"
)

// UploadDir is the storage directory for user uploads, served under
// /uploads/users/.
const UploadDir = "users"

var extRe = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

type FileHandler struct {
	storage storage.FileStorage
	maxSize int64
	logger  *zap.Logger
}

func NewFileHandler(fs storage.FileStorage, maxSize int64, logger *zap.Logger) *FileHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileHandler{storage: fs, maxSize: maxSize, logger: logger}
}

// Upload handles POST /api/uploads (multipart field "file"). The stored name
// is a fresh ULID keeping the original extension. An optional "replace"
// field naming a previous upload URL removes that file once the new one
// is stored.
func (h *FileHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return respondError(c, BadRequestError("Missing file in form data"))
	}

	if file.Size > h.maxSize {
		msg := fmt.Sprintf("File too large: %d bytes (max %d)", file.Size, h.maxSize)
		return respondError(c, NewAppError("FILE_TOO_LARGE", 413, msg))
	}

	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("open uploaded file: %w", err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !extRe.MatchString(ext) {
		ext = ""
	}

	key, err := h.storage.Save(c.Context(), UploadDir, instrument.NewID()+ext, src)
	if err != nil {
		return fmt.Errorf("save file: %w", err)
	}

	if old, ok := uploadKey(c.FormValue("replace")); ok && old != key {
		if err := h.storage.Delete(c.Context(), old); err != nil {
			h.logger.Warn("remove replaced upload", zap.String("key", old), zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{"ok": true, "url": "/uploads/" + key})
}

// uploadKey maps a public upload URL back to its storage key. Only keys
// inside UploadDir are accepted.
func uploadKey(url string) (string, bool) {
	rest, ok := strings.CutPrefix(url, "/uploads/")
	if !ok || rest == "" {
		return "", false
	}
	key := path.Clean(rest)
	if !strings.HasPrefix(key, UploadDir+"/") || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}
