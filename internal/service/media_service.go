package service

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"monoforum/internal/config"
	"monoforum/internal/models"
	"monoforum/internal/storage"
)

const (
	UploadKindPosts   = "posts"
	UploadKindAvatars = "avatars"
)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

var unsafeFileNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type MediaService interface {
	Upload(ctx context.Context, identity *models.Identity, kind, fileName string, data []byte) (string, error)
}

type mediaService struct {
	storage storage.Storage
	cfg     *config.Config
	now     func() time.Time
}

func NewMediaService(storage storage.Storage, cfg *config.Config) MediaService {
	return &mediaService{
		storage: storage,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Upload stores an image under <kind>/<user id>/<unix millis>-<name> and
// returns its public URL. The content type is sniffed from the bytes, the
// client supplied name is only used for the object name.
func (m *mediaService) Upload(ctx context.Context, identity *models.Identity, kind, fileName string, data []byte) (string, error) {
	if identity == nil {
		return "", ErrNotAuthenticated
	}

	if kind != UploadKindPosts && kind != UploadKindAvatars {
		return "", validationError("неизвестный тип загрузки %q", kind)
	}

	if len(data) == 0 {
		return "", validationError("файл пуст")
	}

	if m.cfg.MaxUploadSize > 0 && int64(len(data)) > m.cfg.MaxUploadSize {
		return "", validationError("файл слишком большой (макс. %d MB)", m.cfg.MaxUploadSize/(1024*1024))
	}

	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), allowedImageTypes...) {
		return "", validationError("неподдерживаемый тип файла %s. Разрешены: JPEG, PNG, GIF, WebP", mtype.String())
	}

	objectName := fmt.Sprintf("%s/%s/%d-%s", kind, identity.UserID, m.now().UnixMilli(), sanitizeFileName(fileName, mtype.Extension()))

	url, err := m.storage.UploadBlob(ctx, objectName, data, mtype.String())
	if err != nil {
		return "", fmt.Errorf("ошибка загрузки изображения: %w", err)
	}

	return url, nil
}

func sanitizeFileName(fileName, fallbackExt string) string {
	name := filepath.Base(strings.ReplaceAll(fileName, "\\", "/"))
	name = strings.Trim(unsafeFileNameChars.ReplaceAllString(name, "-"), "-.")

	if name == "" {
		return "image" + fallbackExt
	}

	return name
}
