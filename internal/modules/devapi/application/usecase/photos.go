package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"mesaYaReviews/internal/modules/devapi/application/port"
	"mesaYaReviews/internal/modules/devapi/domain"
	realtimeport "mesaYaReviews/internal/modules/realtime/application/port"
	realtime "mesaYaReviews/internal/modules/realtime/domain"
	restaurants "mesaYaReviews/internal/modules/restaurants/domain"
	"mesaYaReviews/internal/shared/logging"
)

// MaxPhotoSize is the largest accepted upload.
const MaxPhotoSize = 5 << 20

var allowedPhotoExtensions = map[string]struct{}{"jpg": {}, "jpeg": {}, "png": {}, "gif": {}}

// PhotoUpload is a received multipart file.
type PhotoUpload struct {
	Filename    string
	ContentType string
	Data        []byte
	Caption     string
}

// StoredPhoto is photo content ready to be served.
type StoredPhoto struct {
	Name        string
	ContentType string
	Data        []byte
}

type PhotoService struct {
	store  port.PhotoStore
	events eventSink
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

func NewPhotoService(store port.PhotoStore, publisher realtimeport.Publisher, logger *slog.Logger) *PhotoService {
	logger = logging.OrDefault(logger)
	return &PhotoService{
		store:  store,
		events: eventSink{publisher: publisher, logger: logger},
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Upload stores the image under a fresh "<uuid>.<ext>" name; that name is the photo's URL.
func (s *PhotoService) Upload(ctx context.Context, upload PhotoUpload) (restaurants.Photo, error) {
	if len(upload.Data) == 0 {
		return restaurants.Photo{}, domain.FieldErrors{{Field: "file", Message: "Cannot save an empty file"}}
	}
	if len(upload.Data) > MaxPhotoSize {
		return restaurants.Photo{}, domain.FieldErrors{{Field: "file", Message: fmt.Sprintf("File too large. Max size is %dMB", MaxPhotoSize>>20)}}
	}
	original := filepath.Base(strings.TrimSpace(upload.Filename))
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(original), "."))
	if ext == "" {
		return restaurants.Photo{}, domain.FieldErrors{{Field: "file", Message: "Missing file extension"}}
	}
	if _, ok := allowedPhotoExtensions[ext]; !ok {
		return restaurants.Photo{}, domain.FieldErrors{{Field: "file", Message: "Unsupported file type: " + ext}}
	}
	contentType := sniffContentType(upload.ContentType, upload.Data)
	if !strings.HasPrefix(contentType, "image/") {
		return restaurants.Photo{}, domain.FieldErrors{{Field: "file", Message: "Unsupported content type: " + contentType}}
	}

	name := s.newID() + "." + ext
	if err := s.store.Save(ctx, name, upload.Data); err != nil {
		return restaurants.Photo{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	photo := restaurants.Photo{
		ID:         name,
		URL:        name,
		Filename:   original,
		Caption:    strings.TrimSpace(upload.Caption),
		UploadDate: restaurants.Timestamp{Time: s.now().UTC()},
	}
	s.logger.Info("photo stored", slog.String("photo", name), slog.Int("bytes", len(upload.Data)))
	s.events.publish(ctx, realtime.NewEntityMessage(realtime.PhotoEntity, realtime.ActionCreated, name, photo, s.now()))
	return photo, nil
}

// sniffContentType trusts a declared image type and otherwise inspects the bytes.
func sniffContentType(declared string, data []byte) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if strings.HasPrefix(declared, "image/") {
		return declared
	}
	return http.DetectContentType(data)
}

// Load returns the stored bytes with the type implied by the name, falling back to sniffing.
func (s *PhotoService) Load(ctx context.Context, name string) (StoredPhoto, error) {
	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return StoredPhoto{}, domain.ErrPhotoNotFound
	}
	data, err := s.store.Load(ctx, name)
	if err != nil {
		return StoredPhoto{}, err
	}
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return StoredPhoto{Name: name, ContentType: contentType, Data: data}, nil
}
