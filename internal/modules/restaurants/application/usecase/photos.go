package usecase

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"mesaYaReviews/internal/modules/restaurants/application/port"
	"mesaYaReviews/internal/modules/restaurants/domain"
)

const maxConcurrentUploads = 3

type PhotoUploader interface {
	UploadPhoto(ctx context.Context, upload port.PhotoUpload) (domain.Photo, error)
}

// UploadPhotos uploads every file and returns the resulting photo references in input
// order. The first failure cancels the remaining uploads.
func UploadPhotos(ctx context.Context, uploader PhotoUploader, uploads []port.PhotoUpload) ([]string, error) {
	refs := make([]string, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentUploads)
	for i, upload := range uploads {
		g.Go(func() error {
			photo, err := uploader.UploadPhoto(gctx, upload)
			if err != nil {
				return fmt.Errorf("upload %q: %w", upload.Filename, err)
			}
			refs[i] = photo.Ref()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return refs, nil
}

// MergePhotoIDs lists the references of the photos already attached followed by newly
// uploaded ones, as sent in photoIds.
func MergePhotoIDs(existing []domain.Photo, uploaded []string) []string {
	ids := make([]string, 0, len(existing)+len(uploaded))
	for _, photo := range existing {
		if ref := photo.Ref(); ref != "" {
			ids = append(ids, ref)
		}
	}
	for _, ref := range uploaded {
		if trimmed := strings.TrimSpace(ref); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}

// PhotoSelection is the photo set being edited: attached photos first, then pending files.
type PhotoSelection struct {
	Existing []domain.Photo
	Pending  []port.PhotoUpload
}

func (s PhotoSelection) Len() int { return len(s.Existing) + len(s.Pending) }

// RemoveAt drops the photo at the combined index. Out-of-range indexes leave the selection
// unchanged.
func (s PhotoSelection) RemoveAt(index int) PhotoSelection {
	switch {
	case index < 0 || index >= s.Len():
		return s
	case index < len(s.Existing):
		return PhotoSelection{Existing: without(s.Existing, index), Pending: s.Pending}
	default:
		return PhotoSelection{Existing: s.Existing, Pending: without(s.Pending, index-len(s.Existing))}
	}
}

func without[T any](items []T, index int) []T {
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:index]...)
	return append(out, items[index+1:]...)
}
