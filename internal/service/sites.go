package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/timetill/internal/errs"
	"github.com/and161185/timetill/internal/ids"
	"github.com/and161185/timetill/internal/model"
	"github.com/and161185/timetill/internal/session"
	"github.com/and161185/timetill/internal/store"
)

// Sites manages imported site bundles against the blob substrate. When the
// blob store is degraded, listing stays empty and mutations surface
// ErrPersistence — the rest of the app is unaffected.
type Sites struct {
	blobs store.BlobStore
	ids   ids.Generator
	log   *zap.Logger
}

// NewSites constructs the site service.
func NewSites(blobs store.BlobStore, gen ids.Generator, log *zap.Logger) *Sites {
	return &Sites{blobs: blobs, ids: gen, log: log}
}

// Import stores a named bundle of files as one managed site. Admin only.
func (s *Sites) Import(ctx context.Context, principal *model.Session, name string, files []model.SiteFile) (*model.ManagedSite, error) {
	if err := session.RequireAdmin(principal); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: site name required", errs.ErrValidation)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: site has no files", errs.ErrValidation)
	}
	for i := range files {
		if files[i].Path == "" {
			return nil, fmt.Errorf("%w: file %d has no path", errs.ErrValidation, i)
		}
	}
	site := &model.ManagedSite{
		ID:        s.ids.Next(),
		Name:      name,
		Files:     files,
		CreatedAt: time.Now().UTC(),
	}
	stored, err := s.blobs.PutSite(ctx, site)
	if err != nil {
		return nil, err
	}
	s.log.Info("site imported", zap.String("name", name), zap.Int("files", len(files)))
	return stored, nil
}

// List returns all managed sites; an unavailable blob store yields an empty
// list, not an error.
func (s *Sites) List(ctx context.Context) ([]model.ManagedSite, error) {
	return s.blobs.ListSites(ctx)
}

// Get returns one managed site by id.
func (s *Sites) Get(ctx context.Context, id int64) (*model.ManagedSite, error) {
	return s.blobs.GetSite(ctx, id)
}

// Delete removes a managed site. Admin only.
func (s *Sites) Delete(ctx context.Context, principal *model.Session, id int64) error {
	if err := session.RequireAdmin(principal); err != nil {
		return err
	}
	return s.blobs.DeleteSite(ctx, id)
}
