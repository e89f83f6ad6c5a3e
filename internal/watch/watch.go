// Package watch keeps a loaded asset view current as new subsets and
// versions are published.
package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/dyluth/burrow/internal/logging"
	"github.com/dyluth/burrow/internal/resolver"
	"github.com/dyluth/burrow/pkg/assetdb"
	"github.com/sirupsen/logrus"
)

// Stream delivers published documents. *assetdb.Subscription satisfies it.
type Stream interface {
	Events() <-chan *assetdb.Document
	Errors() <-chan error
}

// Reloader re-reads the loaded asset.
type Reloader interface {
	Refresh(ctx context.Context) error
}

// Watcher filters publish events down to one asset and reloads on each.
type Watcher struct {
	repo    assetdb.Repository
	asset   *assetdb.Document
	reload  Reloader
	subsets map[string]string // subset ID -> name
	log     *logrus.Entry
}

// New prepares a watcher for asset. It records the asset's current subsets so
// versions published under them can be recognised.
func New(ctx context.Context, repo assetdb.Repository, asset *assetdb.Document, reload Reloader, log *logrus.Entry) (*Watcher, error) {
	subsets, err := repo.Find(ctx, assetdb.Query{Type: assetdb.TypeSubset, Parent: asset.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list subsets: %w", err)
	}

	w := &Watcher{
		repo:    repo,
		asset:   asset,
		reload:  reload,
		subsets: make(map[string]string, len(subsets)),
		log:     logging.OrDiscard(log).WithField("asset", asset.Name),
	}
	for _, s := range subsets {
		w.subsets[s.ID] = s.Name
	}
	return w, nil
}

// Relevant reports whether doc belongs to the watched asset and returns the
// name of the subset it concerns.
func (w *Watcher) Relevant(doc *assetdb.Document) (string, bool) {
	switch doc.Type {
	case assetdb.TypeSubset:
		if doc.Parent != w.asset.ID {
			return "", false
		}
		w.subsets[doc.ID] = doc.Name
		return doc.Name, true
	case assetdb.TypeVersion:
		name, ok := w.subsets[doc.Parent]
		return name, ok
	default:
		return "", false
	}
}

// Run consumes the stream until ctx is done or the stream closes. Each
// relevant document triggers a reload followed by onChange. Stream errors are
// logged and skipped.
func (w *Watcher) Run(ctx context.Context, stream Stream, onChange func(doc *assetdb.Document, subset string) error) error {
	events, errs := stream.Events(), stream.Errors()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.log.WithError(err).Warn("Skipping unreadable publish event")

		case doc, ok := <-events:
			if !ok {
				return nil
			}
			subset, relevant := w.Relevant(doc)
			if !relevant {
				continue
			}

			if err := w.reload.Refresh(ctx); err != nil {
				return fmt.Errorf("failed to reload asset '%s': %w", w.asset.Name, err)
			}
			logging.Event(w.log, "asset_reloaded").WithFields(logrus.Fields{
				"subset":   subset,
				"doc_type": doc.Type,
				"doc_name": doc.Name,
			}).Debug("Reloaded after publish")

			if onChange != nil {
				if err := onChange(doc, subset); err != nil {
					return err
				}
			}
		}
	}
}

// FormatEvent renders a publish event as one human-readable line.
func FormatEvent(doc *assetdb.Document, subset string) string {
	switch doc.Type {
	case assetdb.TypeSubset:
		return fmt.Sprintf("📦 Subset published: %s", doc.Name)
	case assetdb.TypeVersion:
		if family := doc.Data.Family(); family != "" {
			return fmt.Sprintf("🆕 Version published: %s %s (%s)", subset, doc.Name, family)
		}
		return fmt.Sprintf("🆕 Version published: %s %s", subset, doc.Name)
	default:
		return fmt.Sprintf("📄 %s published: %s", doc.Type, doc.Name)
	}
}

// PollForAsset waits for an asset to be published, polling every 200ms.
func PollForAsset(ctx context.Context, repo assetdb.Repository, ref string, timeout time.Duration) (*assetdb.Document, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		asset, err := resolver.ResolveAsset(ctx, repo, ref)
		if err == nil {
			return asset, nil
		}
		if !resolver.IsNotFoundError(err) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for asset '%s' after %v", ref, timeout)
		case <-ticker.C:
		}
	}
}
