// Package archive stores raw upload payloads in object storage (S3, GCS or
// Azure Blob) on a bounded worker pool, off the request path.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/alitto/pond/v2"

	"cm-admin/internal/domain"
	"cm-admin/internal/metrics"
)

var _ domain.PayloadArchiver = (*Archiver)(nil)

const (
	defaultWorkers = 4
	putTimeout     = 2 * time.Minute
)

// Store writes one object. Implementations: S3Store, GCSStore, AzureStore.
type Store interface {
	Put(ctx context.Context, key string, body []byte) error
}

// Target is a parsed ARCHIVE_URL.
type Target struct {
	Scheme  string // s3, gs or azblob
	Account string // azblob only
	Bucket  string // bucket, or container for azblob
	Prefix  string
}

// ParseURL parses s3://bucket/prefix, gs://bucket/prefix or
// azblob://account/container/prefix.
func ParseURL(raw string) (Target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("parse archive url %q: %w", raw, err)
	}
	t := Target{Scheme: u.Scheme}
	rest := strings.Trim(u.Path, "/")
	switch u.Scheme {
	case "s3", "gs":
		t.Bucket = u.Host
		t.Prefix = rest
	case "azblob":
		t.Account = u.Host
		t.Bucket, t.Prefix, _ = strings.Cut(rest, "/")
		if t.Account == "" {
			return Target{}, fmt.Errorf("empty account in archive url %q", raw)
		}
	default:
		return Target{}, fmt.Errorf("unsupported archive scheme %q in %q", u.Scheme, raw)
	}
	if t.Bucket == "" {
		return Target{}, fmt.Errorf("empty bucket in archive url %q", raw)
	}
	return t, nil
}

// Key joins the target prefix and an object name.
func (t Target) Key(name string) string {
	if t.Prefix == "" {
		return name
	}
	return path.Join(t.Prefix, name)
}

// Options configures the archive backends.
type Options struct {
	URL                string
	Workers            int
	AWSRegion          string
	S3Endpoint         string
	S3AccessKeyID      string
	S3SecretAccessKey  string
	GCSCredentialsFile string
	AzureAccountKey    string
}

// NewStore builds the backend named by the target's scheme.
func NewStore(ctx context.Context, t Target, opts Options) (Store, error) {
	switch t.Scheme {
	case "s3":
		return NewS3Store(t.Bucket, opts)
	case "gs":
		return NewGCSStore(ctx, t.Bucket, opts.GCSCredentialsFile)
	case "azblob":
		return NewAzureStore(t.Account, opts.AzureAccountKey, t.Bucket)
	default:
		return nil, fmt.Errorf("unsupported archive scheme %q", t.Scheme)
	}
}

// Archiver submits payload writes to a worker pool. Failures are logged and
// counted, never returned to the uploader.
type Archiver struct {
	store  Store
	target Target
	pool   pond.Pool
	logger *slog.Logger
}

// New creates an Archiver from opts. It returns nil, nil when no archive
// URL is configured.
func New(ctx context.Context, opts Options, logger *slog.Logger) (*Archiver, error) {
	if opts.URL == "" {
		return nil, nil
	}
	t, err := ParseURL(opts.URL)
	if err != nil {
		return nil, err
	}
	store, err := NewStore(ctx, t, opts)
	if err != nil {
		return nil, fmt.Errorf("create %s archive store: %w", t.Scheme, err)
	}
	return NewArchiver(store, t, opts.Workers, logger), nil
}

// NewArchiver wraps store with a pool of workers.
func NewArchiver(store Store, t Target, workers int, logger *slog.Logger) *Archiver {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Archiver{
		store:  store,
		target: t,
		pool:   pond.NewPool(workers),
		logger: logger.With("component", "archive", "target", t.Scheme+"://"+t.Bucket),
	}
}

// Archive queues payload for storage under key and returns immediately.
func (a *Archiver) Archive(ctx context.Context, key string, payload []byte) error {
	if a.pool.Stopped() {
		return fmt.Errorf("archive %s: pool stopped", key)
	}
	full := a.target.Key(key)
	a.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(ctx, putTimeout)
		defer cancel()
		if err := a.store.Put(ctx, full, payload); err != nil {
			metrics.ArchiveFailuresTotal.Inc()
			a.logger.Warn("archive upload failed", "key", full, "bytes", len(payload), "error", err)
			return
		}
		a.logger.Debug("payload archived", "key", full, "bytes", len(payload))
	})
	return nil
}

// Close waits for queued writes to finish.
func (a *Archiver) Close() {
	a.pool.StopAndWait()
}
