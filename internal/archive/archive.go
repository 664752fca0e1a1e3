// Package archive writes committed ledger snapshots to a blob store and
// reads them back. An archive is laid out as
//
//	archives/<id>/manifest.json
//	archives/<id>/<bucket>.json
//
// with one document per persistence bucket. The manifest is written last, so
// an archive without one is incomplete and is skipped by List.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mycoledger/internal/blob"
	"mycoledger/internal/infra/persistence"
	"mycoledger/pkg/domain"
)

const (
	rootPrefix   = "archives/"
	manifestName = "manifest.json"
	contentType  = "application/json"
)

// ErrNotFound is returned when no complete archive has the requested id.
var ErrNotFound = errors.New("archive not found")

// Manifest describes one exported snapshot.
type Manifest struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	Buckets   []string         `json:"buckets"`
	Counts    map[string]int   `json:"counts"`
	Sequences domain.Sequences `json:"sequences"`
	Bytes     int64            `json:"size_bytes"`
}

// Archiver exports and restores ledger snapshots through a blob store.
type Archiver struct {
	store blob.Store
	now   func() time.Time
	newID func() string
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithClock overrides the manifest timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Archiver) {
		if now != nil {
			a.now = now
		}
	}
}

// WithIDGenerator overrides archive id generation.
func WithIDGenerator(fn func() string) Option {
	return func(a *Archiver) {
		if fn != nil {
			a.newID = fn
		}
	}
}

// New constructs an Archiver over store.
func New(store blob.Store, opts ...Option) *Archiver {
	a := &Archiver{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func objectKey(id, name string) string {
	return path.Join(rootPrefix, id, name)
}

// Export writes every bucket of snapshot concurrently, then the manifest.
func (a *Archiver) Export(ctx context.Context, snapshot domain.Snapshot) (Manifest, error) {
	m := Manifest{
		ID:        a.newID(),
		CreatedAt: a.now(),
		Buckets:   append([]string(nil), persistence.Buckets...),
		Counts: map[string]int{
			persistence.BucketNetworks:           len(snapshot.Networks),
			persistence.BucketTrees:              len(snapshot.Trees),
			persistence.BucketInoculations:       len(snapshot.Inoculations),
			persistence.BucketCarbonMeasurements: len(snapshot.CarbonMeasurements),
		},
		Sequences: snapshot.Sequences,
	}

	sizes := make([]int64, len(m.Buckets))
	g, gctx := errgroup.WithContext(ctx)
	for i, bucket := range m.Buckets {
		g.Go(func() error {
			payload, err := persistence.EncodeBucket(snapshot, bucket)
			if err != nil {
				return err
			}
			info, err := a.store.Put(gctx, objectKey(m.ID, bucket+".json"), bytes.NewReader(payload), blob.PutOptions{
				ContentType: contentType,
				Metadata:    map[string]string{"archive": m.ID, "bucket": bucket},
			})
			if err != nil {
				return fmt.Errorf("write %s: %w", bucket, err)
			}
			sizes[i] = info.Size
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Manifest{}, err
	}
	for _, n := range sizes {
		m.Bytes += n
	}

	payload, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return Manifest{}, fmt.Errorf("encode manifest: %w", err)
	}
	if _, err := a.store.Put(ctx, objectKey(m.ID, manifestName), bytes.NewReader(payload), blob.PutOptions{ContentType: contentType}); err != nil {
		return Manifest{}, fmt.Errorf("write manifest: %w", err)
	}
	return m, nil
}

// List returns the manifests of complete archives, oldest first.
func (a *Archiver) List(ctx context.Context) ([]Manifest, error) {
	infos, err := a.store.List(ctx, rootPrefix)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	var out []Manifest
	for _, info := range infos {
		if !strings.HasSuffix(info.Key, "/"+manifestName) {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(info.Key, rootPrefix), "/"+manifestName)
		m, err := a.Manifest(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Manifest reads the manifest of archive id.
func (a *Archiver) Manifest(ctx context.Context, id string) (Manifest, error) {
	payload, err := a.read(ctx, objectKey(id, manifestName))
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return Manifest{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(payload, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest %s: %w", id, err)
	}
	return m, nil
}

// Load reads archive id back into a snapshot.
func (a *Archiver) Load(ctx context.Context, id string) (domain.Snapshot, Manifest, error) {
	m, err := a.Manifest(ctx, id)
	if err != nil {
		return domain.Snapshot{}, Manifest{}, err
	}
	payloads := make([][]byte, len(m.Buckets))
	g, gctx := errgroup.WithContext(ctx)
	for i, bucket := range m.Buckets {
		g.Go(func() error {
			data, err := a.read(gctx, objectKey(id, bucket+".json"))
			if err != nil {
				return fmt.Errorf("read %s: %w", bucket, err)
			}
			payloads[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Snapshot{}, Manifest{}, err
	}
	var snapshot domain.Snapshot
	for i, bucket := range m.Buckets {
		if err := persistence.DecodeBucket(&snapshot, bucket, payloads[i]); err != nil {
			return domain.Snapshot{}, Manifest{}, err
		}
	}
	return snapshot, m, nil
}

// Link returns a time-limited URL for the archive manifest.
func (a *Archiver) Link(ctx context.Context, id string, expiry time.Duration) (string, error) {
	if _, err := a.store.Head(ctx, objectKey(id, manifestName)); err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return "", err
	}
	return a.store.PresignURL(ctx, objectKey(id, manifestName), blob.SignedURLOptions{Expiry: expiry})
}

func (a *Archiver) read(ctx context.Context, key string) ([]byte, error) {
	_, rc, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}
