package publish

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"collection-manager/core/paths"
	"collection-manager/core/storage"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	previewFolder   = "preview"
	thumbnailFolder = "thumbnail"
)

// Report summarizes one publish run.
type Report struct {
	Uploaded  int      `json:"uploaded"`
	Unchanged int      `json:"unchanged"`
	Removed   int      `json:"removed"`
	Failed    []string `json:"failed"`
}

// Publisher uploads the collection to object storage.
type Publisher struct {
	client storage.Client
	cfg    storage.Config
	fs     afero.Fs
	paths  paths.Config
	logger *zap.Logger
}

// NewPublisher creates a publisher for cfg.Bucket.
func NewPublisher(client storage.Client, cfg storage.Config, fs afero.Fs, p paths.Config, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{client: client, cfg: cfg, fs: fs, paths: p, logger: logger}
}

type localObject struct {
	path        string
	size        int64
	contentType string
	always      bool
}

// Publish runs one mirror pass. Per-object failures are recorded in the report;
// listing or bucket errors abort the run.
func (p *Publisher) Publish(ctx context.Context) (*Report, error) {
	if err := p.ensureBucket(ctx); err != nil {
		return nil, err
	}

	remote, err := p.listRemote(ctx)
	if err != nil {
		return nil, err
	}

	local, err := p.listLocal()
	if err != nil {
		return nil, err
	}

	report := &Report{}
	keys := make([]string, 0, len(local))
	for key := range local {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		obj := local[key]
		if info, ok := remote[key]; ok && !obj.always && p.unchanged(obj, info) {
			report.Unchanged++
			continue
		}
		if err := p.upload(ctx, key, obj); err != nil {
			p.logger.Error("Failed to upload object", zap.String("key", key), zap.Error(err))
			report.Failed = append(report.Failed, key)
			continue
		}
		p.logger.Debug("Uploaded object", zap.String("key", key), zap.Int64("size", obj.size))
		report.Uploaded++
	}

	var stale []string
	for key := range remote {
		if _, ok := local[key]; ok {
			continue
		}
		if p.isDerivativeKey(key) {
			stale = append(stale, key)
		}
	}
	sort.Strings(stale)
	if len(stale) > 0 {
		p.remove(ctx, stale, report)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	p.logger.Info("Publish finished",
		zap.String("bucket", p.cfg.Bucket),
		zap.Int("uploaded", report.Uploaded),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("removed", report.Removed),
		zap.Int("failed", len(report.Failed)),
	)
	return report, nil
}

func (p *Publisher) ensureBucket(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", p.cfg.Bucket, err)
	}
	if exists {
		return nil
	}
	p.logger.Info("Creating bucket", zap.String("bucket", p.cfg.Bucket))
	if err := p.client.MakeBucket(ctx, p.cfg.Bucket, minio.MakeBucketOptions{Region: p.cfg.Region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", p.cfg.Bucket, err)
	}
	return nil
}

// listRemote returns object listings keyed by object name under the configured prefix.
func (p *Publisher) listRemote(ctx context.Context) (map[string]minio.ObjectInfo, error) {
	prefix := storage.ObjectKey(p.cfg.Prefix)
	if prefix != "" {
		prefix += "/"
	}

	objects := make(map[string]minio.ObjectInfo)
	for obj := range p.client.ListObjects(ctx, p.cfg.Bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list bucket %s: %w", p.cfg.Bucket, obj.Err)
		}
		objects[obj.Key] = obj
	}
	return objects, nil
}

// unchanged reports whether the remote object already holds the local bytes.
// Sizes must match and the ETag must equal the local MD5. Multipart ETags
// carry no content hash, so such objects are uploaded again.
func (p *Publisher) unchanged(obj localObject, info minio.ObjectInfo) bool {
	if info.Size != obj.size {
		return false
	}
	etag := strings.Trim(info.ETag, `"`)
	if etag == "" || strings.Contains(etag, "-") {
		return false
	}
	sum, err := p.md5(obj.path)
	if err != nil {
		p.logger.Warn("Failed to hash local object", zap.String("path", obj.path), zap.Error(err))
		return false
	}
	return strings.EqualFold(etag, sum)
}

func (p *Publisher) md5(path string) (string, error) {
	f, err := p.fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// listLocal collects the derivatives and the export file keyed by object name.
func (p *Publisher) listLocal() (map[string]localObject, error) {
	objects := make(map[string]localObject)

	for folder, dir := range map[string]string{previewFolder: p.paths.Preview, thumbnailFolder: p.paths.Thumbnail} {
		infos, err := afero.ReadDir(p.fs, dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", dir, err)
		}
		for _, info := range infos {
			if info.IsDir() || !strings.EqualFold(filepath.Ext(info.Name()), ".webp") {
				continue
			}
			objects[storage.ObjectKey(p.cfg.Prefix, folder, info.Name())] = localObject{
				path:        filepath.Join(dir, info.Name()),
				size:        info.Size(),
				contentType: "image/webp",
			}
		}
	}

	info, err := p.fs.Stat(p.paths.ExportFile)
	switch {
	case err == nil:
		objects[storage.ObjectKey(p.cfg.Prefix, filepath.Base(p.paths.ExportFile))] = localObject{
			path:        p.paths.ExportFile,
			size:        info.Size(),
			contentType: "application/json",
			always:      true,
		}
	case os.IsNotExist(err):
		p.logger.Warn("Export file not found, skipping", zap.String("path", p.paths.ExportFile))
	default:
		return nil, fmt.Errorf("failed to stat export %s: %w", p.paths.ExportFile, err)
	}

	return objects, nil
}

func (p *Publisher) upload(ctx context.Context, key string, obj localObject) error {
	f, err := p.fs.Open(obj.path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", obj.path, err)
	}
	defer f.Close()

	_, err = p.client.PutObject(ctx, p.cfg.Bucket, key, f, obj.size, minio.PutObjectOptions{ContentType: obj.contentType})
	return err
}

// remove deletes keys in one batch. Keys never handed to the client because
// ctx ended are counted neither as removed nor as failed.
func (p *Publisher) remove(ctx context.Context, keys []string, report *Report) {
	var mu sync.Mutex
	sent := make(map[string]struct{}, len(keys))

	objectsCh := make(chan minio.ObjectInfo)
	go func() {
		defer close(objectsCh)
		for _, key := range keys {
			if ctx.Err() != nil {
				return
			}
			mu.Lock()
			sent[key] = struct{}{}
			mu.Unlock()
			select {
			case objectsCh <- minio.ObjectInfo{Key: key}:
			case <-ctx.Done():
				mu.Lock()
				delete(sent, key)
				mu.Unlock()
				return
			}
		}
	}()

	failed := make(map[string]struct{})
	for rErr := range p.client.RemoveObjects(ctx, p.cfg.Bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		p.logger.Error("Failed to remove object", zap.String("key", rErr.ObjectName), zap.Error(rErr.Err))
		failed[rErr.ObjectName] = struct{}{}
	}

	mu.Lock()
	defer mu.Unlock()
	for _, key := range keys {
		if _, ok := failed[key]; ok {
			report.Failed = append(report.Failed, key)
			continue
		}
		if _, ok := sent[key]; !ok {
			continue
		}
		p.logger.Debug("Removed stale object", zap.String("key", key))
		report.Removed++
	}
}

func (p *Publisher) isDerivativeKey(key string) bool {
	for _, folder := range []string{previewFolder, thumbnailFolder} {
		if strings.HasPrefix(key, storage.ObjectKey(p.cfg.Prefix, folder)+"/") {
			return true
		}
	}
	return false
}
