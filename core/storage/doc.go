// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client behind the Client interface so the publisher can be
// tested with the hand-written mocks in core/storage/mocks. Both AWS S3 and
// self-hosted MinIO endpoints are supported.
//
// # Operations
//
//   - BucketExists / MakeBucket: make sure the target bucket is there.
//   - PutObject: upload a derivative or the export.
//   - ListObjects: list everything under the configured prefix in one pass.
//   - RemoveObjects: batch delete stale objects.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	exists, err := client.BucketExists(ctx, cfg.Storage.Bucket)
package storage
