// Package publish mirrors the local derivatives and the export view into an
// S3-compatible bucket.
//
// A publish run lists the bucket once, uploads derivatives that are missing or
// whose size changed, always re-uploads the export and removes derivative
// objects that no longer exist locally. Objects outside the preview and
// thumbnail folders are never touched.
package publish
