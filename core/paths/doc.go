// Package paths describes the on-disk layout owned by the collection engine:
// the original, preview and thumbnail directories plus the snapshot and export files.
//
// Filenames inside the asset directories follow "{imageId}_p{part}.{ext}" for originals
// and "{imageId}_p{part}.webp" for derivatives. Directories are created on demand by Ensure.
package paths
