// Package inventory enumerates original assets on local storage.
//
// Files are expected to be named "{imageId}_p{part}.{ext}". A scan groups files by
// (imageId, part): unique groups become Entries, groups with several extensions
// become Conflicts that must be resolved explicitly through a Resolver.
//
// # Resolvers
//
//   - LargestFile: keep the biggest file (default for non-interactive runs).
//   - FirstCandidate: keep the first candidate in name order.
//   - Prompt: ask on a terminal; empty or invalid input keeps index 0.
package inventory
