// Package derivative renders size-bounded WebP copies of originals and computes
// the dominant colour summary stored with each file record.
//
// Two kinds exist. Preview fits 2000x2000 at quality 80, Thumbnail fits 500x1000
// at quality 70. Both preserve aspect ratio and never upscale.
package derivative
