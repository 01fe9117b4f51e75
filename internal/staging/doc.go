// Package staging owns the per-job directory tree under the storage root:
// uploaded frames, the transient manifest, and the encoded output, plus the
// periodic sweep that reclaims directories of finished jobs.
package staging
