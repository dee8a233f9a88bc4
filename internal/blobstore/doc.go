// Package blobstore holds the raw audio payloads that are too large for the
// records store. Blobs live on disk, keyed by the owning audio record's ID,
// with a JSON sidecar for metadata. At most one blob exists per recording;
// Store refuses to overwrite.
package blobstore
