// Package objectstore publishes assembled archives to an S3-compatible bucket.
package objectstore
