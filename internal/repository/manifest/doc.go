// Package manifest persists assembly manifests next to the archives they describe.
package manifest
