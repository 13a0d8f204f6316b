// Package common holds helpers shared by several services.
//
// It detects the current system actor (hostname/username) for the assembly
// manifest, computes archive checksums and checks whether a process is alive.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
