// Package archive reads and writes the archive formats handled by the
// assembler without shelling out to jar or tar.
//
// Extract understands zip/jar, tar, tar.gz and tar.zst (detected from the
// header) and can strip leading path components, validating that a single
// top-level directory exists. CreateZip produces a manifest-less zip of a
// directory, and ExtractMatching/RewriteZip let callers patch entries of a
// jar in place.
package archive
