// Package fileops provides crash-safe file writes and path validation helpers.
//
// # Atomic Writes
//
// AtomicWriteFile is the only sanctioned way to rewrite a file that other
// readers may open concurrently. The data is written to a temporary file in
// the destination directory, synced, and renamed over the destination:
//
//	if err := fileops.AtomicWriteFile(path, data, 0o600); err != nil {
//	    return fmt.Errorf("persist users: %w", err)
//	}
//	// Readers observe either the old file or the new one, never a partial write.
//
// A rename is atomic only within one filesystem, which is why the temporary
// file always lives next to the destination.
//
// # Validation
//
// Files loaded from user-configurable directories should be checked in this
// order before being read:
//
//  1. ValidatePathSecurity: rejects traversal in the relative path
//  2. ValidateFileSizeLimit: bounds memory use
//  3. ValidateFileInDirectory: confirms the resolved file stays inside its root
//
// SanitizeIdentifier turns free-form names into safe identifiers.
package fileops
