package fileops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidatePathSecurity rejects relative paths that are empty, absolute, or try
// to climb out of their root with ".." segments. It does not touch the filesystem.
//
// Usage example:
//
//	if err := fileops.ValidatePathSecurity("../../etc/passwd"); err != nil {
//	    return err
//	}
func ValidatePathSecurity(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path cannot be empty")
	}

	if filepath.IsAbs(path) {
		return fmt.Errorf("absolute paths not allowed")
	}

	// Check for path traversal in raw input
	if strings.Contains(path, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	cleanPath := filepath.Clean(path)
	if strings.HasPrefix(cleanPath, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	return nil
}

// ValidateFileInDirectory ensures filePath is a regular file located inside baseDir,
// following symlinks so a link cannot point outside the directory.
//
// Parameters:
//   - filePath: File path to check (absolute or relative to the working directory)
//   - baseDir: Directory the file must stay within
//
// Returns:
//   - error: Containment, existence or type errors
func ValidateFileInDirectory(filePath, baseDir string) error {
	absBaseDir, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("cannot resolve base directory: %w", err)
	}
	absFilePath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("cannot resolve file path: %w", err)
	}

	if !isWithin(absBaseDir, absFilePath) {
		return fmt.Errorf("file is not within base directory")
	}

	fileInfo, err := os.Stat(absFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", filepath.Base(filePath))
		}
		return fmt.Errorf("cannot access file: %w", err)
	}
	if fileInfo.IsDir() {
		return fmt.Errorf("path is a directory, not a file")
	}

	// Compare resolved locations so symlinks on either side are handled.
	resolvedBase, err := filepath.EvalSymlinks(absBaseDir)
	if err != nil {
		return fmt.Errorf("cannot resolve base directory: %w", err)
	}
	resolvedFile, err := filepath.EvalSymlinks(absFilePath)
	if err != nil {
		return fmt.Errorf("cannot resolve symlink: %w", err)
	}
	if !isWithin(resolvedBase, resolvedFile) {
		return fmt.Errorf("symlink resolves outside base directory")
	}

	return nil
}

func isWithin(baseDir, target string) bool {
	relPath, err := filepath.Rel(baseDir, target)
	if err != nil {
		return false
	}
	return relPath != ".." && !strings.HasPrefix(relPath, ".."+string(filepath.Separator))
}

// ValidateFileSizeLimit checks that filePath is a regular file no larger than maxSize bytes.
func ValidateFileSizeLimit(filePath string, maxSize int64) error {
	if maxSize <= 0 {
		return fmt.Errorf("invalid size limit: %d", maxSize)
	}

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", filepath.Base(filePath))
		}
		return fmt.Errorf("cannot access file: %w", err)
	}

	if fileInfo.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filePath)
	}

	if fileInfo.Size() > maxSize {
		return fmt.Errorf("file size %d bytes exceeds limit %d bytes", fileInfo.Size(), maxSize)
	}

	return nil
}

// SanitizeIdentifier reduces identifier to letters, digits, '-', '_' and '.',
// turning whitespace runs into a single underscore and trimming separators.
// maxLength <= 0 disables truncation.
//
// Usage example:
//
//	clean, err := fileops.SanitizeIdentifier("code review #2", 50)
//	// clean == "code_review_2"
func SanitizeIdentifier(identifier string, maxLength int) (string, error) {
	if strings.TrimSpace(identifier) == "" {
		return "", fmt.Errorf("identifier cannot be empty")
	}

	var cleanName strings.Builder
	pendingSeparator := false

	for _, r := range strings.TrimSpace(identifier) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '-' || r == '_' || r == '.':
			if pendingSeparator && cleanName.Len() > 0 {
				cleanName.WriteRune('_')
			}
			pendingSeparator = false
			cleanName.WriteRune(r)
		case r == ' ' || r == '\t':
			pendingSeparator = true
		}
	}

	result := cleanName.String()
	if maxLength > 0 && len(result) > maxLength {
		result = result[:maxLength]
	}

	result = strings.Trim(result, "_-.")
	if result == "" {
		return "", fmt.Errorf("identifier becomes empty after sanitization")
	}

	return result, nil
}
