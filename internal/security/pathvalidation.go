// Package security validates filesystem paths supplied by the operator
// before the tool writes reports or databases through them.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidatePathWithinDirectory rejects paths that resolve outside safeDir,
// including escapes through symlinks. The path itself need not exist yet;
// the nearest existing ancestor is resolved instead.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	absSafeDir, err := filepath.Abs(safeDir)
	if err != nil {
		return fmt.Errorf("resolve safe directory: %w", err)
	}

	canonicalPath := absPath
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		canonicalPath = resolved
	} else {
		// The target does not exist yet. Resolve the nearest existing
		// ancestor so a symlinked parent cannot smuggle the write elsewhere.
		checkPath := absPath
		for {
			parentDir := filepath.Dir(checkPath)
			if parentDir == checkPath {
				break
			}
			if resolved, err := filepath.EvalSymlinks(parentDir); err == nil {
				relToParent, _ := filepath.Rel(parentDir, absPath)
				canonicalPath = filepath.Join(resolved, relToParent)
				break
			}
			checkPath = parentDir
		}
	}

	canonicalSafeDir, err := filepath.EvalSymlinks(absSafeDir)
	if err != nil {
		return fmt.Errorf("resolve safe directory symlinks: %w", err)
	}

	relPath, err := filepath.Rel(canonicalSafeDir, canonicalPath)
	if err != nil {
		return fmt.Errorf("path is outside safe directory: %w", err)
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) || filepath.IsAbs(relPath) {
		return fmt.Errorf("path traversal detected: %s attempts to escape %s", filePath, safeDir)
	}
	return nil
}

// ValidatePathWithinAllowedDirs accepts a path that sits inside any one of
// the allowed directories.
func ValidatePathWithinAllowedDirs(filePath string, allowedDirs []string) error {
	if len(allowedDirs) == 0 {
		return fmt.Errorf("no allowed directories specified")
	}
	for _, dir := range allowedDirs {
		if err := ValidatePathWithinDirectory(filePath, dir); err == nil {
			return nil
		}
	}
	return fmt.Errorf("path must be within one of the allowed directories: %v", allowedDirs)
}

// ValidateExportPath restricts report and database writes to the working
// directory or the system temp directory.
func ValidateExportPath(filePath string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	return ValidatePathWithinAllowedDirs(filePath, []string{os.TempDir(), cwd})
}

// SanitizeFilename makes a safe filename component from an arbitrary string,
// such as a session identifier embedded in a report directory name. Anything
// outside ASCII letters, digits, dot, underscore, or dash becomes a single
// underscore; the result is trimmed and capped at 128 bytes.
func SanitizeFilename(s string) string {
	const maxLen = 128
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
