// Package pathutil provides path and name validation utilities for resolved
// data files.
package pathutil

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/datapipe-project/datapipe/pkg/errclass"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ValidateName checks that name is a single safe path component.
func ValidateName(name string) error {
	if name == "" {
		return errclass.ErrNameInvalid.WithMessage("name must not be empty")
	}

	name = norm.NFC.String(name)

	if name == ".." || strings.Contains(name, "..") {
		return errclass.ErrNameInvalid.WithMessagef("name must not contain '..': %s", name)
	}

	if strings.ContainsAny(name, "/\\") {
		return errclass.ErrNameInvalid.WithMessagef("name must not contain separators: %s", name)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return errclass.ErrNameInvalid.WithMessagef("name must not contain control characters: %q", name)
		}
	}

	if !nameRegex.MatchString(name) {
		return errclass.ErrNameInvalid.WithMessagef("name must match [a-zA-Z0-9._-]+: %s", name)
	}

	return nil
}

// ValidateExtension checks a file extension used to generate filenames.
func ValidateExtension(ext string) error {
	if strings.HasPrefix(ext, ".") {
		return errclass.ErrNameInvalid.WithMessagef("extension must not start with '.': %s", ext)
	}
	if err := ValidateName(ext); err != nil {
		return errclass.ErrNameInvalid.WithMessagef("invalid extension %q", ext)
	}
	return nil
}

// NormalisePath resolves p against parent unless p is already absolute.
// Both are NFC-normalised so catalog entries written on different platforms
// name the same file.
func NormalisePath(parent, p string) string {
	p = norm.NFC.String(p)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(norm.NFC.String(parent), filepath.FromSlash(p))
}

// ValidatePathSafety verifies target path does not escape root.
func ValidatePathSafety(root, targetPath string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return errclass.ErrPathEscape.WithMessagef("cannot resolve data directory: %v", err)
	}
	targetPath, err = filepath.Abs(targetPath)
	if err != nil {
		return errclass.ErrPathEscape.WithMessagef("cannot resolve target: %v", err)
	}

	resolvedRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		if !os.IsNotExist(err) {
			return errclass.ErrPathEscape.WithMessagef("cannot resolve data directory: %v", err)
		}
		resolvedRoot = resolveClosestAncestor(root)
	}

	// Try resolving target; if it doesn't exist, resolve closest ancestor
	resolvedTarget, err := filepath.EvalSymlinks(targetPath)
	if err != nil {
		if os.IsNotExist(err) {
			resolvedTarget = resolveClosestAncestor(targetPath)
		} else {
			return errclass.ErrPathEscape.WithMessagef("cannot resolve target: %v", err)
		}
	}

	if !strings.HasPrefix(resolvedTarget+"/", resolvedRoot+"/") &&
		resolvedTarget != resolvedRoot {
		return errclass.ErrPathEscape.WithMessagef("path escapes data directory: %s", targetPath)
	}

	return nil
}

// resolveClosestAncestor walks up from path to find the closest existing
// ancestor, resolves it, then appends the remaining components.
func resolveClosestAncestor(path string) string {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if dir == path {
		return path
	}

	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		if os.IsNotExist(err) {
			resolved = resolveClosestAncestor(dir)
		} else {
			return path
		}
	}
	return filepath.Join(resolved, base)
}
