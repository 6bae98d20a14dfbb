package assets

import (
	"fmt"
	"strings"
)

// StyleLoader loads CSS styles by name.
// Implementations may load from embedded assets or a directory on disk.
type StyleLoader interface {
	// LoadStyle loads a CSS style by name (without .css extension).
	// Returns ErrStyleNotFound if the style doesn't exist.
	// Returns ErrInvalidAssetName if the name contains invalid characters.
	LoadStyle(name string) (string, error)
}

// ValidateAssetName checks that name can be used as a style file stem.
// Path separators and dots are rejected so a name never escapes the
// styles directory or picks another extension.
func ValidateAssetName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAssetName)
	}
	if strings.ContainsAny(name, "/\\.") {
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	return nil
}
