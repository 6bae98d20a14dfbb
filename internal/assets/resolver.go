package assets

import "errors"

// Resolver combines a custom directory loader with the bundled styles.
// A style found in the custom directory shadows the bundled one.
type Resolver struct {
	custom   StyleLoader // nil if no custom directory configured
	embedded StyleLoader
}

// NewResolver creates a Resolver.
// An empty customBasePath uses bundled styles only.
func NewResolver(customBasePath string) (*Resolver, error) {
	r := &Resolver{embedded: NewEmbeddedLoader()}

	if customBasePath != "" {
		fsLoader, err := NewFilesystemLoader(customBasePath)
		if err != nil {
			return nil, err
		}
		r.custom = fsLoader
	}

	return r, nil
}

// LoadStyle loads a style, trying the custom directory first.
// Only a not-found error falls back; validation and I/O errors are returned.
func (r *Resolver) LoadStyle(name string) (string, error) {
	if r.custom == nil {
		return r.embedded.LoadStyle(name)
	}

	content, err := r.custom.LoadStyle(name)
	if err == nil {
		return content, nil
	}
	if !errors.Is(err, ErrStyleNotFound) {
		return "", err
	}
	return r.embedded.LoadStyle(name)
}

// HasCustomLoader reports whether a custom directory is configured.
func (r *Resolver) HasCustomLoader() bool {
	return r.custom != nil
}

// Compile-time interface check.
var _ StyleLoader = (*Resolver)(nil)
