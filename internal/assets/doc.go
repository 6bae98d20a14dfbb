// Package assets provides the stylesheets applied to rendered documents.
//
// # Loader Architecture
//
//	StyleLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - bundled styles compiled into the binary
//	    ├── FilesystemLoader  - styles from a user directory on disk
//	    └── Resolver          - custom directory first, bundled as fallback
//
// Two styles are bundled: the default theme ("whitey") and a compatibility
// layer ("pandoc-compat") that maps pandoc's HTML structure (div.sourceCode,
// figure, section.footnotes) onto the theme.
//
// # Directory Structure
//
//	{basePath}/
//	└── styles/
//	    └── {name}.css
//
// # Run Stylesheet
//
// The renderer accepts a single stylesheet per document. Stylesheet combines
// the theme and the compatibility layer once per run, and WriteStylesheet
// stores the result in a temporary file passed to every render.
//
// # Security
//
// Style names are validated to prevent path traversal.
// FilesystemLoader resolves symlinks and verifies paths stay within basePath.
package assets
