// Package pipeline provides the conversion backends used per document.
//
// A Converter turns a Markdown file into a standalone HTML document:
//   - PandocConverter shells out to pandoc (default)
//   - GoldmarkConverter converts in-process with goldmark and chroma
//
// A Renderer turns an HTML file into a PDF file:
//   - WkhtmltopdfRenderer shells out to wkhtmltopdf (default)
//   - ChromeRenderer prints through headless Chrome via go-rod
//
// Backends only know about single files. Sequencing, retries and cleanup
// belong to the root batchpdf package.
package pipeline
