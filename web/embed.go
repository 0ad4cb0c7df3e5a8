// Package web carries the embedded HTML templates for the site.
package web

import "embed"

// Templates holds every page template under templates/.
//
//go:embed templates/*.html
var Templates embed.FS
