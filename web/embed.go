package web

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html
var embedded embed.FS

// TemplatesFS exposes the embedded page templates.
func TemplatesFS() fs.FS {
	return embedded
}
