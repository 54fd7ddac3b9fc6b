package grocery

import (
	"embed"
	"io/fs"
)

//go:embed static
var staticFiles embed.FS

var (
	indexHTML = mustReadStatic("static/index.html")
	appCSS    = mustReadStatic("static/app.css")
	appJS     = mustReadStatic("static/app.js")
)

func mustReadStatic(name string) []byte {
	data, err := staticFiles.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return data
}

// getControllersFS returns the embedded controllers filesystem
func getControllersFS() fs.FS {
	fsys, err := fs.Sub(staticFiles, "static/controllers")
	if err != nil {
		panic(err)
	}
	return fsys
}
