package api

import (
	"embed"
	"io/fs"
)

//go:embed static
var staticFS embed.FS

// dashboardFS is rooted at static/ so handlers address files by bare name.
var dashboardFS fs.FS = func() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return staticFS
	}
	return sub
}()
