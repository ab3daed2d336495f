// Package site serves the embedded demo page.
package site

import (
	"context"
	"net/http"
)

// Register attaches the embedded demo site to mux at the root path.
// The file server owns every path no other handler claims, so missing
// assets answer 404 from here.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.Handle("/", http.FileServer(FS()))
}
