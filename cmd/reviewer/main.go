// Command reviewer displays an annotated photograph read-only and records an approve or
// reject decision in its annotation document.
//
// Usage:
//
//	reviewer [flags] photo.jpg            # opens photo.json next to it when present
//	reviewer -annotation a.json photo.jpg
package main

import (
	"os"

	"github.com/xiaomayi-bee/CleftLip/internal/app"
	"github.com/xiaomayi-bee/CleftLip/ui/mainwindow"
)

func main() {
	os.Exit(app.Run("reviewer", mainwindow.ModeReview, os.Args[1:]))
}
