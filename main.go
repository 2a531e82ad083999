// Command annotator marks facial landmarks on patient photographs and exports them as
// annotation documents.
package main

import (
	"os"

	"github.com/xiaomayi-bee/CleftLip/internal/app"
	"github.com/xiaomayi-bee/CleftLip/ui/mainwindow"
)

func main() {
	os.Exit(app.Run("annotator", mainwindow.ModeAuthoring, os.Args[1:]))
}
