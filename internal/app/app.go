// Package app starts the annotation and review GUIs: flags, configuration, logging, the
// landmark catalog, preferences and the main window.
package app

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"

	"github.com/xiaomayi-bee/CleftLip/internal/catalog"
	"github.com/xiaomayi-bee/CleftLip/internal/config"
	"github.com/xiaomayi-bee/CleftLip/internal/logging"
	"github.com/xiaomayi-bee/CleftLip/internal/version"
	"github.com/xiaomayi-bee/CleftLip/ui/mainwindow"
	"github.com/xiaomayi-bee/CleftLip/ui/prefs"
)

// AppID identifies the application to fyne's preference and storage layers.
const AppID = "com.xiaomayi.cleftlip"

// Options are the parsed command line.
type Options struct {
	ConfigPath  string
	CatalogName string
	CatalogPath string
	LogLevel    string
	Watch       bool
	ShowVersion bool
	ImagePath   string
	Document    string
}

// ParseArgs parses the command line of the named program.
func ParseArgs(program string, args []string, stderr io.Writer) (Options, error) {
	var o Options
	fs := flag.NewFlagSet(program, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.ConfigPath, "config", "", "configuration file (default: "+config.FileName+" if present)")
	fs.StringVar(&o.CatalogName, "catalog", "", "registered landmark catalog name")
	fs.StringVar(&o.CatalogPath, "catalog-file", "", "YAML landmark catalog definition")
	fs.StringVar(&o.LogLevel, "log-level", "", "override the configured log level")
	fs.BoolVar(&o.Watch, "watch", false, "offer a restart when the binary is rebuilt")
	fs.BoolVar(&o.ShowVersion, "version", false, "print version and exit")
	fs.StringVar(&o.Document, "annotation", "", "annotation JSON to open with the image")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] [image]\n", program)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 1 {
		return o, fmt.Errorf("expected at most one image, got %d", fs.NArg())
	}
	o.ImagePath = fs.Arg(0)
	return o, nil
}

// Run starts a GUI in the given mode and blocks until it exits. It returns the process
// exit code.
func Run(program string, mode mainwindow.Mode, args []string) int {
	opts, err := ParseArgs(program, args, os.Stderr)
	if err == flag.ErrHelp {
		return 0
	}
	if err != nil {
		return 2
	}
	if opts.ShowVersion {
		fmt.Println(version.String(program))
		return 0
	}

	profile := config.ProfileAuthoring
	if mode == mainwindow.ModeReview {
		profile = config.ProfileReview
	}
	cfg, err := config.Load(profile, opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", program, err)
		return 1
	}

	logCfg := cfg.LogConfig()
	if opts.LogLevel != "" {
		logCfg.Level = opts.LogLevel
	}
	logging.Init(logCfg)
	log := logging.With().Str("program", program).Logger()
	log.Info().Str("version", version.Version).Str("profile", string(profile)).Msg("starting")

	name, path := cfg.Catalog.Name, cfg.Catalog.Path
	if opts.CatalogName != "" {
		name, path = opts.CatalogName, ""
	}
	if opts.CatalogPath != "" {
		path = opts.CatalogPath
	}
	cat, err := catalog.Resolve(name, path)
	if err != nil {
		log.Error().Err(err).Msg("failed to load landmark catalog")
		return 1
	}

	a := fyneapp.NewWithID(AppID)
	a.Settings().SetTheme(NewTheme())

	win := mainwindow.New(a, mainwindow.Options{
		Mode:    mode,
		Config:  cfg,
		Catalog: cat,
		Prefs:   prefs.Load(),
	})

	if opts.ImagePath != "" {
		if err := win.OpenImage(opts.ImagePath); err != nil {
			log.Error().Err(err).Str("path", opts.ImagePath).Msg("failed to open image")
			dialog.ShowError(err, win.Window)
		} else if opts.Document != "" {
			if err := win.OpenDocument(opts.Document); err != nil {
				log.Error().Err(err).Str("path", opts.Document).Msg("failed to open annotation")
				dialog.ShowError(err, win.Window)
			}
		}
	}

	if opts.Watch {
		setupBinaryWatch(win)
	}

	win.ShowAndRun()
	win.SavePreferences()
	return 0
}

// setupBinaryWatch offers a restart when the executable is rebuilt.
func setupBinaryWatch(win *mainwindow.MainWindow) {
	log := logging.With().Str("component", "watch").Logger()
	w, err := NewBinaryWatcher(2 * time.Second)
	if err != nil {
		log.Warn().Err(err).Msg("binary watch unavailable")
		return
	}
	log.Info().Str("path", w.ExecPath()).Time("modified", w.Baseline()).Msg("watching binary")

	w.OnTick(win.SavePreferences)
	w.OnNewBinary(func() {
		dialog.ShowConfirm("New Version Available", "The application binary has been updated.\nRestart now?", func(ok bool) {
			if !ok {
				w.ResetBaseline()
				w.Start()
				return
			}
			win.SavePreferences()
			if err := w.Restart(); err != nil {
				log.Error().Err(err).Msg("restart failed")
				dialog.ShowError(err, win.Window)
			}
		}, win.Window)
	})
	w.Start()

	win.SetOnClosed(func() { w.Stop() })
}
