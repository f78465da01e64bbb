// Command mdview shows a Markdown file in the terminal.
//
//	mdview [flags] FILE
//
// Use - as FILE to read standard input. The theme is read from
// $XDG_CONFIG_HOME/mdview/theme.yaml when present, and the scroll position and
// search of every file are remembered in history.json next to it.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/csams/mdkit/internal/history"
	"github.com/csams/mdkit/internal/markdown"
	"github.com/csams/mdkit/internal/theme"
	"github.com/csams/mdkit/internal/viewer"
	"github.com/gdamore/tcell/v2"
	"github.com/npillmayer/schuko/schukonf/testconfig"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/npillmayer/schuko/tracing/trace2go"
)

func tracer() tracing.Trace {
	return tracing.Select("mdkit.viewer")
}

func main() {
	themePath := flag.String("theme", "", "theme file (default: theme.yaml in the config directory)")
	noAutoLinks := flag.Bool("no-autolinks", false, "do not turn bare URLs into links")
	writeTheme := flag.Bool("write-theme", false, "write the default theme to the config directory and exit")
	tlevel := flag.String("trace", "Error", "trace level [Debug|Info|Error]")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] FILE\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := setupTracing(*tlevel); err != nil {
		fmt.Fprintf(os.Stderr, "error configuring tracing: %v\n", err)
		os.Exit(1)
	}

	configDir := defaultConfigDir()
	if *writeTheme {
		path, err := theme.WriteDefault(configDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(path)
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	th, err := loadTheme(*themePath, configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	name := flag.Arg(0)
	source, err := readSource(name)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	opts := []markdown.Option{markdown.WithTheme(th)}
	if *noAutoLinks {
		opts = append(opts, markdown.WithAutomaticLinkDetection(false))
	}
	parser := markdown.New(opts...)

	if err := run(parser, th, configDir, name, source); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(parser *markdown.Parser, th *theme.Theme, configDir, name, source string) error {
	s, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := s.Init(); err != nil {
		return err
	}
	defer s.Fini()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	v := viewer.New(s, parser, th, filepath.Base(name), source)

	hist := loadHistory(configDir)
	if hist != nil && name != "-" {
		if e, ok := hist.Get(name); ok {
			v.Search(e.Query)
			v.ScrollTo(e.Offset)
		}
	}

	if err := v.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	if hist != nil && name != "-" {
		hist.Record(name, v.Offset(), v.Query(), time.Now())
		if err := hist.Save(); err != nil {
			tracer().Errorf("failed to save history: %v", err)
		}
	}
	return nil
}

func loadHistory(configDir string) *history.History {
	h, err := history.Load(configDir)
	if err != nil {
		tracer().Errorf("failed to load history, positions will not be restored: %v", err)
		return nil
	}
	return h
}

// setupTracing routes all tracers to the go log adapter at the given level.
func setupTracing(level string) error {
	tracing.RegisterTraceAdapter("go", gologadapter.GetAdapter(), false)
	conf := testconfig.Conf{
		"tracing.adapter":      "go",
		"trace.mdkit.history":  level,
		"trace.mdkit.markdown": level,
		"trace.mdkit.theme":    level,
		"trace.mdkit.search":   level,
		"trace.mdkit.viewer":   level,
	}
	if err := trace2go.ConfigureRoot(conf, "trace", trace2go.ReplaceTracers(true)); err != nil {
		return err
	}
	tracing.SetTraceSelector(trace2go.Selector())
	return nil
}

func defaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		tracer().Errorf("failed to get config directory: %v", err)
		dir = "."
	}
	return filepath.Join(dir, "mdview")
}

func loadTheme(path, configDir string) (*theme.Theme, error) {
	if path != "" {
		return theme.Load(path)
	}
	return theme.LoadDir(configDir)
}

func readSource(name string) (string, error) {
	if name == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(name)
	return string(data), err
}
