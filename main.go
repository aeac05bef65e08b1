package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dot5enko/virtual-grid/grid"
	"github.com/dot5enko/virtual-grid/layoutfile"
	"github.com/dot5enko/virtual-grid/render"
	"github.com/dot5enko/virtual-grid/schema"
	"github.com/dot5enko/virtual-grid/sqlstore"
	"github.com/dot5enko/virtual-grid/tui"
	"github.com/dot5enko/virtual-grid/window"
	"github.com/fatih/color"
)

type options struct {
	dbPath    string
	parentID  string
	seed      int
	layoutDir string
	logPath   string
	headless  int
	debug     bool
}

func parseFlags() options {

	opts := options{}

	flag.StringVar(&opts.dbPath, "db", "grid.db", "sqlite database path")
	flag.StringVar(&opts.parentID, "parent", "quote-1", "parent entity whose rows are shown")
	flag.IntVar(&opts.seed, "seed", 0, "insert N demo rows under the parent before opening")
	flag.StringVar(&opts.layoutDir, "layout", "", "store column layouts as files under this directory instead of sqlite")
	flag.StringVar(&opts.logPath, "log", "grid.log", "log file")
	flag.IntVar(&opts.headless, "headless", 0, "print the first N rows and exit instead of starting the ui")
	flag.BoolVar(&opts.debug, "debug", false, "debug logging and state dumps")

	flag.Parse()

	return opts
}

func setupLogging(opts options) (*os.File, error) {

	f, err := os.OpenFile(opts.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if opts.debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})))
	log.SetOutput(f)

	return f, nil
}

func main() {

	opts := parseFlags()

	logFile, err := setupLogging(opts)
	if err != nil {
		color.Red("unable to open log file %s : %s", opts.logPath, err.Error())
		os.Exit(1)
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logFile); err != nil {
		color.Red("%s", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logFile *os.File) error {

	store, err := sqlstore.Open(opts.dbPath, slog.Default())
	if err != nil {
		return err
	}
	defer store.Close()

	if opts.seed > 0 {
		before := time.Now()

		if err := store.Seed(ctx, opts.parentID, opts.seed, uint64(before.UnixNano())); err != nil {
			return err
		}

		color.Green(" seeded %d rows under %s in %s", opts.seed, opts.parentID, time.Since(before).String())
	}

	var layouts grid.ColumnPersistence = store.Layouts()

	if opts.layoutDir != "" {
		files := layoutfile.NewLayoutManager(opts.layoutDir)

		n, err := files.Preload()
		if err != nil {
			return fmt.Errorf("unable to preload layouts: %w", err)
		}
		slog.Info("layout files preloaded", "count", n, "dir", opts.layoutDir)

		layouts = files
	}

	table, err := grid.Open(ctx, grid.Deps{
		Rows:    store,
		Counter: store,
		Cells:   store.Cells(),
		Columns: layouts,
		Offsets: store,
	}, schema.Query{ParentID: opts.parentID, SortKey: "sku"}, grid.Config{
		DefaultColumns: sqlstore.DemoColumns(),
	})
	if err != nil {
		return err
	}

	if opts.debug {
		spew.Fdump(logFile, table.Columns().All())
	}

	if opts.headless > 0 {
		printRows(table, opts.headless)
	} else if err := tui.Run(ctx, table); err != nil {
		table.Close()
		return fmt.Errorf("ui stopped: %w", err)
	}

	if opts.debug {
		spew.Fdump(logFile, table.Rows().Stats())
	}

	if err := table.Close(); err != nil {
		color.Yellow(" %s", err.Error())
	}

	return nil
}

// printRows loads the first n rows through the regular scroll path and prints
// them tab separated.
func printRows(table *grid.Table, n int) {

	rowHeight := table.Config().RowHeight
	table.ScrollNow(window.Viewport{ScrollTop: 0, Height: float64(n-1) * rowHeight})
	table.Coordinator().Wait()

	view := table.Window()

	header := make([]string, len(view.Columns))
	for i, c := range view.Columns {
		header[i] = c.Label
	}
	fmt.Println(strings.Join(header, "\t"))

	for _, slot := range view.Rows {
		if !slot.Loaded() {
			continue
		}

		cells := make([]string, len(view.Columns))
		for i, c := range view.Columns {
			if i < len(slot.Record.Values) {
				cells[i] = render.Format(c.Type, slot.Record.Values[i])
			}
		}
		fmt.Println(strings.Join(cells, "\t"))
	}

	if view.Banner != nil {
		color.Red(" rows %s failed: %s", view.Banner.Range.String(), view.Banner.Err)
	}
}
