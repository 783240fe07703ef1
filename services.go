package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/duke605/parse-loader/loader"
	"github.com/duke605/parse-loader/utils"
	"github.com/robfig/cron"
	"github.com/spf13/afero"
)

const browseHelp = "commands: n(ext) p(rev) r(eload) f(irst) s (restart) q(uit)"

// PageService drives a loader from the command line and prints what it fetches.
type PageService struct {
	loader *loader.Loader[Record]
	out    io.Writer
}

func NewPageService(l *loader.Loader[Record], out io.Writer) *PageService {
	return &PageService{
		loader: l,
		out:    out,
	}
}

// Browse reads one command per line from in until q or EOF. Fetch errors are printed and
// browsing carries on, so r or n retries the page that failed.
func (srv *PageService) Browse(ctx context.Context, in io.Reader) error {
	if err := srv.printPage(ctx, "reload", srv.loader.Reload); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		var err error
		switch cmd := strings.ToLower(strings.TrimSpace(scanner.Text())); cmd {
		case "":
			continue
		case "n", "next":
			err = srv.printPage(ctx, "next", srv.loader.FindNext)
		case "p", "prev", "previous":
			err = srv.printPage(ctx, "previous", srv.loader.FindPrevious)
		case "r", "reload":
			err = srv.printPage(ctx, "reload", srv.loader.Reload)
		case "s", "restart":
			err = srv.printPage(ctx, "restart", srv.loader.Restart().Reload)
		case "f", "first":
			err = srv.printFirst(ctx)
		case "q", "quit", "exit":
			return nil
		default:
			_, err = fmt.Fprintln(srv.out, browseHelp)
		}
		if err != nil {
			return err
		}
	}

	return scanner.Err()
}

// Watch reloads the current page on schedule until ctx is done.
func (srv *PageService) Watch(ctx context.Context, schedule string) error {
	c := cron.New()
	err := c.AddFunc(schedule, func() {
		start := time.Now()
		slog.InfoContext(ctx, "Reloading page", "skip", srv.loader.Skip())
		if err := srv.printPage(ctx, "reload", srv.loader.Reload); err != nil {
			slog.ErrorContext(ctx, "Error occurred while printing page", "error", err)
			return
		}
		slog.InfoContext(ctx, "Finished reloading page", "duration", HumanDuration(time.Since(start)))
	})
	if err != nil {
		return err
	}

	c.Start()
	defer c.Stop()

	<-ctx.Done()
	return nil
}

// Export writes every record from the loader's cursor onwards to path as JSON lines and
// returns how many were written.
func (srv *PageService) Export(ctx context.Context, fs afero.Fs, path string, batchSize int) (int, error) {
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	batch := utils.NewBatcher(batchSize, func(records []Record) error {
		for i := range records {
			if err := enc.Encode(&records[i]); err != nil {
				return err
			}
		}

		return w.Flush()
	})

	pager := loader.NewPager(srv.loader)
	for {
		r, more, err := pager.Next(ctx)
		if err != nil {
			return batch.Flushed(), err
		} else if !more {
			break
		}

		if err := batch.Add(r); err != nil {
			return batch.Flushed(), err
		}
	}

	if err := batch.Flush(); err != nil {
		return batch.Flushed(), err
	}

	return batch.Flushed(), nil
}

func (srv *PageService) printPage(ctx context.Context, action string, fetch func(context.Context) ([]Record, error)) error {
	records, err := fetch(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Error occurred while fetching page", "action", action, "error", err)
		if _, err := fmt.Fprintf(srv.out, "error: %s\n", err); err != nil {
			return err
		}
		return srv.printStatus()
	}

	enc := json.NewEncoder(srv.out)
	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			return err
		}
	}
	if len(records) == 0 {
		if _, err := fmt.Fprintln(srv.out, "(no records)"); err != nil {
			return err
		}
	}

	return srv.printStatus()
}

func (srv *PageService) printFirst(ctx context.Context) error {
	r, ok, err := srv.loader.First(ctx, nil)
	switch {
	case err != nil:
		slog.ErrorContext(ctx, "Error occurred while fetching first record", "error", err)
		_, err = fmt.Fprintf(srv.out, "error: %s\n", err)
	case !ok:
		_, err = fmt.Fprintln(srv.out, "(no records)")
	default:
		err = json.NewEncoder(srv.out).Encode(&r)
	}
	if err != nil {
		return err
	}

	return srv.printStatus()
}

func (srv *PageService) printStatus() error {
	_, err := fmt.Fprintf(srv.out, "-- skip=%d limit=%d more=%t error=%t\n",
		srv.loader.Skip(),
		srv.loader.Limit(),
		srv.loader.CanLoadMore(),
		srv.loader.HadError(),
	)
	return err
}
