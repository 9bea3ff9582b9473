package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/marcus-qen/tradutor/internal/records"
)

func handleRecords(args []string) {
	var (
		query  records.Query
		cached bool
	)

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--page":
			i++
			if i >= len(args) {
				fatal(errors.New("--page requires a value"))
			}
			n, err := strconv.Atoi(args[i])
			fatal(err)
			query.Page = n
		case "--size":
			i++
			if i >= len(args) {
				fatal(errors.New("--size requires a value"))
			}
			n, err := strconv.Atoi(args[i])
			fatal(err)
			query.Size = n
		case "--status":
			i++
			if i >= len(args) {
				fatal(errors.New("--status requires a value"))
			}
			query.Status = strings.ToUpper(args[i])
		case "--q", "--search":
			i++
			if i >= len(args) {
				fatal(errors.New("--q requires a value"))
			}
			query.Search = args[i]
		case "--cached":
			cached = true
		case "-h", "--help", "help":
			fmt.Println("Usage: tradutor records [--page N] [--size N] [--status S] [--q TEXT] [--cached]")
			return
		default:
			fatal(fmt.Errorf("unknown records option: %s", args[i]))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := buildApp(ctx)
	defer a.close(ctx)

	if cached {
		cache := a.openCache()
		defer cache.Close()
		recs, err := cache.List(query.Size)
		fatal(err)
		printRecords(recs)
		return
	}

	result, err := a.records().List(ctx, query)
	fatal(err)

	cache := a.openCache()
	defer cache.Close()
	if err := cache.Upsert(result.Records); err != nil {
		a.logger.Warn("cache records failed")
	}

	printRecords(result.Records)
	if result.TotalPages > 1 {
		fmt.Printf("\nPage %d of %d (%d records total)\n", query.Page+1, result.TotalPages, result.Total)
	}
}

func printRecords(recs []records.Record) {
	if len(recs) == 0 {
		fmt.Println("No translation records.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tFILE\tFROM\tTO\tSTATUS\tCREATED")
	for _, rec := range recs {
		created := ""
		if !rec.CreatedAt.IsZero() {
			created = rec.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.ID,
			rec.Filename,
			fallback(rec.SourceLang, "auto"),
			rec.TargetLang,
			rec.Status,
			created,
		)
	}
	_ = w.Flush()
}
