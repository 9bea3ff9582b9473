package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marcus-qen/tradutor/internal/records"
	"github.com/marcus-qen/tradutor/internal/watch"
)

func handleWatch(args []string) {
	schedule := ""

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--schedule":
			i++
			if i >= len(args) {
				fatal(errors.New("--schedule requires a value"))
			}
			schedule = args[i]
		case "-h", "--help", "help":
			fmt.Println("Usage: tradutor watch [--schedule <duration or cron>]")
			return
		default:
			fatal(fmt.Errorf("unknown watch option: %s", args[i]))
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := buildApp(ctx)
	defer a.close(context.Background())

	if schedule == "" {
		schedule = a.cfg.WatchSchedule
	}

	cache := a.openCache()
	defer cache.Close()

	watcher, err := watch.New(a.records(), cache, schedule, func(rec records.Record) {
		switch rec.Status {
		case records.StatusError:
			fmt.Printf("❌ %s failed (%s → %s)\n", rec.Filename, fallback(rec.SourceLang, "auto"), rec.TargetLang)
		default:
			fmt.Printf("✅ %s finished (%s → %s)\n", rec.Filename, fallback(rec.SourceLang, "auto"), rec.TargetLang)
			if rec.DownloadURL != "" {
				fmt.Printf("   tradutor download %s\n", rec.ID)
			}
		}
	}, a.logger)
	fatal(err)

	fmt.Printf("Watching translation history every %s. Ctrl-C to stop.\n", schedule)
	watcher.Start(ctx)
	<-ctx.Done()
	watcher.Stop()
	fmt.Println("\nStopped.")
}
