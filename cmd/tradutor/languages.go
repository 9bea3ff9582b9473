package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"
)

func handleLanguages(args []string) {
	if len(args) > 0 {
		fmt.Fprintln(os.Stderr, "Usage: tradutor languages")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := buildApp(ctx)
	defer a.close(ctx)

	langs, err := a.translator().Languages(ctx)
	fatal(err)

	sort.Slice(langs, func(i, j int) bool { return langs[i].Code < langs[j].Code })

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CODE\tLANGUAGE")
	for _, lang := range langs {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", lang.Code, lang.Name)
	}
	_ = w.Flush()
}
