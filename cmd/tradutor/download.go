package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

func handleDownload(args []string) {
	var name, out string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--out":
			i++
			if i >= len(args) {
				fatal(errors.New("--out requires a value"))
			}
			out = args[i]
		case "-h", "--help", "help":
			fmt.Println("Usage: tradutor download <name> [--out <path>]")
			return
		default:
			if strings.HasPrefix(args[i], "-") {
				fatal(fmt.Errorf("unknown download option: %s", args[i]))
			}
			name = args[i]
		}
	}
	if name == "" {
		fatal(errors.New("usage: tradutor download <name> [--out <path>]"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	a := buildApp(ctx)
	defer a.close(ctx)

	content, err := a.translator().Download(ctx, name)
	fatal(err)

	dest := out
	if dest == "" {
		dest = name
	}
	fatal(os.WriteFile(dest, content, 0o644))

	fmt.Printf("✅ Saved: %s\n", dest)
}
