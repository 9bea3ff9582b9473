package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

func handleTranslate(args []string) {
	var file, from, to, out string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--to":
			i++
			if i >= len(args) {
				fatal(errors.New("--to requires a value"))
			}
			to = args[i]
		case "--from":
			i++
			if i >= len(args) {
				fatal(errors.New("--from requires a value"))
			}
			from = args[i]
		case "--out":
			i++
			if i >= len(args) {
				fatal(errors.New("--out requires a value"))
			}
			out = args[i]
		case "-h", "--help", "help":
			fmt.Println("Usage: tradutor translate <file> --to <lang> [--from <lang>] [--out <path>]")
			return
		default:
			if strings.HasPrefix(args[i], "-") {
				fatal(fmt.Errorf("unknown translate option: %s", args[i]))
			}
			file = args[i]
		}
	}
	if file == "" || to == "" {
		fatal(errors.New("usage: tradutor translate <file> --to <lang> [--from <lang>] [--out <path>]"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	a := buildApp(ctx)
	defer a.close(ctx)

	svc := a.translator()

	fmt.Printf("Translating %s → %s...\n", filepath.Base(file), to)
	result, err := svc.TranslateFile(ctx, file, from, to)
	fatal(err)

	content := result.Content
	name := result.Filename
	if content == nil {
		// Stored server-side: pull it down before writing.
		stored := strings.TrimPrefix(result.DownloadURL, "/files/")
		content, err = svc.Download(ctx, stored)
		fatal(err)
		if name == "" {
			name = stored
		}
	}
	if name == "" {
		name = outputName(file, to)
	}

	dest := out
	if dest == "" {
		dest = filepath.Join(filepath.Dir(file), name)
	}
	fatal(os.WriteFile(dest, content, 0o644))

	fmt.Printf("✅ Saved translated document: %s\n", dest)
}

func outputName(input, targetLang string) string {
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "_" + targetLang + ext
}
