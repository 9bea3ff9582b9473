/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// The `tradutor` CLI is a client for the document translation service:
// account and session management, file translation, history and watching.
//
// Usage:
//
//	tradutor login <email>              — sign in
//	tradutor translate <file> --to pt   — translate a document
//	tradutor records                    — list translation history
//	tradutor watch                      — follow running translations
//	tradutor version                    — version info
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/marcus-qen/tradutor/internal/apiclient"
	"github.com/marcus-qen/tradutor/internal/config"
	"github.com/marcus-qen/tradutor/internal/notifier"
	"github.com/marcus-qen/tradutor/internal/records"
	"github.com/marcus-qen/tradutor/internal/session"
	"github.com/marcus-qen/tradutor/internal/telemetry"
	"github.com/marcus-qen/tradutor/internal/tokenstore"
	"github.com/marcus-qen/tradutor/internal/translate"
)

var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]

	switch cmd {
	case "login":
		handleLogin(os.Args[2:])
	case "register", "signup":
		handleRegister(os.Args[2:])
	case "logout":
		handleLogout(os.Args[2:])
	case "whoami", "me":
		handleWhoAmI(os.Args[2:])
	case "translate":
		handleTranslate(os.Args[2:])
	case "records", "history":
		handleRecords(os.Args[2:])
	case "languages", "langs":
		handleLanguages(os.Args[2:])
	case "download":
		handleDownload(os.Args[2:])
	case "forgot-password":
		handleForgotPassword(os.Args[2:])
	case "reset-password":
		handleResetPassword(os.Args[2:])
	case "watch":
		handleWatch(os.Args[2:])
	case "version":
		fmt.Printf("tradutor %s (commit: %s, built: %s)\n", version, gitCommit, buildDate)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tradutor — document translation client

Usage:
  tradutor login <email> [--password X]      Sign in and cache the session
  tradutor register <email> [options]        Create an account
    --name <name>                            Display name (default: email local part)
    --password <password>                    Password (prompted if omitted)
  tradutor logout                            Remove the cached session
  tradutor whoami [--remote]                 Show the signed-in identity
  tradutor translate <file> --to <lang>      Translate a document
    --from <lang>                            Source language (default: auto-detect)
    --out <path>                             Output location (default: alongside input)
  tradutor records [options]                 List translation history
    --page <n> --size <n>                    Paging
    --status <s> --q <text>                  Filter by status / search text
    --cached                                 Read the local cache, no network
  tradutor download <name> [--out <path>]    Fetch a stored translated file
  tradutor languages                         List supported languages
  tradutor forgot-password <email>           Request a password reset email
  tradutor reset-password <token>            Complete a password reset
  tradutor watch [--schedule <spec>]         Poll history, report finished jobs
  tradutor version                           Show version info

Environment:
  TRADUTOR_BASE_URL, TRADUTOR_CONFIG, TRADUTOR_LOG_LEVEL, ...
  (every config file key has a TRADUTOR_* override)`)
}

// app bundles the wired client stack for command handlers.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	tokens   *tokenstore.Store
	events   *notifier.Notifier
	api      *apiclient.Client
	session  *session.Controller
	shutdown func(context.Context) error
}

func buildApp(ctx context.Context) *app {
	cfg, err := config.Load(envOr("TRADUTOR_CONFIG", config.DefaultPath()))
	fatal(err)

	logger := newLogger(cfg.LogLevel)

	var tokens *tokenstore.Store
	if cfg.SealedToken {
		sealer, err := tokenstore.NewFileSealer(cfg.KeyPath)
		fatal(err)
		tokens = tokenstore.NewSealedStore(cfg.ResolvedTokenPath(), sealer)
	} else {
		tokens = tokenstore.NewStore(cfg.ResolvedTokenPath())
	}

	events := notifier.New()
	api := apiclient.New(cfg.BaseURL, tokens, events,
		apiclient.WithLogger(logger),
		apiclient.WithTimeout(cfg.Timeout.Std()),
	)

	shutdown, err := telemetry.InitTraceProvider(ctx, cfg.OTLPEndpoint, version)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
		shutdown = func(context.Context) error { return nil }
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		tokens:   tokens,
		events:   events,
		api:      api,
		session:  session.New(api, tokens, events, logger),
		shutdown: shutdown,
	}
}

func (a *app) translator() *translate.Service {
	return translate.NewService(a.api, a.logger)
}

func (a *app) records() *records.Service {
	return records.NewService(a.api, a.logger)
}

func (a *app) openCache() *records.Cache {
	cache, err := records.OpenCache(a.cfg.ResolvedCachePath())
	fatal(err)
	return cache
}

func (a *app) close(ctx context.Context) {
	_ = a.shutdown(ctx)
	_ = a.logger.Sync()
}

func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// --- Helpers ---

func fatal(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
