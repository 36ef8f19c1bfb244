/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"notefield/internal/backend"
	"notefield/internal/board"
	"notefield/internal/config"
	"notefield/internal/crash"
	"notefield/internal/export"
	"notefield/internal/ingest"
	applog "notefield/internal/log"
	"notefield/internal/storage"
	"notefield/internal/ui"
	"notefield/internal/version"
)

func usage() {
	fmt.Println("Notefield")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  notefield version|-v|--version             Show version")
	fmt.Println("  notefield init <dir> <name>                Create a new board at <dir> with name <name>")
	fmt.Println("  notefield open <dir>                       Open board at <dir> and print summary")
	fmt.Println("  notefield add <dir> <text|url|imagePath>   Classify the input and add it as an item")
	fmt.Println("  notefield paste <dir>                      Add the system clipboard contents as an item")
	fmt.Println("  notefield search <dir> <query>             Full-text search over board items")
	fmt.Println("  notefield search --remote <boardID> <query>  Search a board on the sync backend")
	fmt.Println("  notefield export <dir> <out.pdf|out.png>   Render the board to PDF or PNG")
	fmt.Println("  notefield serve                            Run the optional sync backend (Postgres)")
	fmt.Println("  notefield ui [<dir>]                       Launch desktop UI (build with -tags fyne for full UI)")
}

func main() {
	// initialize structured logging using environment defaults
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	var bh *storage.BoardHandle
	defer func() {
		if r := recover(); r != nil {
			crash.Report(bh, r)
		}
	}()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println("Notefield")
			fmt.Println(version.String())
			return
		case "init":
			if len(args) < 4 {
				fmt.Println("init requires <dir> and <name>")
				usage()
				os.Exit(2)
			}
			dir := args[2]
			name := args[3]
			abs, _ := filepath.Abs(dir)
			l.Info("init board", slog.String("root", abs), slog.String("name", name))
			b := board.Board{Name: name, Items: []board.Item{}, Viewport: board.DefaultViewport()}
			h, err := storage.InitBoard(abs, b)
			if err != nil {
				l.Error("init failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			bh = h
			fmt.Println("Created board at", abs)
			return
		case "open":
			h := mustOpen(l, args, 3, "open requires <dir>")
			bh = h
			fmt.Printf("Opened board: %s\n", h.Board.Name)
			fmt.Printf("Items: %d\n", len(h.Board.Items))
			fmt.Printf("Viewport: scale=%.2f tx=%.1f ty=%.1f\n", h.Board.Viewport.Scale, h.Board.Viewport.TranslateX, h.Board.Viewport.TranslateY)
			fmt.Println("Root:", h.Root)
			if path, ok := storage.LatestAutosave(h.Root); ok {
				fmt.Println("Crash autosave available:", path)
			}
			return
		case "add":
			if len(args) < 4 {
				fmt.Println("add requires <dir> and <text|url|imagePath>")
				usage()
				os.Exit(2)
			}
			h := mustOpen(l, args, 3, "")
			bh = h
			input := strings.Join(args[3:], " ")
			it, err := ingest.Add(h, input, board.Position{})
			if err != nil {
				l.Error("add failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			refreshIndex(l, h)
			fmt.Printf("Added %s item %s\n", it.Kind, it.ID)
			return
		case "paste":
			h := mustOpen(l, args, 3, "paste requires <dir>")
			bh = h
			it, err := ingest.Paste(h, board.Position{})
			if err != nil {
				l.Error("paste failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			refreshIndex(l, h)
			fmt.Printf("Added %s item %s from clipboard\n", it.Kind, it.ID)
			return
		case "search":
			if len(args) >= 3 && args[2] == "--remote" {
				remoteSearch(l, args)
				return
			}
			if len(args) < 4 {
				fmt.Println("search requires <dir> and <query>")
				usage()
				os.Exit(2)
			}
			dir := args[2]
			abs, _ := filepath.Abs(dir)
			query := strings.Join(args[3:], " ")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			res, err := storage.Search(ctx, abs, storage.SearchQuery{Text: query})
			if err != nil {
				l.Error("search failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			for _, r := range res {
				snippet := r.Snippet
				if snippet == "" {
					snippet = "(no excerpt)"
				}
				fmt.Printf("%-10s %-8s (%.0f,%.0f)  %s\n", r.ItemID, r.Kind, r.X, r.Y, snippet)
			}
			fmt.Printf("%d matches\n", len(res))
			return
		case "export":
			if len(args) < 4 {
				fmt.Println("export requires <dir> and <out.pdf|out.png>")
				usage()
				os.Exit(2)
			}
			h := mustOpen(l, args, 3, "")
			bh = h
			out := args[3]
			var err error
			switch strings.ToLower(filepath.Ext(out)) {
			case ".pdf":
				err = export.ExportBoardPDF(h, out, export.PDFOptions{})
			case ".png":
				err = export.ExportBoardPNG(h, out, export.PNGOptions{})
			default:
				err = fmt.Errorf("unsupported export format %q (want .pdf or .png)", filepath.Ext(out))
			}
			if err != nil {
				l.Error("export failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Exported to", out)
			return
		case "serve":
			l.Info("starting backend server")
			if err := backend.Start(); err != nil {
				l.Error("server failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		case "ui":
			var dir string
			if len(args) >= 3 {
				dir = args[2]
			}
			if err := ui.Run(dir); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		}
	}

	usage()
}

// mustOpen opens the board named by args[2], exiting on error. minLen guards
// the argument count; msg is printed when it is not met.
func mustOpen(l *slog.Logger, args []string, minLen int, msg string) *storage.BoardHandle {
	if len(args) < minLen {
		if msg != "" {
			fmt.Println(msg)
		}
		usage()
		os.Exit(2)
	}
	abs, _ := filepath.Abs(args[2])
	l.Info("open board", slog.String("root", abs))
	h, err := storage.Open(abs)
	if err != nil {
		l.Error("open failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	return h
}

// remoteSearch queries the sync backend configured in the app config. Shape:
// notefield search --remote <boardID> <query...>.
func remoteSearch(l *slog.Logger, args []string) {
	if len(args) < 5 {
		fmt.Println("search --remote requires <boardID> and <query>")
		usage()
		os.Exit(2)
	}
	id, err := strconv.ParseInt(args[3], 10, 64)
	if err != nil {
		fmt.Println("Error: invalid board id", args[3])
		os.Exit(2)
	}
	cfg, token, err := config.Load()
	if err != nil {
		l.Error("config load failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	query := strings.Join(args[4:], " ")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c := backend.NewClient(cfg.Backend.BaseURL, token)
	hits, err := c.SearchBoard(ctx, id, storage.SearchQuery{Text: query})
	if err != nil {
		l.Error("remote search failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	for _, h := range hits {
		snippet := h.Snippet
		if snippet == "" {
			snippet = "(no excerpt)"
		}
		fmt.Printf("%-10s %-8s (%.0f,%.0f)  %s\n", h.ItemID, h.Kind, h.X, h.Y, snippet)
	}
	fmt.Printf("%d matches\n", len(hits))
}

func refreshIndex(l *slog.Logger, h *storage.BoardHandle) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := storage.UpdateIndex(ctx, h.Root, h.Board); err != nil {
		l.Warn("index update failed", slog.Any("err", err))
	}
}
