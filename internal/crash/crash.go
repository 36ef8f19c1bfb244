/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns an uncaught panic into a report file, a board autosave
// and a non-zero exit instead of a bare stack trace.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "notefield/internal/log"
	"notefield/internal/storage"
	"notefield/internal/telemetry"
	"notefield/internal/version"
)

// exitFn is replaced in tests so Recover does not kill the test process.
var exitFn = os.Exit

// Recover is meant as `defer crash.Recover(bh)` near the top of main. Note
// that recover() only works when the deferred call is Recover itself; when
// the board handle is assigned after the defer, call recover() inline and
// hand the value to Report.
func Recover(bh *storage.BoardHandle) {
	if r := recover(); r != nil {
		Report(bh, r)
	}
}

// Report logs the panic with its stack, writes a report under the board's
// backups dir, snapshots the manifest when a board is open, and exits with
// code 2.
func Report(bh *storage.BoardHandle, r any) {
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	body := formatReport(bh, r, stack)
	reportPath, err := writeReport(bh, body)
	if err != nil {
		l.Error("writing crash report failed", slog.Any("err", err), slog.String("path", reportPath))
	}
	telemetry.UploadCrash(body)

	if bh != nil {
		if path, err := storage.AutosaveCrashSnapshot(bh); err != nil {
			l.Error("autosave crash snapshot failed", slog.Any("err", err))
		} else {
			l.Info("autosave crash snapshot written", slog.String("path", path))
		}
	}

	fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func formatReport(bh *storage.BoardHandle, panicVal any, stack []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Notefield Crash Report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if bh != nil {
		fmt.Fprintf(&buf, "BoardRoot: %s\n", bh.Root)
		fmt.Fprintf(&buf, "Manifest: %s\n", bh.ManifestPath)
	}
	fmt.Fprintf(&buf, "\nPanic: %v\n\nStack:\n%s\n", panicVal, stack)
	return buf.Bytes()
}

// writeReport stores body under the board's backups dir, or the system temp
// dir when no board is open.
func writeReport(bh *storage.BoardHandle, body []byte) (string, error) {
	dir := os.TempDir()
	if bh != nil && bh.Root != "" {
		dir = filepath.Join(bh.Root, storage.BackupsDirName)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	path := filepath.Join(dir, "crash-"+time.Now().Format("20060102-150405")+".log")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	if _, err := f.Write(body); err != nil {
		_ = f.Close()
		return path, err
	}
	_ = f.Sync()
	return path, f.Close()
}
