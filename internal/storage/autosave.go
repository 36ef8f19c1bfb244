/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const autosavePrefix = "autosave-"

// AutosaveCrashSnapshot writes the in-memory board state to a timestamped
// file in the backups directory without touching the live manifest. It is
// used on panic recovery, where the manifest on disk may be mid-write.
func AutosaveCrashSnapshot(bh *BoardHandle) (string, error) {
	if bh == nil {
		return "", errors.New("nil BoardHandle")
	}
	data, err := json.MarshalIndent(bh.Board, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal board: %w", err)
	}
	data = append(data, '\n')
	dir := filepath.Join(bh.Root, BackupsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("%s%s.json", autosavePrefix, stamp))
	if err := writeFileSync(path, data); err != nil {
		return "", fmt.Errorf("write autosave: %w", err)
	}
	return path, nil
}

// LatestAutosave returns the newest crash autosave file, if any.
func LatestAutosave(root string) (string, bool) {
	ents, err := os.ReadDir(filepath.Join(root, BackupsDirName))
	if err != nil {
		return "", false
	}
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, autosavePrefix) && strings.HasSuffix(name, ".json") {
			candidates = append(candidates, filepath.Join(root, BackupsDirName, name))
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Strings(candidates)
	return candidates[len(candidates)-1], true
}
