/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"os"
	"testing"

	"notefield/internal/board"
)

func TestManifestConformsToSchema(t *testing.T) {
	root := t.TempDir()
	bh, err := InitBoard(root, board.Board{Name: "Schema Test"})
	if err != nil {
		t.Fatalf("InitBoard error: %v", err)
	}
	if err := bh.AddItem(textItem("n1", "hello", 0, 0)); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	img := board.Item{
		ID:          "n2",
		Kind:        board.KindImage,
		AssetPath:   "assets/n2.png",
		Position:    board.Position{X: 10, Y: 20},
		NaturalSize: &board.Dim{W: 400, H: 200},
	}
	if err := bh.AddItem(img); err != nil {
		t.Fatalf("AddItem image error: %v", err)
	}

	data, err := os.ReadFile(bh.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if err := ValidateManifest(data); err != nil {
		t.Fatalf("manifest does not conform to schema: %v", err)
	}
}

func TestValidateManifestReportsViolations(t *testing.T) {
	cases := map[string]string{
		"missing viewport": `{"name":"x","items":[]}`,
		"bad kind":         `{"name":"x","items":[{"id":"a","kind":"sticker","position":{"x":0,"y":0}}],"viewport":{"scale":1,"translateX":0,"translateY":0}}`,
		"scale too small":  `{"name":"x","items":[],"viewport":{"scale":0.01,"translateX":0,"translateY":0}}`,
		"empty id":         `{"name":"x","items":[{"id":"","kind":"text","position":{"x":0,"y":0}}],"viewport":{"scale":1,"translateX":0,"translateY":0}}`,
	}
	for name, doc := range cases {
		if err := ValidateManifest([]byte(doc)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}
