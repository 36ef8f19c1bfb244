/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"notefield/internal/board"
	"notefield/internal/storage"
)

// PDFOptions controls PDF export behavior.
// Units are points (pt); one world unit maps to one point before fitting.
// Vector text uses built-in Helvetica for portability.
type PDFOptions struct {
	Margin  float64 // world-unit padding around content; default 40
	MaxSide float64 // cap on the longer page side in pt; default 2000
}

// ExportBoardPDF renders the whole board to a single-page PDF at outPath.
// The page is sized to the content bounding box, scaled down uniformly when
// it would exceed MaxSide.
func ExportBoardPDF(bh *storage.BoardHandle, outPath string, opt PDFOptions) error {
	if bh == nil {
		return fmt.Errorf("board handle is nil")
	}
	margin := opt.Margin
	if margin <= 0 {
		margin = 40
	}
	maxSide := opt.MaxSide
	if maxSide <= 0 {
		maxSide = 2000
	}

	minX, minY, w, h, ok := contentBounds(bh.Board.Items, margin)
	if !ok {
		// Empty board still yields a valid page.
		minX, minY, w, h = 0, 0, 595, 420
	}
	scale := 1.0
	longer := w
	if h > longer {
		longer = h
	}
	if longer > maxSide {
		scale = maxSide / longer
	}
	pageW := w * scale
	pageH := h * scale

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: pageW, Ht: pageH},
		OrientationStr: "",
	})
	pdf.SetTitle(bh.Board.Name, true)
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPageFormat("", gofpdf.SizeType{Wd: pageW, Ht: pageH})

	// World to page mapping.
	px := func(x float64) float64 { return (x - minX) * scale }
	py := func(y float64) float64 { return (y - minY) * scale }

	for _, it := range bh.Board.Items {
		x, y, iw, ih := itemExtent(it)
		bx, by := px(x), py(y)
		bw, bhh := iw*scale, ih*scale

		pdf.SetDrawColor(60, 60, 60)
		pdf.SetFillColor(255, 252, 230)
		pdf.SetLineWidth(0.8)
		pdf.Rect(bx, by, bw, bhh, "FD")

		switch it.Kind {
		case board.KindImage:
			asset := filepath.Join(bh.Root, filepath.FromSlash(it.AssetPath))
			if _, err := os.Stat(asset); err == nil {
				pdf.ImageOptions(asset, bx, by, bw, bhh, false,
					gofpdf.ImageOptions{ReadDpi: true}, 0, "")
			} else {
				pdf.SetXY(bx+4, by+4)
				pdf.MultiCell(bw-8, 12, "[missing image: "+it.AssetPath+"]", "", "L", false)
			}
		case board.KindLink:
			pdf.SetTextColor(20, 60, 180)
			pdf.SetXY(bx+4, by+4)
			pdf.MultiCell(bw-8, 12, it.Content, "", "L", false)
			pdf.LinkString(bx, by, bw, bhh, it.Content)
			pdf.SetTextColor(0, 0, 0)
		default:
			pdf.SetXY(bx+4, by+4)
			pdf.MultiCell(bw-8, 12, it.Content, "", "L", false)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
