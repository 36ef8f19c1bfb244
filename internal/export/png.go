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
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"

	"notefield/internal/board"
	"notefield/internal/storage"
)

// PNGOptions controls PNG export behavior.
// - Scale: pixels per world unit; default 1, clamped so neither side
//   exceeds MaxPixels.
// - Margin: world-unit padding around content; default 40.
type PNGOptions struct {
	Scale     float64
	Margin    float64
	MaxPixels int
}

// ExportBoardPNG renders a raster snapshot of the whole board to outPath.
func ExportBoardPNG(bh *storage.BoardHandle, outPath string, opt PNGOptions) error {
	if bh == nil {
		return fmt.Errorf("board handle is nil")
	}
	margin := opt.Margin
	if margin <= 0 {
		margin = 40
	}
	scale := opt.Scale
	if scale <= 0 {
		scale = 1
	}
	maxPix := opt.MaxPixels
	if maxPix <= 0 {
		maxPix = 8192
	}

	minX, minY, w, h, ok := contentBounds(bh.Board.Items, margin)
	if !ok {
		minX, minY, w, h = 0, 0, 800, 600
	}
	longer := w
	if h > longer {
		longer = h
	}
	if longer*scale > float64(maxPix) {
		scale = float64(maxPix) / longer
	}
	pixW := int(math.Round(w * scale))
	pixH := int(math.Round(h * scale))
	if pixW < 1 {
		pixW = 1
	}
	if pixH < 1 {
		pixH = 1
	}

	dc := gg.NewContext(pixW, pixH)
	dc.SetRGB(0.97, 0.97, 0.95)
	dc.Clear()
	dc.Scale(scale, scale)
	dc.Translate(-minX, -minY)

	for _, it := range bh.Board.Items {
		x, y, iw, ih := itemExtent(it)

		dc.SetRGB(1, 0.99, 0.9)
		dc.DrawRectangle(x, y, iw, ih)
		dc.FillPreserve()
		dc.SetRGB(0.24, 0.24, 0.24)
		dc.SetLineWidth(1)
		dc.Stroke()

		switch it.Kind {
		case board.KindImage:
			asset := filepath.Join(bh.Root, filepath.FromSlash(it.AssetPath))
			img, err := gg.LoadImage(asset)
			if err != nil {
				drawWrapped(dc, "[missing image: "+it.AssetPath+"]", x, y, iw)
				continue
			}
			b := img.Bounds()
			if b.Dx() > 0 && b.Dy() > 0 {
				dc.Push()
				dc.Translate(x, y)
				dc.Scale(iw/float64(b.Dx()), ih/float64(b.Dy()))
				dc.DrawImage(img, 0, 0)
				dc.Pop()
			}
		case board.KindLink:
			dc.SetRGB(0.08, 0.23, 0.7)
			drawWrapped(dc, it.Content, x, y, iw)
		default:
			dc.SetRGB(0.1, 0.1, 0.1)
			drawWrapped(dc, it.Content, x, y, iw)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := dc.SavePNG(outPath); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

func drawWrapped(dc *gg.Context, s string, x, y, w float64) {
	dc.DrawStringWrapped(s, x+6, y+6, 0, 0, w-12, 1.3, gg.AlignLeft)
}
