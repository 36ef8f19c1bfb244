//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	fcanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"notefield/internal/board"
	"notefield/internal/canvas"
	"notefield/internal/config"
	"notefield/internal/crash"
	"notefield/internal/export"
	"notefield/internal/geom"
	"notefield/internal/ingest"
	applog "notefield/internal/log"
	"notefield/internal/storage"
	"notefield/internal/version"
)

// Run starts the Fyne-based desktop UI shell around the board canvas.
func Run(boardDir string) error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))

	var bh *storage.BoardHandle
	defer func() {
		if r := recover(); r != nil {
			crash.Report(bh, r)
		}
	}()

	cfg, _, err := config.Load()
	if err != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", err))
		cfg = config.Defaults()
	}

	fyneApp := app.NewWithID("notefield")
	w := fyneApp.NewWindow("Notefield")
	// Restore window size from preferences (with sane minimums)
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1200)
	winH := prefs.IntWithFallback("window.height", 800)
	if winW < 800 {
		winW = 800
	}
	if winH < 600 {
		winH = 600
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	bcanvas := NewBoardCanvas()

	var host *canvas.Host

	// Item list (left)
	itemsDisplay := []string{}
	itemIDs := []string{}
	itemsList := widget.NewList(
		func() int { return len(itemsDisplay) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i >= 0 && int(i) < len(itemsDisplay) {
				o.(*widget.Label).SetText(itemsDisplay[i])
			} else {
				o.(*widget.Label).SetText("")
			}
		},
	)
	refreshItemsList := func() {
		itemsDisplay = itemsDisplay[:0]
		itemIDs = itemIDs[:0]
		if host != nil {
			for _, it := range host.Items() {
				itemsDisplay = append(itemsDisplay, itemSummary(it))
				itemIDs = append(itemIDs, it.ID)
			}
		}
		itemsList.Refresh()
	}
	itemsList.OnSelected = func(i widget.ListItemID) {
		if host == nil || int(i) < 0 || int(i) >= len(itemIDs) {
			return
		}
		host.Select(itemIDs[i])
		bcanvas.Refresh()
	}
	bcanvas.OnSelect = func(id string) {
		if id == "" {
			itemsList.UnselectAll()
			return
		}
		for i, iid := range itemIDs {
			if iid == id {
				itemsList.Select(widget.ListItemID(i))
				return
			}
		}
	}

	// Search pane (right)
	searchResults := []storage.SearchResult{}
	resultsList := widget.NewList(
		func() int { return len(searchResults) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i >= 0 && int(i) < len(searchResults) {
				r := searchResults[i]
				txt := r.Snippet
				if txt == "" {
					txt = r.ItemID
				}
				o.(*widget.Label).SetText(fmt.Sprintf("[%s] %s", r.Kind, txt))
			}
		},
	)
	resultsList.OnSelected = func(i widget.ListItemID) {
		if host == nil || int(i) < 0 || int(i) >= len(searchResults) {
			return
		}
		host.Select(searchResults[i].ItemID)
		bcanvas.Refresh()
	}
	searchEntry := widget.NewEntry()
	searchEntry.SetPlaceHolder("Search notes")
	runSearch := func(q string) {
		if bh == nil {
			status.SetText("No board open")
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		res, err := storage.Search(ctx, bh.Root, storage.SearchQuery{Text: q})
		if err != nil {
			l.Error("search failed", slog.Any("err", err))
			status.SetText("Search failed: " + err.Error())
			return
		}
		searchResults = res
		resultsList.Refresh()
		status.SetText(fmt.Sprintf("%d matches", len(res)))
	}
	searchEntry.OnSubmitted = runSearch

	reindex := func() {
		if bh == nil {
			return
		}
		root, b := bh.Root, bh.Board
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := storage.UpdateIndex(ctx, root, b); err != nil {
				l.Warn("index update failed", slog.Any("err", err))
			}
		}()
	}

	openBoard := func(dir string) error {
		nbh, err := storage.Open(dir)
		if err != nil {
			return err
		}
		if host != nil {
			host.Destroy()
		}
		bh = nbh
		host = canvas.NewHost(canvas.HostConfig{
			Sink:      bh,
			Scheduler: &canvas.DisplayScheduler{Run: fyne.Do},
			Idle:      &canvas.DebounceTimer{Run: fyne.Do},
			OnRepaint: func() { bcanvas.Refresh() },
		})
		bcanvas.SetHost(host)
		for _, it := range bh.Board.Items {
			bcanvas.MountItem(it, bh.Root)
		}
		refreshItemsList()
		w.SetTitle("Notefield - " + bh.Board.Name)
		status.SetText(fmt.Sprintf("Opened %s (%d items)", bh.Board.Name, len(bh.Board.Items)))
		addRecentBoard(prefs, dir)
		cfg.Canvas.LastBoard = dir
		if err := config.Save(cfg, ""); err != nil {
			l.Warn("config save failed", slog.Any("err", err))
		}
		root, b := bh.Root, bh.Board
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()
			if rebuilt, err := storage.DetectAndRebuildIndex(ctx, root, b); err != nil {
				l.Warn("index check failed", slog.Any("err", err))
			} else if rebuilt {
				l.Info("search index rebuilt")
			}
		}()
		return nil
	}

	addInput := func(input string) {
		if bh == nil {
			status.SetText("Open a board first")
			return
		}
		it, err := ingest.Add(bh, input, bcanvas.DropPosition())
		if err != nil {
			l.Error("add item failed", slog.Any("err", err))
			status.SetText("Add failed: " + err.Error())
			return
		}
		bcanvas.MountItem(it, bh.Root)
		refreshItemsList()
		reindex()
		status.SetText(fmt.Sprintf("Added %s %s", it.Kind, it.ID))
	}

	// Toolbar (top)
	addEntry := widget.NewEntry()
	addEntry.SetPlaceHolder("Type a note, paste a link, or a path to an image")
	addEntry.OnSubmitted = func(s string) {
		addInput(s)
		addEntry.SetText("")
	}
	addBtn := widget.NewButton("Add", func() {
		addInput(addEntry.Text)
		addEntry.SetText("")
	})
	pasteBtn := widget.NewButton("Paste", func() {
		if bh == nil {
			status.SetText("Open a board first")
			return
		}
		it, err := ingest.Paste(bh, bcanvas.DropPosition())
		if err != nil {
			status.SetText("Paste failed: " + err.Error())
			return
		}
		bcanvas.MountItem(it, bh.Root)
		refreshItemsList()
		reindex()
		status.SetText(fmt.Sprintf("Pasted %s %s", it.Kind, it.ID))
	})
	importBtn := widget.NewButton("Import Image", func() {
		fd := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
			if err != nil || r == nil {
				return
			}
			p := r.URI().Path()
			_ = r.Close()
			addInput(p)
		}, w)
		fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".tiff", ".tif"}))
		fd.Show()
	})
	deleteBtn := widget.NewButton("Delete", func() {
		if bh == nil || host == nil {
			return
		}
		id := host.Selected()
		if id == "" {
			status.SetText("Nothing selected")
			return
		}
		if err := bh.RemoveItem(id); err != nil {
			status.SetText("Delete failed: " + err.Error())
			return
		}
		bcanvas.UnmountItem(id)
		refreshItemsList()
		reindex()
		status.SetText("Deleted " + id)
	})

	openDirDialog := func(cb func(dir string)) {
		dialog.ShowFolderOpen(func(lu fyne.ListableURI, err error) {
			if err != nil || lu == nil {
				return
			}
			cb(lu.Path())
		}, w)
	}
	newBoard := func() {
		openDirDialog(func(dir string) {
			b := board.Board{Name: filepath.Base(dir), Viewport: board.DefaultViewport()}
			if _, err := storage.InitBoard(dir, b); err != nil {
				dialog.ShowError(err, w)
				return
			}
			if err := openBoard(dir); err != nil {
				dialog.ShowError(err, w)
			}
		})
	}
	open := func() {
		openDirDialog(func(dir string) {
			if err := openBoard(dir); err != nil {
				dialog.ShowError(err, w)
			}
		})
	}
	exportPDF := func() {
		if bh == nil {
			status.SetText("Open a board first")
			return
		}
		dialog.ShowFileSave(func(wr fyne.URIWriteCloser, err error) {
			if err != nil || wr == nil {
				return
			}
			p := wr.URI().Path()
			_ = wr.Close()
			if err := export.ExportBoardPDF(bh, p, export.PDFOptions{}); err != nil {
				dialog.ShowError(err, w)
				return
			}
			status.SetText("Exported " + p)
		}, w)
	}
	exportPNG := func() {
		if bh == nil {
			status.SetText("Open a board first")
			return
		}
		dialog.ShowFileSave(func(wr fyne.URIWriteCloser, err error) {
			if err != nil || wr == nil {
				return
			}
			p := wr.URI().Path()
			_ = wr.Close()
			if err := export.ExportBoardPNG(bh, p, export.PNGOptions{}); err != nil {
				dialog.ShowError(err, w)
				return
			}
			status.SetText("Exported " + p)
		}, w)
	}

	// Main menu with recent boards
	recentItems := []*fyne.MenuItem{}
	for _, dir := range loadRecentBoards(prefs) {
		d := dir
		recentItems = append(recentItems, fyne.NewMenuItem(d, func() {
			if err := openBoard(d); err != nil {
				dialog.ShowError(err, w)
			}
		}))
	}
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("New Board...", newBoard),
		fyne.NewMenuItem("Open Board...", open),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export PDF...", exportPDF),
		fyne.NewMenuItem("Export PNG...", exportPNG),
	)
	if len(recentItems) > 0 {
		recent := fyne.NewMenuItem("Open Recent", nil)
		recent.ChildMenu = fyne.NewMenu("", recentItems...)
		fileMenu.Items = append(fileMenu.Items, fyne.NewMenuItemSeparator(), recent)
	}
	w.SetMainMenu(fyne.NewMainMenu(fileMenu))

	// Track modifier keys for wheel-zoom intent
	if dc, ok := w.Canvas().(desktop.Canvas); ok {
		dc.SetOnKeyDown(func(e *fyne.KeyEvent) {
			switch e.Name {
			case desktop.KeyControlLeft, desktop.KeyControlRight:
				bcanvas.SetCtrl(true)
			case desktop.KeySuperLeft, desktop.KeySuperRight:
				bcanvas.SetMeta(true)
			}
		})
		dc.SetOnKeyUp(func(e *fyne.KeyEvent) {
			switch e.Name {
			case desktop.KeyControlLeft, desktop.KeyControlRight:
				bcanvas.SetCtrl(false)
			case desktop.KeySuperLeft, desktop.KeySuperRight:
				bcanvas.SetMeta(false)
			}
		})
	}

	toolbar := container.NewBorder(nil, nil,
		container.NewHBox(widget.NewButton("New", newBoard), widget.NewButton("Open", open)),
		container.NewHBox(addBtn, pasteBtn, importBtn, deleteBtn, widget.NewButton("PDF", exportPDF), widget.NewButton("PNG", exportPNG)),
		addEntry,
	)
	left := container.NewBorder(widget.NewLabel("Items"), nil, nil, nil, itemsList)
	right := container.NewBorder(container.NewVBox(widget.NewLabel("Search"), searchEntry), nil, nil, nil, resultsList)
	content := container.NewBorder(toolbar, status, left, right, bcanvas)
	w.SetContent(content)

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		if host != nil {
			host.Destroy()
		}
		w.Close()
	})

	dir := boardDir
	if dir == "" {
		dir = cfg.Canvas.LastBoard
	}
	if dir != "" {
		if err := openBoard(dir); err != nil {
			l.Warn("could not open board", slog.String("dir", dir), slog.Any("err", err))
			status.SetText("Could not open " + dir + ": " + err.Error())
		}
	}

	w.ShowAndRun()
	return nil
}

func itemSummary(it board.Item) string {
	first := it.Content
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	if it.Kind == board.KindImage {
		first = filepath.Base(it.AssetPath)
	}
	if len(first) > 40 {
		first = first[:40] + "..."
	}
	return fmt.Sprintf("%s: %s", it.Kind, first)
}

// Recent board persistence helpers
const recentPrefsKey = "recent.boards"
const recentMax = 10

func loadRecentBoards(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return nil
		}
	}
	return items
}

func saveRecentBoards(p fyne.Preferences, items []string) {
	if len(items) > recentMax {
		items = items[:recentMax]
	}
	b, err := json.Marshal(items)
	if err != nil {
		return
	}
	p.SetString(recentPrefsKey, string(b))
}

func addRecentBoard(p fyne.Preferences, path string) {
	items := loadRecentBoards(p)
	out := []string{path}
	for _, it := range items {
		if it != path {
			out = append(out, it)
		}
	}
	saveRecentBoards(p, out)
}

// BoardCanvas is the infinite note surface. It renders items through the
// viewport transform and forwards pointer and wheel input to the gesture
// controllers.
type BoardCanvas struct {
	widget.BaseWidget

	host  *canvas.Host
	nodes map[string]*itemNode
	order []string // creation order; later entries draw on top

	ctrl bool
	meta bool

	// OnSelect fires when a click changes the selection; id is empty when
	// the background was clicked.
	OnSelect func(id string)
}

func NewBoardCanvas() *BoardCanvas {
	bc := &BoardCanvas{nodes: make(map[string]*itemNode)}
	bc.ExtendBaseWidget(bc)
	return bc
}

// SetHost attaches the gesture host. Any previously mounted nodes are
// dropped; the caller re-mounts the new board's items.
func (c *BoardCanvas) SetHost(h *canvas.Host) {
	c.host = h
	c.nodes = make(map[string]*itemNode)
	c.order = c.order[:0]
	c.Refresh()
}

// MountItem creates a visual node for the item record and registers it with
// the gesture controllers. rootDir resolves relative asset paths.
func (c *BoardCanvas) MountItem(it board.Item, rootDir string) {
	if c.host == nil {
		return
	}
	n := &itemNode{
		owner:   c,
		id:      it.ID,
		kind:    it.Kind,
		content: it.Content,
		offset:  geom.Pt{X: float32(it.Position.X), Y: float32(it.Position.Y)},
		imgSX:   1,
		imgSY:   1,
	}
	if it.AssetPath != "" {
		n.assetPath = filepath.Join(rootDir, filepath.FromSlash(it.AssetPath))
	}
	if it.NaturalSize != nil {
		n.natural = geom.Size{W: float32(it.NaturalSize.W), H: float32(it.NaturalSize.H)}
		n.hasNatural = true
	}
	if it.Size != nil {
		n.size = geom.Size{W: float32(it.Size.W), H: float32(it.Size.H)}
	} else {
		n.size = defaultSizeFor(it.Kind, n)
	}
	if n.hasNatural && n.natural.W > 0 && n.natural.H > 0 {
		n.imgSX = n.size.W / n.natural.W
		n.imgSY = n.size.H / n.natural.H
	}
	c.nodes[it.ID] = n
	c.order = append(c.order, it.ID)
	c.host.Mount(it, n)
	c.Refresh()
}

// UnmountItem removes the item's node and gesture registrations.
func (c *BoardCanvas) UnmountItem(id string) {
	if c.host != nil {
		c.host.Unmount(id)
	}
	delete(c.nodes, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.Refresh()
}

// DropPosition is where newly added items land: the world point under the
// center of the visible canvas.
func (c *BoardCanvas) DropPosition() board.Position {
	if c.host == nil {
		return board.Position{}
	}
	sz := c.Size()
	p := c.host.Viewport().ScreenToCanvas(sz.Width/2, sz.Height/2)
	return board.Position{X: float64(p.X), Y: float64(p.Y)}
}

func (c *BoardCanvas) SetCtrl(v bool) { c.ctrl = v }
func (c *BoardCanvas) SetMeta(v bool) { c.meta = v }

func (c *BoardCanvas) PreferredSize() fyne.Size { return fyne.NewSize(900, 700) }

func defaultSizeFor(kind board.ItemKind, n *itemNode) geom.Size {
	switch kind {
	case board.KindImage:
		if n.hasNatural {
			return n.natural
		}
		return geom.Size{W: export.DefaultImageW, H: export.DefaultImageH}
	case board.KindLink:
		return geom.Size{W: export.DefaultTextW, H: export.DefaultLinkH}
	default:
		return geom.Size{W: export.DefaultTextW, H: export.DefaultTextH}
	}
}

// Coordinate helpers: world <-> screen mapping through the viewport.
func (c *BoardCanvas) toScreen(p geom.Pt) fyne.Position {
	vp := c.host.Viewport()
	s := vp.Scale()
	t := vp.Translate()
	return fyne.NewPos(p.X*s+t.X, p.Y*s+t.Y)
}

func (c *BoardCanvas) toWorld(pos fyne.Position) geom.Pt {
	return c.host.Viewport().ScreenToCanvas(pos.X, pos.Y)
}

// nodeAt returns the top-most node under the screen position, if any.
func (c *BoardCanvas) nodeAt(pos fyne.Position) *itemNode {
	if c.host == nil {
		return nil
	}
	wp := c.toWorld(pos)
	for i := len(c.order) - 1; i >= 0; i-- {
		n := c.nodes[c.order[i]]
		if n == nil {
			continue
		}
		o, s := n.offset, n.size
		if wp.X >= o.X && wp.X <= o.X+s.W && wp.Y >= o.Y && wp.Y <= o.Y+s.H {
			return n
		}
	}
	return nil
}

const handleHitSize = 12 // screen px

// handleAt hit-tests the selected node's corner handles in screen space.
func (c *BoardCanvas) handleAt(pos fyne.Position) (n *itemNode, corner canvas.Corner, ok bool) {
	if c.host == nil {
		return nil, 0, false
	}
	sel := c.host.Selected()
	if sel == "" {
		return nil, 0, false
	}
	n = c.nodes[sel]
	if n == nil || !n.handles {
		return nil, 0, false
	}
	s := c.host.Viewport().Scale()
	p0 := c.toScreen(n.offset)
	w := n.size.W * s
	h := n.size.H * s
	corners := []struct {
		c    canvas.Corner
		x, y float32
	}{
		{canvas.CornerTopLeft, p0.X, p0.Y},
		{canvas.CornerTopRight, p0.X + w, p0.Y},
		{canvas.CornerBottomLeft, p0.X, p0.Y + h},
		{canvas.CornerBottomRight, p0.X + w, p0.Y + h},
	}
	half := float32(handleHitSize) / 2
	for _, cc := range corners {
		if pos.X >= cc.x-half && pos.X <= cc.x+half && pos.Y >= cc.y-half && pos.Y <= cc.y+half {
			return n, cc.c, true
		}
	}
	return nil, 0, false
}

func mapButton(b desktop.MouseButton) canvas.Button {
	switch b {
	case desktop.MouseButtonPrimary:
		return canvas.ButtonPrimary
	case desktop.MouseButtonSecondary:
		return canvas.ButtonSecondary
	default:
		return canvas.ButtonOther
	}
}

// MouseDown routes a press to the handle, item, or background controller.
func (c *BoardCanvas) MouseDown(ev *desktop.MouseEvent) {
	if c.host == nil {
		return
	}
	pe := canvas.PointerEvent{X: ev.Position.X, Y: ev.Position.Y, Button: mapButton(ev.Button)}
	if n, corner, ok := c.handleAt(ev.Position); ok {
		c.host.HandlePointerDown(n.id, corner, pe)
		return
	}
	if n := c.nodeAt(ev.Position); n != nil {
		c.host.Select(n.id)
		if c.OnSelect != nil {
			c.OnSelect(n.id)
		}
		c.host.ItemPointerDown(n.id, pe)
		c.Refresh()
		return
	}
	c.host.Select("")
	if c.OnSelect != nil {
		c.OnSelect("")
	}
	c.host.BackgroundPointerDown(pe)
	c.Refresh()
}

func (c *BoardCanvas) MouseUp(ev *desktop.MouseEvent) {
	if c.host == nil {
		return
	}
	c.host.PointerUp(canvas.PointerEvent{X: ev.Position.X, Y: ev.Position.Y, Button: mapButton(ev.Button)})
}

func (c *BoardCanvas) MouseIn(*desktop.MouseEvent) {}
func (c *BoardCanvas) MouseOut()                   {}

// MouseMoved feeds every move to the host; controllers ignore moves unless a
// gesture is active.
func (c *BoardCanvas) MouseMoved(ev *desktop.MouseEvent) {
	if c.host == nil {
		return
	}
	c.host.PointerMove(canvas.PointerEvent{X: ev.Position.X, Y: ev.Position.Y})
}

// Scrolled translates Fyne wheel deltas to the host's convention: negative
// DY means the wheel moved away from the user.
func (c *BoardCanvas) Scrolled(e *fyne.ScrollEvent) {
	if c.host == nil {
		return
	}
	c.host.Wheel(canvas.WheelEvent{
		X:    e.Position.X,
		Y:    e.Position.Y,
		DX:   -e.Scrolled.DX,
		DY:   -e.Scrolled.DY,
		Mode: canvas.DeltaPixel,
		Ctrl: c.ctrl,
		Meta: c.meta,
	})
}

func (c *BoardCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := fcanvas.NewRectangle(color.RGBA{R: 247, G: 247, B: 243, A: 255})
	var handles [4]*fcanvas.Rectangle
	for i := range handles {
		h := fcanvas.NewRectangle(color.RGBA{R: 0, G: 122, B: 255, A: 255})
		h.Hide()
		handles[i] = h
	}
	return &boardCanvasRenderer{bc: c, bg: bg, handles: handles, visuals: make(map[string]*nodeVisual)}
}

// itemNode is the live visual state of one item. Gesture controllers mutate
// it on every pointer event; the renderer reads it on each layout pass.
type itemNode struct {
	owner     *BoardCanvas
	id        string
	kind      board.ItemKind
	content   string
	assetPath string

	offset geom.Pt
	size   geom.Size

	lifted  bool
	handles bool

	imgSX, imgSY float32
	natural      geom.Size
	hasNatural   bool
}

func (n *itemNode) Offset() geom.Pt { return n.offset }
func (n *itemNode) SetOffset(p geom.Pt) {
	n.offset = p
	n.owner.Refresh()
}

func (n *itemNode) Size() geom.Size { return n.size }
func (n *itemNode) Resize(s geom.Size) {
	n.size = s
	n.owner.Refresh()
}

func (n *itemNode) SetLifted(v bool) {
	n.lifted = v
	n.owner.Refresh()
}

func (n *itemNode) ShowHandles(v bool) {
	n.handles = v
	n.owner.Refresh()
}

func (n *itemNode) ImageNaturalSize() (geom.Size, bool) {
	return n.natural, n.hasNatural
}

func (n *itemNode) SetImageScale(sx, sy float32) {
	n.imgSX = sx
	n.imgSY = sy
	n.owner.Refresh()
}

// nodeVisual holds the Fyne objects rendering one node.
type nodeVisual struct {
	body *fcanvas.Rectangle
	text *fcanvas.Text
	img  *fcanvas.Image
}

type boardCanvasRenderer struct {
	bc      *BoardCanvas
	bg      *fcanvas.Rectangle
	handles [4]*fcanvas.Rectangle
	visuals map[string]*nodeVisual
	objects []fyne.CanvasObject
}

func (r *boardCanvasRenderer) Destroy()                     {}
func (r *boardCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *boardCanvasRenderer) MinSize() fyne.Size           { return fyne.NewSize(400, 300) }
func (r *boardCanvasRenderer) Refresh() {
	r.Layout(r.bc.Size())
	fcanvas.Refresh(r.bc)
}

func newNodeVisual(n *itemNode) *nodeVisual {
	v := &nodeVisual{}
	v.body = fcanvas.NewRectangle(color.RGBA{R: 255, G: 252, B: 230, A: 255})
	v.body.StrokeColor = color.RGBA{R: 120, G: 120, B: 110, A: 255}
	v.body.StrokeWidth = 1
	switch n.kind {
	case board.KindImage:
		v.img = fcanvas.NewImageFromFile(n.assetPath)
		v.img.FillMode = fcanvas.ImageFillStretch
	case board.KindLink:
		v.text = fcanvas.NewText(n.content, color.RGBA{R: 0, G: 90, B: 200, A: 255})
	default:
		v.text = fcanvas.NewText(firstLine(n.content), color.RGBA{R: 40, G: 40, B: 40, A: 255})
	}
	return v
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func (r *boardCanvasRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	bc := r.bc
	// Rebuild draw list: background, nodes in creation order, handles on top.
	objs := make([]fyne.CanvasObject, 0, 1+3*len(bc.order)+4)
	objs = append(objs, r.bg)

	if bc.host == nil {
		for _, h := range r.handles {
			h.Hide()
			objs = append(objs, h)
		}
		r.objects = objs
		return
	}

	vscale := bc.host.Viewport().Scale()
	var selected *itemNode
	for _, id := range bc.order {
		n := bc.nodes[id]
		if n == nil {
			continue
		}
		v := r.visuals[id]
		if v == nil {
			v = newNodeVisual(n)
			r.visuals[id] = v
		}
		p0 := bc.toScreen(n.offset)
		w := n.size.W * vscale
		h := n.size.H * vscale

		v.body.Resize(fyne.NewSize(w, h))
		v.body.Move(p0)
		if n.lifted {
			v.body.StrokeWidth = 2
			v.body.StrokeColor = color.RGBA{R: 60, G: 60, B: 50, A: 255}
		} else {
			v.body.StrokeWidth = 1
			v.body.StrokeColor = color.RGBA{R: 120, G: 120, B: 110, A: 255}
		}
		objs = append(objs, v.body)

		if v.img != nil {
			cw, ch := w, h
			if n.hasNatural {
				cw = n.natural.W * n.imgSX * vscale
				ch = n.natural.H * n.imgSY * vscale
			}
			v.img.Resize(fyne.NewSize(cw, ch))
			v.img.Move(p0)
			objs = append(objs, v.img)
		}
		if v.text != nil {
			pad := 6 * vscale
			v.text.TextSize = 13 * vscale
			v.text.Move(fyne.NewPos(p0.X+pad, p0.Y+pad))
			objs = append(objs, v.text)
		}
		if n.handles {
			selected = n
		}
	}

	// Drop visuals for nodes that were unmounted.
	for id := range r.visuals {
		if _, ok := bc.nodes[id]; !ok {
			delete(r.visuals, id)
		}
	}

	hs := float32(8)
	if selected != nil {
		p0 := bc.toScreen(selected.offset)
		w := selected.size.W * vscale
		h := selected.size.H * vscale
		pts := [4]fyne.Position{
			fyne.NewPos(p0.X-hs/2, p0.Y-hs/2),
			fyne.NewPos(p0.X+w-hs/2, p0.Y-hs/2),
			fyne.NewPos(p0.X-hs/2, p0.Y+h-hs/2),
			fyne.NewPos(p0.X+w-hs/2, p0.Y+h-hs/2),
		}
		for i, hrect := range r.handles {
			hrect.Show()
			hrect.Resize(fyne.NewSize(hs, hs))
			hrect.Move(pts[i])
			objs = append(objs, hrect)
		}
	} else {
		for _, hrect := range r.handles {
			hrect.Hide()
			objs = append(objs, hrect)
		}
	}
	r.objects = objs
}
