package cmd

import (
	"fmt"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spf13/cobra"

	"github.com/scarab-term/scarab/internal/atlas"
	"github.com/scarab-term/scarab/internal/clientsync"
	"github.com/scarab-term/scarab/internal/control"
	"github.com/scarab-term/scarab/internal/gpuinput"
	"github.com/scarab-term/scarab/internal/gpurender"
	"github.com/scarab-term/scarab/internal/protocol"
	"github.com/scarab-term/scarab/internal/sharedgrid"
)

const (
	defaultCols    = 80
	defaultRows    = 24
	atlasSize      = 1024
	fontPoints     = 14
	fontDPI        = 96
	renderTickRate = time.Second / 60
)

func newAttachCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attach <name>",
		Short: "Attach a GPU window to a session, starting one if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAttach(args[0])
		},
	}
}

// runAttach implements spec.md §4.9's client lifecycle: connect, resolve
// or create the named session, attach, map the shared grid, open a GPU
// window, and run the sync/render/input loop until the window closes.
func runAttach(name string) error {
	client, err := dialDaemon()
	if err != nil {
		return err
	}
	defer client.Close()

	sessionID, err := ensureSession(client, name)
	if err != nil {
		return err
	}

	var attached protocol.Attached
	attachReq := protocol.Attach{SessionID: sessionID, Cols: defaultCols, Rows: defaultRows}
	if err := client.Call(protocol.TagAttach, attachReq, &attached); err != nil {
		return fmt.Errorf("attach: %w", err)
	}

	region, err := sharedgrid.Open(attached.RegionName, int(attached.Cols), int(attached.Rows))
	if err != nil {
		return sharedMemoryError("attach: open shared grid %q: %v", attached.RegionName, err)
	}
	defer region.Close()

	face, err := atlas.LoadFace(atlas.DefaultFontData(), fontPoints, fontDPI)
	if err != nil {
		return fmt.Errorf("attach: load font: %w", err)
	}
	cellW, cellH := atlas.CellMetrics(face)
	glyphAtlas := atlas.New(face, atlasSize)

	win, err := gpurender.NewWindow(fmt.Sprintf("scarab — %s", name), int(attached.Cols)*cellW, int(attached.Rows)*cellH)
	if err != nil {
		return fmt.Errorf("attach: open window: %w", err)
	}
	defer win.Close()

	renderer, err := gpurender.NewRenderer()
	if err != nil {
		return fmt.Errorf("attach: init renderer: %w", err)
	}
	defer renderer.Close()

	sess := &attachSession{client: client}
	win.Handle().SetKeyCallback(sess.onKey)
	win.Handle().SetCharCallback(sess.onChar)
	win.Handle().SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		win.SetSize(width, height)
		sess.sendResize(width/cellW, height/cellH)
	})

	loop := clientsync.New(region)
	ticker := time.NewTicker(renderTickRate)
	defer ticker.Stop()

	for !win.ShouldClose() {
		<-ticker.C
		// Poll reports the dirty span the seqlock read actually covered;
		// BuildMesh regenerates only that span in the common case, falling
		// back to a full-grid read only when Poll itself had to (its
		// seqlock retries were exhausted), per spec.md's "mesh
		// regeneration proportional to dirty-cell count" requirement.
		if upd, ok := loop.Poll(); ok {
			cells, minRow, cols := upd.Cells, int(upd.MinRow), int(upd.Header.Cols)
			if upd.Full {
				minRow = 0
			}
			verts, err := atlas.BuildMesh(glyphAtlas, cells, cols, minRow, atlas.BuildMeshOptions{
				Cell:        atlas.CellSize{Width: float32(cellW), Height: float32(cellH)},
				CursorCol:   int(upd.Header.CursorCol),
				CursorRow:   int(upd.Header.CursorRow),
				CursorOn:    true,
				CursorStyle: atlas.CursorBlock,
			})
			if err != nil {
				return fmt.Errorf("attach: build mesh: %w", err)
			}
			sess.lastVerts = verts
		}
		renderer.SyncAtlas(glyphAtlas)
		fbWidth, fbHeight := win.Size()
		renderer.DrawFrame(sess.lastVerts, fbWidth, fbHeight, [4]float32{0, 0, 0, 1})
		win.SwapBuffers()
	}

	_ = client.Call(protocol.TagDetach, protocol.Detach{}, nil)
	return nil
}

// ensureSession resolves name to a session id, creating a new session if
// none with that name exists yet (spec.md §6.1: attach starts one on
// demand rather than requiring a separate `new` call first).
func ensureSession(client *control.Client, name string) (protocol.SessionID, error) {
	id, err := resolveSessionByName(client, name)
	if err == nil {
		return id, nil
	}

	var created protocol.SessionCreated
	if err := client.Call(protocol.TagSessionCreate, protocol.SessionCreate{Name: name}, &created); err != nil {
		return "", fmt.Errorf("create session %q: %w", name, err)
	}
	return created.ID, nil
}

// attachSession bundles the live connection state the GLFW callbacks
// close over: the control connection for forwarding input, and the last
// mesh drawn each frame (callbacks don't rebuild it, only the poll loop
// does).
type attachSession struct {
	client    *control.Client
	lastVerts []atlas.Vertex
}

func (s *attachSession) onKey(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, mods glfw.ModifierKey) {
	if action == glfw.Release {
		return
	}
	if data, ok := gpuinput.TranslateKey(key, mods, false); ok {
		s.sendInput(data)
	}
}

func (s *attachSession) onChar(_ *glfw.Window, char rune) {
	s.sendInput(gpuinput.TranslateChar(char, 0))
}

func (s *attachSession) sendInput(data []byte) {
	payload, err := protocol.Encode(protocol.Input{Bytes: data})
	if err != nil {
		return
	}
	_ = protocol.WriteFrame(s.client.Conn(), protocol.TagInput, payload)
}

func (s *attachSession) sendResize(cols, rows int) {
	if cols <= 0 || rows <= 0 {
		return
	}
	payload, err := protocol.Encode(protocol.Resize{Cols: uint16(cols), Rows: uint16(rows)})
	if err != nil {
		return
	}
	_ = protocol.WriteFrame(s.client.Conn(), protocol.TagResize, payload)
}
