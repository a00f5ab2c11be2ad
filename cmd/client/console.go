package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/GriffinCanCode/webterminator/internal/client/desktop"
	"github.com/GriffinCanCode/webterminator/internal/client/pointer"
	"github.com/GriffinCanCode/webterminator/internal/client/shortcut"
	"github.com/GriffinCanCode/webterminator/internal/client/taskbar"
	"github.com/GriffinCanCode/webterminator/internal/client/transport"
	"github.com/GriffinCanCode/webterminator/internal/client/vtrender"
	"github.com/GriffinCanCode/webterminator/internal/infrastructure/logging"
)

const (
	quitKey        = 0x1d // Ctrl+]
	altScreenOn    = "\x1b[?1049h"
	altScreenOff   = "\x1b[?1049l"
	showCursor     = "\x1b[?25h"
	hideCursor     = "\x1b[?25l"
	cursorHome     = "\x1b[H"
	clearLineRight = "\x1b[K"
)

// console ties the window manager to a raw-mode terminal.
type console struct {
	out    io.Writer
	logger *zap.Logger

	manager    *desktop.Manager
	taskbar    *taskbar.Model
	pointer    *pointer.Controller
	dispatcher *shortcut.Dispatcher

	mu         sync.Mutex
	cols, rows int

	dirty chan struct{}
}

// sessionEvents forwards server frames to the window manager and
// schedules a redraw.
type sessionEvents struct {
	console *console
}

func (e *sessionEvents) HandleData(id string, data []byte) {
	if e.console.manager.HandleData(id, data) {
		e.console.invalidate()
	}
}

func (e *sessionEvents) HandleExit(id string, code, signal int) {
	e.console.manager.HandleExit(id, code, signal)
	e.console.invalidate()
}

func (e *sessionEvents) HandleError(id, code, message string) {
	e.console.manager.HandleError(id, code, message)
	e.console.invalidate()
}

func newLogger(opts options) (*logging.Logger, error) {
	if opts.logFile == "" {
		return logging.NewNop(), nil
	}
	return logging.New(logging.Config{
		Level:       opts.logLevel,
		OutputPaths: []string{opts.logFile},
	})
}

func run(ctx context.Context, opts options) error {
	logger, err := newLogger(opts)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	km, err := loadKeymap(opts.keymap)
	if err != nil {
		return err
	}

	inFd, outFd := int(os.Stdin.Fd()), int(os.Stdout.Fd())
	if !term.IsTerminal(inFd) || !term.IsTerminal(outFd) {
		return errors.New("webterm needs an interactive terminal")
	}
	cols, rows, err := term.GetSize(outFd)
	if err != nil {
		return fmt.Errorf("failed to read terminal size: %w", err)
	}

	namespace := opts.namespace
	if namespace == "" {
		namespace = uuid.NewString()[:8]
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events := &sessionEvents{}
	client, err := transport.Dial(ctx, opts.server, events,
		transport.WithLogger(logger.Named("transport").Logger))
	if err != nil {
		return err
	}

	model := taskbar.NewModel()
	tbSync := taskbar.NewSync(model)
	manager := desktop.NewManager(vtrender.NewFactory(), client,
		desktop.WithTaskbar(tbSync),
		desktop.WithLogger(logger.Named("desktop").Logger),
		desktop.WithNamespace(namespace),
		desktop.WithDesktopSize(desktopSize(cols, rows)),
	)
	tbSync.Bind(manager)

	con := &console{
		out:     os.Stdout,
		logger:  logger.Logger,
		manager: manager,
		taskbar: model,
		pointer: pointer.New(manager, model),
		dispatcher: shortcut.NewDispatcher(manager,
			shortcut.WithKeymap(km),
			shortcut.WithClipboard(shortcut.SystemClipboard{}),
			shortcut.WithLogger(logger.Named("shortcut").Logger),
		),
		cols:  cols,
		rows:  rows,
		dirty: make(chan struct{}, 1),
	}
	events.console = con

	state, err := term.MakeRaw(inFd)
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	fmt.Fprint(os.Stdout, altScreenOn+enableMouse)
	defer func() {
		fmt.Fprint(os.Stdout, disableMouse+showCursor+altScreenOff)
		_ = term.Restore(inFd, state)
	}()

	logger.Info("Console client started",
		zap.String("server", opts.server),
		zap.String("namespace", namespace),
		logging.Size(cols, rows),
	)

	manager.CreateWindow()
	con.invalidate()

	go con.renderLoop(ctx)
	go con.inputLoop(os.Stdin, cancel)
	go con.watchSize(ctx, outFd)

	err = client.Run(ctx)
	con.dispatcher.Wait()
	return err
}

func (c *console) invalidate() {
	select {
	case c.dirty <- struct{}{}:
	default:
	}
}

func (c *console) size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cols, c.rows
}

func (c *console) renderLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.dirty:
			c.draw()
			// Coalesce bursts of output into one frame.
			time.Sleep(desktop.FrameInterval)
		}
	}
}

func (c *console) screenOf(id string) screen {
	r, ok := c.manager.Renderer(id)
	if !ok {
		return nil
	}
	s, _ := r.(screen)
	return s
}

func (c *console) draw() {
	cols, rows := c.size()
	cv := compose(c.manager.Snapshot(), c.screenOf, cols, rows, c.taskbar.String())

	var b strings.Builder
	b.WriteString(hideCursor + cursorHome)
	for i, line := range cv.lines() {
		if i > 0 {
			b.WriteString("\r\n")
		}
		b.WriteString(line)
		b.WriteString(clearLineRight)
	}
	if cv.shown {
		fmt.Fprintf(&b, "\x1b[%d;%dH%s", cv.cursor[1]+1, cv.cursor[0]+1, showCursor)
	}
	if _, err := io.WriteString(c.out, b.String()); err != nil {
		c.logger.Debug("Draw failed", zap.Error(err))
	}
}

func (c *console) inputLoop(in io.Reader, quit context.CancelFunc) {
	buf := make([]byte, 4096)
	for {
		n, err := in.Read(buf)
		if err != nil {
			quit()
			return
		}
		if !c.handleInput(buf[:n]) {
			quit()
			return
		}
	}
}

// handleInput routes one read from the console. It returns false when the
// user asked to quit.
func (c *console) handleInput(p []byte) bool {
	if len(p) == 1 && p[0] == quitKey {
		return false
	}
	defer c.invalidate()

	if events, ok := parseMouse(p); ok {
		for _, ev := range events {
			c.handleMouse(ev)
		}
		return true
	}

	if ev, ok := shortcut.ConsoleKey(p); ok && c.dispatcher.Dispatch(ev) {
		return true
	}

	if s, ok := c.manager.Renderer(c.manager.ActiveID()); ok {
		if typer, ok := s.(interface{ Type(p []byte) }); ok {
			typer.Type(append([]byte(nil), p...))
		}
	}
	return true
}

func (c *console) handleMouse(ev mouseEvent) {
	at := pointer.Point{X: ev.Col * cellW, Y: ev.Row * cellH}
	switch {
	case ev.Release:
		c.pointer.Release()
		return
	case ev.motion():
		c.pointer.Move(at)
		return
	case ev.wheel() || !ev.left():
		return
	}

	_, rows := c.size()
	if ev.Row == rows-1 {
		if id, ok := c.taskbar.ItemAt(ev.Col); ok {
			c.manager.ActivateFromTaskbar(id)
		}
		return
	}

	h := hitTest(c.manager.Snapshot(), ev.Col, ev.Row)
	switch h.Zone {
	case zoneHeader:
		c.pointer.BeginDrag(h.ID, at)
	case zoneResize:
		c.pointer.BeginResize(h.ID, pointer.EdgeS|pointer.EdgeE, at)
	case zoneMinimize:
		c.manager.Minimize(h.ID)
	case zoneMaximize:
		c.manager.Maximize(h.ID)
	case zoneClose:
		c.manager.Close(h.ID)
	case zoneBody:
		c.manager.SetActive(h.ID)
	}
}

func (c *console) watchSize(ctx context.Context, fd int) {
	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	defer signal.Stop(winch)

	for {
		select {
		case <-ctx.Done():
			return
		case <-winch:
			cols, rows, err := term.GetSize(fd)
			if err != nil {
				continue
			}
			c.mu.Lock()
			c.cols, c.rows = cols, rows
			c.mu.Unlock()
			c.manager.SetDesktopSize(desktopSize(cols, rows))
			c.invalidate()
		}
	}
}
