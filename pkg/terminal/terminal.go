// Package terminal serves interpreter sessions over websockets. Each
// connection gets a dedicated interpreter whose output streams back as
// text frames; incoming frames are input lines, with a lone 0x03 byte
// raising the interrupt flag the way Ctrl-C does on a local terminal.
package terminal

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/journich/altairbasic/pkg/auth"
	"github.com/journich/altairbasic/pkg/configuration"
	"github.com/journich/altairbasic/pkg/logger"
	"github.com/journich/altairbasic/pkg/session"
)

// interruptByte is the single-byte frame that maps to Ctrl-C.
const interruptByte = 0x03

// Bridge wires websocket connections to interpreter sessions.
type Bridge struct {
	sessions *session.Manager
	authSvc  *auth.Service
	upgrader websocket.Upgrader
}

// NewBridge builds the bridge over a session registry and auth service.
func NewBridge(sessions *session.Manager, authSvc *auth.Service) *Bridge {
	maxKB := configuration.GetInt("Network", "max_message_size_kb", 64)
	return &Bridge{
		sessions: sessions,
		authSvc:  authSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  maxKB * 1024,
			WriteBufferSize: maxKB * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Register installs the HTTP handlers.
func (b *Bridge) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/register", b.handleRegister)
	mux.HandleFunc("/api/login", b.handleLogin)
	mux.HandleFunc("/ws", b.handleWS)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (b *Bridge) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if err := b.authSvc.Register(creds.Username, creds.Password); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (b *Bridge) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if err := b.authSvc.Authenticate(creds.Username, creds.Password); err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	sid := uuid.NewString()
	token, err := auth.IssueToken(sid, creds.Username)
	if err != nil {
		http.Error(w, "token error", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"token": token, "session": sid})
}

// wsWriter serializes interpreter output into text frames.
type wsWriter struct {
	conn      *websocket.Conn
	mu        sync.Mutex
	writeWait time.Duration
}

func (w *wsWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn.SetWriteDeadline(time.Now().Add(w.writeWait))
	if err := w.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsWriter) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn.SetWriteDeadline(time.Now().Add(w.writeWait))
	return w.conn.WriteMessage(websocket.PingMessage, nil)
}

// lineFeed adapts a channel of input lines to the io.Reader the
// interpreter's INPUT statement expects. One line per Read call.
type lineFeed struct {
	ch      chan string
	pending []byte
}

func (f *lineFeed) Read(p []byte) (int, error) {
	if len(f.pending) == 0 {
		line, ok := <-f.ch
		if !ok {
			return 0, io.EOF
		}
		f.pending = append([]byte(line), '\n')
	}
	n := copy(p, f.pending)
	f.pending = f.pending[n:]
	return n, nil
}

// handleWS upgrades the connection and runs the session until either side
// goes away.
func (b *Bridge) handleWS(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.VerifyToken(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error(logger.AreaTerminal, "websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	pongWait := configuration.GetDuration("Network", "pong_timeout", 90*time.Second)
	writeWait := configuration.GetDuration("Network", "write_wait_timeout", 10*time.Second)
	maxKB := configuration.GetInt("Network", "max_message_size_kb", 64)

	conn.SetReadLimit(int64(maxKB) * 1024)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	out := &wsWriter{conn: conn, writeWait: writeWait}
	feed := &lineFeed{ch: make(chan string, 64)}

	sess := b.sessions.Create(claims.Username, feed, out)
	defer b.sessions.Remove(sess.ID)
	interp := sess.Interp

	logger.Info(logger.AreaTerminal, "websocket session %s up for %q", sess.ID, claims.Username)

	// The worker consumes lines from the same channel the INPUT statement
	// reads from; while a program is waiting for input, the next frame
	// lands there instead of being treated as a command.
	done := make(chan struct{})
	go func() {
		defer close(done)
		interp.PrintBanner()
		interp.PrintOK()
		for line := range feed.ch {
			sess.Touch()
			interp.ExecuteLine(line)
			interp.PrintOK()
		}
	}()

	// Keep the connection alive under proxies.
	pingStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pongWait * 9 / 10)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if out.ping() != nil {
					return
				}
			case <-pingStop:
				return
			}
		}
	}()
	defer close(pingStop)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			logger.Debug(logger.AreaTerminal, "session %s read closed: %v", sess.ID, err)
			break
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		if len(data) == 1 && data[0] == interruptByte {
			interp.Interrupt()
			continue
		}
		select {
		case feed.ch <- string(data):
		default:
			logger.Warn(logger.AreaTerminal, "session %s input overrun, frame dropped", sess.ID)
		}
	}

	close(feed.ch)
	interp.Interrupt()
	<-done
}

// Serve runs the HTTP server on the configured port. Blocks until the
// listener fails.
func Serve(bridge *Bridge) error {
	mux := http.NewServeMux()
	bridge.Register(mux)
	addr := ":" + configuration.GetString("Server", "port", "8080")
	logger.Info(logger.AreaTerminal, "serving on %s", addr)
	return http.ListenAndServe(addr, mux)
}
