package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// broadcastInterval is how often the live feed pushes a fresh snapshot to
// connected clients when at least one is listening.
const broadcastInterval = 5 * time.Second

// LiveServer streams the coordinator's published Snapshot to connected
// clients over a websocket, alongside plain HTTP status endpoints.
type LiveServer struct {
	coordinator *Coordinator
	server      *http.Server
	port        int
	upgrader    websocket.Upgrader
	clients     sync.Map
	broadcast   chan []byte
	done        chan struct{}
}

// NewLiveServer builds a live-status server; port <= 0 disables it.
func NewLiveServer(coordinator *Coordinator, port int) *LiveServer {
	if port <= 0 {
		return nil
	}

	mux := http.NewServeMux()
	ls := &LiveServer{
		coordinator: coordinator,
		port:        port,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		broadcast: make(chan []byte, 256),
		done:      make(chan struct{}),
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	mux.HandleFunc("/api/snapshot", ls.snapshotHandler)
	mux.HandleFunc("/api/ws", ls.wsHandler)

	return ls
}

// Start runs the broadcaster and the HTTP listener in background goroutines.
func (ls *LiveServer) Start() error {
	if ls == nil {
		return nil
	}
	go ls.handleBroadcasts()
	go ls.broadcastLoop()
	go func() {
		if err := ls.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("live server error: %v\n", err)
		}
	}()
	return nil
}

// Stop closes the broadcaster and shuts the HTTP listener down.
func (ls *LiveServer) Stop(ctx context.Context) error {
	if ls == nil {
		return nil
	}
	close(ls.done)
	return ls.server.Shutdown(ctx)
}

func (ls *LiveServer) snapshotHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ls.coordinator.Snapshot())
}

func (ls *LiveServer) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := ls.upgrader.Upgrade(w, r, nil)
	if err != nil {
		fmt.Printf("websocket upgrade error: %v\n", err)
		return
	}
	ls.clients.Store(conn, true)

	if err := conn.WriteJSON(ls.coordinator.Snapshot()); err != nil {
		fmt.Printf("failed to send initial snapshot: %v\n", err)
	}

	defer func() {
		ls.clients.Delete(conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				fmt.Printf("websocket error: %v\n", err)
			}
			break
		}
	}
}

func (ls *LiveServer) handleBroadcasts() {
	for {
		select {
		case message := <-ls.broadcast:
			ls.clients.Range(func(key, value any) bool {
				conn, ok := key.(*websocket.Conn)
				if !ok {
					return true
				}
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					conn.Close()
					ls.clients.Delete(conn)
				}
				return true
			})
		case <-ls.done:
			return
		}
	}
}

func (ls *LiveServer) broadcastLoop() {
	ticker := time.NewTicker(broadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			hasClients := false
			ls.clients.Range(func(key, value any) bool {
				hasClients = true
				return false
			})
			if !hasClients {
				continue
			}
			message, err := json.Marshal(ls.coordinator.Snapshot())
			if err != nil {
				fmt.Printf("failed to marshal snapshot: %v\n", err)
				continue
			}
			ls.broadcast <- message
		case <-ls.done:
			return
		}
	}
}
