// Package status pushes viewer diagnostics to websocket clients.
package status

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/effibem/bemviewer/utils"
)

const (
	INFO = iota
	ERROR
)

const (
	pingInterval  = 30 * time.Second
	writeDeadline = 40 * time.Second
	sendQueueSize = 32
)

type Message struct {
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
	Type    int       `json:"type"`
}

// Hub keeps the registered clients and fans messages out to them.
// The last message is replayed to newly connected clients.
type Hub struct {
	mu          sync.Mutex
	clients     map[*Client]bool
	lastMessage []byte
	names       utils.RandomNameGenerator

	// OnConnect and OnDisconnect observe client counts, may be nil.
	OnConnect    func()
	OnDisconnect func()
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]bool)}
}

type Client struct {
	Name string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.hub.unregister(c)
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("[status] %s: ws write msg error: %v", c.Name, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[status] %s: ws write ping error: %v", c.Name, err)
				return
			}
		}
	}
}

// Close unregisters the client and stops its write pump.
func (c *Client) Close() {
	c.hub.unregister(c)
}

func (c *Client) closeLocked() {
	c.once.Do(func() { close(c.send) })
}

// NewClient registers conn and starts pushing messages to it.
func (h *Hub) NewClient(conn *websocket.Conn) *Client {
	c := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendQueueSize),
	}

	h.mu.Lock()
	c.Name = h.names.RandomName()
	h.clients[c] = true
	if h.lastMessage != nil {
		c.send <- h.lastMessage
	}
	h.mu.Unlock()

	if h.OnConnect != nil {
		h.OnConnect()
	}
	log.Printf("[status] client %s connected", c.Name)
	go c.writePump()
	return c
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	h.names.Release(c.Name)
	c.closeLocked()
	h.mu.Unlock()

	if h.OnDisconnect != nil {
		h.OnDisconnect()
	}
	log.Printf("[status] client %s disconnected", c.Name)
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends a message to every client. Clients whose queue is full
// are dropped instead of blocking the sender.
func (h *Hub) Broadcast(msg string, _type int) {
	data, err := json.Marshal(&Message{Message: msg, Time: time.Now(), Type: _type})
	if err != nil {
		log.Printf("[status] marshal error: %v", err)
		return
	}

	slow := make([]*Client, 0)
	h.mu.Lock()
	h.lastMessage = data
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		log.Printf("[status] client %s is too slow, dropping", c.Name)
		h.unregister(c)
	}
}

// LastMessage returns the last broadcasted message or nil.
func (h *Hub) LastMessage() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastMessage
}

func (h *Hub) Info(format string, a ...interface{}) {
	h.Broadcast(fmt.Sprintf(format, a...), INFO)
}

func (h *Hub) Error(format string, a ...interface{}) {
	h.Broadcast(fmt.Sprintf(format, a...), ERROR)
}

// ReportError is suitable as a viewer error callback.
func (h *Hub) ReportError(err error) {
	h.Error("%v", err)
}
