// Package myhttp relays monitor events to HTTP clients over server-sent events.
package myhttp

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/coschain/hivebridge/monitor"
	"github.com/coschain/hivebridge/node"
	"github.com/coschain/hivebridge/prototype"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	ServiceName = "relay"

	clientBuffer    = 64
	shutdownTimeout = 5 * time.Second
)

type Relay struct {
	srv     *http.Server
	engine  *gin.Engine
	monitor *monitor.Monitor
	log     *logrus.Logger

	lock    sync.Mutex
	clients map[uint64]chan prototype.ChainEvent
	nextId  uint64
	dropped uint64
}

// NewRelay registers the relay as a callback of m.
func NewRelay(listen string, m *monitor.Monitor, log *logrus.Logger) *Relay {
	gin.SetMode(gin.ReleaseMode)
	r := &Relay{
		monitor: m,
		log:     log,
		clients: make(map[uint64]chan prototype.ChainEvent),
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/healthz", r.health)
	engine.GET("/status", r.status)
	engine.GET("/events", r.events)
	r.engine = engine
	r.srv = &http.Server{Addr: listen, Handler: engine}
	m.AddCallback(r.Publish)
	return r
}

func (r *Relay) Handler() http.Handler {
	return r.engine
}

func (r *Relay) Start(node *node.Node) error {
	go func() {
		if err := r.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.log.Errorf("ListenAndServe(): %s", err)
		}
	}()
	r.log.WithField("listen", r.srv.Addr).Info("event relay started")
	return nil
}

func (r *Relay) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	r.lock.Lock()
	for id, ch := range r.clients {
		close(ch)
		delete(r.clients, id)
	}
	r.lock.Unlock()
	return r.srv.Shutdown(ctx)
}

// Publish hands ev to every connected client. Slow clients lose events
// rather than stall the monitor.
func (r *Relay) Publish(ev prototype.ChainEvent) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, ch := range r.clients {
		select {
		case ch <- ev:
		default:
			r.dropped++
		}
	}
}

func (r *Relay) Clients() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.clients)
}

func (r *Relay) register() (uint64, chan prototype.ChainEvent) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.nextId++
	ch := make(chan prototype.ChainEvent, clientBuffer)
	r.clients[r.nextId] = ch
	return r.nextId, ch
}

func (r *Relay) unregister(id uint64) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if ch, ok := r.clients[id]; ok {
		close(ch)
		delete(r.clients, id)
	}
}

func (r *Relay) health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (r *Relay) status(c *gin.Context) {
	r.lock.Lock()
	clients, dropped := len(r.clients), r.dropped
	r.lock.Unlock()
	c.JSON(http.StatusOK, gin.H{
		"state":         r.monitor.State().String(),
		"callbacks":     r.monitor.CallbackCount(),
		"stats":         r.monitor.Stats(),
		"clients":       clients,
		"relay_dropped": dropped,
	})
}

func (r *Relay) events(c *gin.Context) {
	id, ch := r.register()
	defer r.unregister(id)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Kind()), ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
