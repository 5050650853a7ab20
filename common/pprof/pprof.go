// Package pprof exposes the runtime profiler of a long running node.
package pprof

import (
	"context"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/coschain/hivebridge/node"
	"github.com/sirupsen/logrus"
)

const ServiceName = "pprof"

type Service struct {
	srv *http.Server
	log *logrus.Logger
}

// New serves the profiler on listen, which should be a loopback address.
func New(listen string, log *logrus.Logger) *Service {
	return &Service{
		srv: &http.Server{Addr: listen, Handler: Handler()},
		log: log,
	}
}

func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

func (s *Service) Start(n *node.Node) error {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("pprof: %s", err)
		}
	}()
	s.log.WithField("listen", s.srv.Addr).Info("pprof started")
	return nil
}

func (s *Service) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
