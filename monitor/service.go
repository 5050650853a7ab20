package monitor

import (
	"context"

	"github.com/coschain/hivebridge/node"
)

const ServiceName = "monitor"

// Service runs a Monitor inside a node. Stopping the service cancels a
// history replay that is still running.
type Service struct {
	monitor *Monitor
	opts    Options
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewService(m *Monitor, opts Options) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{monitor: m, opts: opts, ctx: ctx, cancel: cancel}
}

func (s *Service) Monitor() *Monitor {
	return s.monitor
}

func (s *Service) Start(n *node.Node) error {
	return s.monitor.StartContext(s.ctx, s.opts)
}

func (s *Service) Stop() error {
	s.cancel()
	return s.monitor.Stop()
}
