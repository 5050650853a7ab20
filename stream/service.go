package stream

import "github.com/coschain/hivebridge/node"

const ServiceName = "stream"

// Service owns the process wide Session. It is registered before every
// service that subscribes to it so it is stopped last.
type Service struct {
	session *Session
}

func NewService(s *Session) *Service {
	return &Service{session: s}
}

func (s *Service) Session() *Session {
	return s.session
}

func (s *Service) Start(n *node.Node) error {
	return s.session.Start()
}

func (s *Service) Stop() error {
	return s.session.Close()
}
