package node

import "github.com/sirupsen/logrus"

type ServiceContext struct {
	config   *Config
	services map[string]Service
	Log      *logrus.Logger
}

func (ctx *ServiceContext) ResolvePath(path string) string {
	return ctx.config.ResolvePath(path)
}

// Service looks up a service constructed before the caller.
func (ctx *ServiceContext) Service(name string) (interface{}, error) {
	if running, ok := ctx.services[name]; ok {
		return running, nil
	}
	return nil, ErrServiceUnknown
}

type ServiceConstructor func(ctx *ServiceContext) (Service, error)

type Service interface {
	Start(node *Node) error

	// stop all goroutines belonging to the service,
	// blocking until all of them are terminated.
	Stop() error
}
