package node

import (
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
)

// Node is a container and manager of services
type Node struct {
	config *Config

	serviceNames []string
	services     map[string]Service
	serviceFuncs []NamedServiceConstructor // registered services store into this slice

	lock sync.RWMutex
	quit chan struct{}

	Log *logrus.Logger
}

type NamedServiceConstructor struct {
	name        string
	constructor ServiceConstructor
}

func New(conf *Config, log *logrus.Logger) (*Node, error) {
	// Copy config
	confCopy := *conf
	conf = &confCopy
	if conf.DataDir != "" {
		dir, err := filepath.Abs(conf.DataDir)
		if err != nil {
			return nil, err
		}
		conf.DataDir = dir
	}
	// Ensure that the instance name doesn't cause weird conflicts with
	// other files in the data directory.
	if strings.ContainsAny(conf.Name, `/\`) {
		return nil, errors.New(`Config.Name must not contain '/' or '\'`)
	}
	if log == nil {
		log = logrus.New()
	}
	return &Node{
		config:       conf,
		serviceNames: []string{},
		serviceFuncs: []NamedServiceConstructor{},
		Log:          log,
	}, nil
}

func (n *Node) Register(name string, constructor ServiceConstructor) error {
	n.lock.Lock()
	defer n.lock.Unlock()

	n.serviceFuncs = append(n.serviceFuncs, NamedServiceConstructor{name: name, constructor: constructor})
	return nil
}

// Start constructs every registered service in registration order, then
// starts them in the same order. If one fails, those already started are
// stopped again.
func (n *Node) Start() error {
	n.lock.Lock()
	defer n.lock.Unlock()

	if n.services != nil {
		return ErrNodeRunning
	}
	if err := n.openDataDir(); err != nil {
		return err
	}

	serviceNames := make([]string, 0, len(n.serviceFuncs))
	services := make(map[string]Service)

	for _, namedConstructor := range n.serviceFuncs {
		ctx := &ServiceContext{
			config: n.config,
			// to support services to share, the list of services pass by reference
			services: services,
			Log:      n.Log,
		}
		name := namedConstructor.name
		if _, exists := services[name]; exists {
			return &DuplicateServiceError{Kind: name}
		}
		service, err := namedConstructor.constructor(ctx)
		if err != nil {
			return err
		}
		serviceNames = append(serviceNames, name)
		services[name] = service
	}

	var started []string
	for _, kind := range serviceNames {
		service := services[kind]
		if err := service.Start(n); err != nil {
			for i := len(started) - 1; i >= 0; i-- {
				_ = services[started[i]].Stop()
			}
			return err
		}
		started = append(started, kind)
	}

	n.services, n.serviceNames = services, serviceNames
	n.quit = make(chan struct{})
	return nil
}

func (n *Node) openDataDir() error {
	if n.config.DataDir == "" {
		return nil
	}
	return os.MkdirAll(filepath.Join(n.config.DataDir, n.config.name()), 0700)
}

// Stop stops services in reverse start order.
func (n *Node) Stop() error {
	n.lock.Lock()
	defer n.lock.Unlock()

	if n.services == nil {
		return ErrNodeStopped
	}
	failure := &StopError{
		Services: make(map[string]error),
	}

	length := len(n.serviceNames)
	for i := range n.serviceNames {
		kind := n.serviceNames[length-1-i]
		service := n.services[kind]
		if err := service.Stop(); err != nil {
			failure.Services[kind] = err
		}
	}
	n.services, n.serviceNames = nil, nil
	close(n.quit)

	if len(failure.Services) > 0 {
		return failure
	}
	return nil
}

// Wait blocks until the node is stopped or the process receives an
// interrupt, in which case the node is stopped first.
func (n *Node) Wait() {
	n.lock.RLock()
	quit := n.quit
	n.lock.RUnlock()
	if quit == nil {
		return
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-quit:
	case sig := <-sigs:
		n.Log.WithField("signal", sig).Info("shutting down")
		if err := n.Stop(); err != nil {
			n.Log.Error(err)
		}
	}
}

func (n *Node) Restart() error {
	if err := n.Stop(); err != nil {
		return err
	}
	return n.Start()
}

func (n *Node) Service(serviceName string) (interface{}, error) {
	n.lock.RLock()
	defer n.lock.RUnlock()

	if running, ok := n.services[serviceName]; ok {
		return running, nil
	}
	return nil, ErrServiceUnknown
}

// ServiceNames lists running services in start order.
func (n *Node) ServiceNames() []string {
	n.lock.RLock()
	defer n.lock.RUnlock()
	return append([]string(nil), n.serviceNames...)
}
