package node

import (
	"errors"
	"io/ioutil"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingService struct {
	name     string
	journal  *[]string
	startErr error
	stopErr  error
}

func (s *recordingService) Start(node *Node) error {
	if s.startErr != nil {
		return s.startErr
	}
	*s.journal = append(*s.journal, "start "+s.name)
	return nil
}

func (s *recordingService) Stop() error {
	*s.journal = append(*s.journal, "stop "+s.name)
	return s.stopErr
}

func register(t *testing.T, n *Node, svc *recordingService) {
	require.NoError(t, n.Register(svc.name, func(ctx *ServiceContext) (Service, error) {
		return svc, nil
	}))
}

func testNodeConfig(t *testing.T) Config {
	dir, err := ioutil.TempDir("", "node")
	require.NoError(t, err)
	return Config{Name: "hivebridge", DataDir: dir}
}

// Tests that an empty stack can be started, restarted and stopped.
func TestNodeLifeCycle(t *testing.T) {
	cfg := testNodeConfig(t)
	defer os.RemoveAll(cfg.DataDir)
	stack, err := New(&cfg, logrus.New())
	require.NoError(t, err)

	require.NoError(t, stack.Start())
	assert.Equal(t, ErrNodeRunning, stack.Start())
	require.NoError(t, stack.Restart())
	require.NoError(t, stack.Stop())
	assert.Equal(t, ErrNodeStopped, stack.Stop())
}

func TestNodeServiceOrder(t *testing.T) {
	cfg := testNodeConfig(t)
	defer os.RemoveAll(cfg.DataDir)
	stack, err := New(&cfg, nil)
	require.NoError(t, err)

	var journal []string
	register(t, stack, &recordingService{name: "stream", journal: &journal})
	register(t, stack, &recordingService{name: "monitor", journal: &journal})
	register(t, stack, &recordingService{name: "relay", journal: &journal})

	require.NoError(t, stack.Start())
	assert.Equal(t, []string{"stream", "monitor", "relay"}, stack.ServiceNames())
	svc, err := stack.Service("monitor")
	require.NoError(t, err)
	assert.Equal(t, "monitor", svc.(*recordingService).name)
	_, err = stack.Service("missing")
	assert.Equal(t, ErrServiceUnknown, err)

	require.NoError(t, stack.Stop())
	assert.Equal(t, []string{
		"start stream", "start monitor", "start relay",
		"stop relay", "stop monitor", "stop stream",
	}, journal)
}

func TestNodeStartFailureRollsBack(t *testing.T) {
	cfg := testNodeConfig(t)
	defer os.RemoveAll(cfg.DataDir)
	stack, err := New(&cfg, nil)
	require.NoError(t, err)

	var journal []string
	register(t, stack, &recordingService{name: "stream", journal: &journal})
	register(t, stack, &recordingService{name: "monitor", journal: &journal})
	register(t, stack, &recordingService{name: "relay", journal: &journal, startErr: errors.New("port in use")})

	assert.EqualError(t, stack.Start(), "port in use")
	assert.Equal(t, []string{"start stream", "start monitor", "stop monitor", "stop stream"}, journal)
}

func TestNodeDuplicateService(t *testing.T) {
	cfg := testNodeConfig(t)
	defer os.RemoveAll(cfg.DataDir)
	stack, err := New(&cfg, nil)
	require.NoError(t, err)

	var journal []string
	register(t, stack, &recordingService{name: "stream", journal: &journal})
	register(t, stack, &recordingService{name: "stream", journal: &journal})
	err = stack.Start()
	assert.IsType(t, &DuplicateServiceError{}, err)
}

func TestStopErrorCollectsFailures(t *testing.T) {
	cfg := testNodeConfig(t)
	defer os.RemoveAll(cfg.DataDir)
	stack, err := New(&cfg, nil)
	require.NoError(t, err)

	var journal []string
	register(t, stack, &recordingService{name: "stream", journal: &journal, stopErr: errors.New("subscriptions attached")})
	require.NoError(t, stack.Start())
	err = stack.Stop()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stream: subscriptions attached")
}
