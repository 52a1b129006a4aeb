package process

import (
	"errors"
	"testing"

	"github.com/kardianos/service"

	"github.com/quanghiep03198/rfid-agent/internal/logging"
)

type fakeService struct {
	status  service.Status
	err     error
	stopErr error
	started bool
	stopped bool
}

func (f *fakeService) Status() (service.Status, error) { return f.status, f.err }
func (f *fakeService) Start() error                    { f.started = true; return nil }
func (f *fakeService) Stop() error {
	if f.stopErr != nil {
		return f.stopErr
	}
	f.stopped = true
	return nil
}

func newTestController(services map[string]*fakeService) *ServiceController {
	c := NewServiceController(logging.Discard())
	c.open = func(name string) (controllable, error) {
		svc, ok := services[name]
		if !ok {
			return nil, errors.New("no such service")
		}
		return svc, nil
	}
	return c
}

func TestServiceControllerStop(t *testing.T) {
	running := &fakeService{status: service.StatusRunning}
	idle := &fakeService{status: service.StatusStopped}
	broken := &fakeService{status: service.StatusRunning, stopErr: errors.New("access denied")}
	unknown := &fakeService{status: service.StatusUnknown, err: service.ErrNotInstalled}

	c := newTestController(map[string]*fakeService{
		"rfid-agent": running,
		"idle":       idle,
		"broken":     broken,
		"unknown":    unknown,
	})

	stopped := c.Stop([]string{"rfid-agent", "idle", "broken", "unknown", "missing"})
	if len(stopped) != 1 || stopped[0] != "rfid-agent" {
		t.Errorf("Stop() = %v, want [rfid-agent]", stopped)
	}
	if !running.stopped {
		t.Error("running service was not stopped")
	}
	if idle.stopped {
		t.Error("stopped service should be left alone")
	}
}

func TestServiceControllerStart(t *testing.T) {
	svc := &fakeService{status: service.StatusStopped}
	c := newTestController(map[string]*fakeService{"rfid-agent": svc})

	c.Start([]string{"rfid-agent", "missing"})
	if !svc.started {
		t.Error("service was not started")
	}
}
