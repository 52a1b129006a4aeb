package process

import (
	"github.com/charmbracelet/log"
	"github.com/kardianos/service"
)

// controllable is the slice of service.Service the controller uses.
type controllable interface {
	Status() (service.Status, error)
	Start() error
	Stop() error
}

// noopProgram satisfies service.Interface; the controller only drives
// services installed by someone else and never runs one.
type noopProgram struct{}

func (noopProgram) Start(service.Service) error { return nil }
func (noopProgram) Stop(service.Service) error  { return nil }

// ServiceController stops and restarts OS services (Windows SCM, systemd,
// launchd) that host the application.
type ServiceController struct {
	logger *log.Logger
	open   func(name string) (controllable, error)
}

// NewServiceController creates a controller for the system service manager.
func NewServiceController(logger *log.Logger) *ServiceController {
	return &ServiceController{
		logger: logger,
		open: func(name string) (controllable, error) {
			return service.New(noopProgram{}, &service.Config{Name: name})
		},
	}
}

// Stop stops each running service and returns the names it stopped.
// Unknown or already stopped services are skipped.
func (c *ServiceController) Stop(names []string) []string {
	var stopped []string
	for _, name := range names {
		svc, err := c.open(name)
		if err != nil {
			c.logger.Warn("Cannot open service", "service", name, "error", err)
			continue
		}

		status, err := svc.Status()
		if err != nil {
			c.logger.Debug("Service status unavailable", "service", name, "error", err)
			continue
		}
		if status != service.StatusRunning {
			continue
		}

		if err := svc.Stop(); err != nil {
			c.logger.Warn("Failed to stop service", "service", name, "error", err)
			continue
		}
		c.logger.Info("Stopped service", "service", name)
		stopped = append(stopped, name)
	}
	return stopped
}

// Start starts each named service, logging failures.
func (c *ServiceController) Start(names []string) {
	for _, name := range names {
		svc, err := c.open(name)
		if err != nil {
			c.logger.Warn("Cannot open service", "service", name, "error", err)
			continue
		}
		if err := svc.Start(); err != nil {
			c.logger.Warn("Failed to start service", "service", name, "error", err)
			continue
		}
		c.logger.Info("Started service", "service", name)
	}
}
