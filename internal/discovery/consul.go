package discovery

import (
	"fmt"
	"os"

	"github.com/fathima-sithara/chat-backend/internal/config"
	consulapi "github.com/hashicorp/consul/api"
	"go.uber.org/zap"
)

// Registration announces this instance in Consul with an HTTP health check on /healthz.
type Registration struct {
	client *consulapi.Client
	id     string
	logger *zap.Logger
}

// Register is a no-op returning nil when no Consul address is configured.
func Register(cfg config.ConsulConf, port int, logger *zap.Logger) (*Registration, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	consulCfg := consulapi.DefaultConfig()
	consulCfg.Address = cfg.Addr
	client, err := consulapi.NewClient(consulCfg)
	if err != nil {
		return nil, fmt.Errorf("consul client: %w", err)
	}

	host := cfg.ServiceHost
	if host == "" {
		host, _ = os.Hostname()
	}
	reg := ServiceRegistration(cfg.ServiceName, host, port)
	if err := client.Agent().ServiceRegister(reg); err != nil {
		return nil, fmt.Errorf("consul register: %w", err)
	}

	logger.Info("registered with consul", zap.String("id", reg.ID), zap.String("addr", cfg.Addr))
	return &Registration{client: client, id: reg.ID, logger: logger}, nil
}

func ServiceRegistration(name, host string, port int) *consulapi.AgentServiceRegistration {
	return &consulapi.AgentServiceRegistration{
		ID:      fmt.Sprintf("%s-%s-%d", name, host, port),
		Name:    name,
		Address: host,
		Port:    port,
		Tags:    []string{"http", "api"},
		Check: &consulapi.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/healthz", host, port),
			Interval:                       "10s",
			Timeout:                        "2s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}
}

func (r *Registration) Deregister() {
	if r == nil {
		return
	}
	if err := r.client.Agent().ServiceDeregister(r.id); err != nil {
		r.logger.Warn("consul deregister failed", zap.Error(err))
	}
}
