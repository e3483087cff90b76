// Package testingh starts throwaway docker containers for integration tests.
package testingh

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/ory/dockertest"
	"github.com/ory/dockertest/docker"
)

var hostName = os.Getenv("OVERRIDE_HOSTNAME")

func init() {
	const defaultHostName = "localhost"

	if hostName == "" {
		hostName = defaultHostName
	}
}

type Container struct {
	resource *dockertest.Resource
}

// spec describes a container exposing one port bound to a free host port.
type spec struct {
	repository string
	tag        string
	port       docker.Port
	env        []string
	cmd        func(hostPort int) []string
	auth       docker.AuthConfiguration
}

// NewRedpanda starts a single node Redpanda broker and calls connectFn with
// its address until it succeeds.
func NewRedpanda(connectFn func(connURL string) error) (*Container, error) {
	return run(spec{
		repository: "redpandadata/redpanda",
		tag:        "latest",
		port:       "9092/tcp",
		auth: docker.AuthConfiguration{
			Username: os.Getenv("ARTIFACTORY_USER"),
			Password: os.Getenv("ARTIFACTORY_PWD"),
		},
		cmd: func(hostPort int) []string {
			return []string{
				"redpanda start",
				"--overprovisioned",
				"--smp 1",
				"--memory 1G",
				"--reserve-memory 0M",
				"--node-id 0",
				"--check=false",
				fmt.Sprintf("--advertise-kafka-addr %s:%v", hostName, hostPort),
			}
		},
	}, connectFn)
}

// NewClickhouse starts a ClickHouse server with database test_db and user su/su.
func NewClickhouse(connectFn func(connURL string) error) (*Container, error) {
	return run(spec{
		repository: "clickhouse/clickhouse-server",
		tag:        "latest-alpine",
		port:       "9000/tcp",
		env: []string{
			"CLICKHOUSE_DB=test_db",
			"CLICKHOUSE_DEFAULT_ACCESS_MANAGEMENT=1",
			"CLICKHOUSE_USER=su",
			"CLICKHOUSE_PASSWORD=su",
		},
	}, connectFn)
}

func run(s spec, connectFn func(connURL string) error) (*Container, error) {
	hostPort, err := getFreePort()
	if err != nil {
		return nil, fmt.Errorf("could not get free host port: %w", err)
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("could not connect to docker: %w", err)
	}

	opts := &dockertest.RunOptions{
		Repository: s.repository,
		Tag:        s.tag,
		Env:        s.env,
		Auth:       s.auth,
		PortBindings: map[docker.Port][]docker.PortBinding{
			s.port: {{
				HostIP:   hostName,
				HostPort: strconv.Itoa(hostPort),
			}},
		},
	}
	if s.cmd != nil {
		opts.Cmd = s.cmd(hostPort)
	}

	resource, err := pool.RunWithOptions(opts, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		return nil, fmt.Errorf("could not create a container: %w", err)
	}

	container := &Container{
		resource: resource,
	}
	addr := fmt.Sprintf("%s:%s", hostName, resource.GetPort(string(s.port)))
	// the service inside the container may not accept connections yet
	if err := pool.Retry(func() error {
		return connectFn(addr)
	}); err != nil {
		_ = resource.Close()
		return nil, fmt.Errorf("could not connect to %s: %w", s.repository, err)
	}

	return container, nil
}

func (c *Container) Purge() error {
	return c.resource.Close()
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
