package cmd

import (
	"bytes"
	"net"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/gpupool/gatewayd/internal/balancer"
	"github.com/gpupool/gatewayd/internal/cmd"
	cmdopts "github.com/gpupool/gatewayd/internal/cmd/options"
	"github.com/gpupool/gatewayd/internal/config"
	"github.com/gpupool/gatewayd/internal/daemon"
	"github.com/gpupool/gatewayd/internal/registry"
)

const testSecret = "test-secret"

// fakeConfigLoader implements config.Loader for testing.
type fakeConfigLoader struct {
	cfg *config.Config
	err error
}

func (f *fakeConfigLoader) Load(_ string) (*config.Config, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.cfg == nil {
		return &config.Config{}, nil
	}
	return f.cfg, nil
}

func env(values map[string]string) config.LookupEnvFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func testBaseCmd() *cmd.BaseCmd {
	return cmd.NewBaseCmd(hclog.NewNullLogger())
}

// testOptions isolates commands from the real environment and config file.
func testOptions(values map[string]string, opt ...cmdopts.CmdOption) []cmdopts.CmdOption {
	return append([]cmdopts.CmdOption{
		cmdopts.WithConfigLoader(&fakeConfigLoader{}),
		cmdopts.WithLookupEnv(env(values)),
	}, opt...)
}

// testGateway serves the gateway API in-process.
func testGateway(t *testing.T, opt ...daemon.APIOption) (*httptest.Server, *registry.Registry) {
	t.Helper()

	logger := hclog.NewNullLogger()

	reg, err := registry.NewRegistry(logger, nil, testSecret)
	require.NoError(t, err)

	prober, err := daemon.NewHTTPProber(nil, daemon.DefaultHealthCheckPath())
	require.NoError(t, err)

	monitor, err := daemon.NewHealthMonitor(logger, reg, prober)
	require.NoError(t, err)
	t.Cleanup(monitor.Stop)

	selector, err := balancer.NewRoundRobin(reg)
	require.NoError(t, err)

	deps, err := daemon.NewAPIDependencies(logger, reg, monitor, selector, "localhost:8080")
	require.NoError(t, err)

	server, err := daemon.NewAPIServer(deps, opt...)
	require.NoError(t, err)

	handler, err := server.Handler()
	require.NoError(t, err)

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	return ts, reg
}

// execute runs cobraCmd with args, returning what it wrote to stdout and stderr.
func execute(t *testing.T, cobraCmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cobraCmd.SetOut(&stdout)
	cobraCmd.SetErr(&stderr)
	cobraCmd.SetArgs(args)

	err := cobraCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func freeAddr(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	return addr
}

func withConfig(cfg *config.Config) cmdopts.CmdOption {
	return cmdopts.WithConfigLoader(&fakeConfigLoader{cfg: cfg})
}

func withLoader(l config.Loader) cmdopts.CmdOption {
	return cmdopts.WithConfigLoader(l)
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
