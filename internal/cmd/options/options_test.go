package options

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpupool/gatewayd/internal/config"
)

type fakeLoader struct {
	config.Loader
}

type fakeInitializer struct {
	config.Initializer
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := defaultOptions()

	require.NotNil(t, opts.ConfigLoader)
	require.NotNil(t, opts.ConfigInitializer)
	require.NotNil(t, opts.LookupEnv)
	require.Nil(t, opts.HTTPClient)
}

func TestNewOptions_NoOverrides(t *testing.T) {
	t.Parallel()

	opts, err := NewOptions()
	assert.NoError(t, err)

	require.IsType(t, &config.DefaultLoader{}, opts.ConfigLoader)
	require.IsType(t, &config.DefaultLoader{}, opts.ConfigInitializer)
}

func TestNewOptions_WithOverrides(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{}
	initializer := &fakeInitializer{}
	client := &http.Client{}
	lookup := func(string) (string, bool) { return "from-test", true }

	opts, err := NewOptions(
		WithConfigLoader(loader),
		WithConfigInitializer(initializer),
		WithLookupEnv(lookup),
		WithHTTPClient(client),
		nil,
	)
	require.NoError(t, err)

	require.Equal(t, loader, opts.ConfigLoader)
	require.Equal(t, initializer, opts.ConfigInitializer)
	require.Same(t, client, opts.HTTPClient)

	v, ok := opts.LookupEnv(config.EnvVarWebhookSecret)
	require.True(t, ok)
	require.Equal(t, "from-test", v)
}

func TestNewOptions_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		option CmdOption
		errMsg string
	}{
		{name: "nil loader", option: WithConfigLoader(nil), errMsg: "config loader cannot be nil"},
		{name: "nil initializer", option: WithConfigInitializer(nil), errMsg: "config initializer cannot be nil"},
		{name: "nil lookup", option: WithLookupEnv(nil), errMsg: "environment lookup cannot be nil"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewOptions(tc.option)
			require.EqualError(t, err, tc.errMsg)
		})
	}
}
