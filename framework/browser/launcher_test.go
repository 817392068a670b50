package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adobe/aem-test-harness/framework/opt"
)

func TestLaunchConfigDefaults(t *testing.T) {
	t.Setenv("PLAYWRIGHT_PREINSTALLED", "")
	c, err := NewLaunchConfig()
	require.NoError(t, err)

	assert.Equal(t, Chromium, c.Browser)
	assert.True(t, c.Headless)
	assert.False(t, c.SkipInstall)
	assert.False(t, c.Proxy.IsDefined())
	assert.NotNil(t, c.Logger)

	o := c.launchOptions()
	require.NotNil(t, o.Headless)
	assert.True(t, *o.Headless)
	assert.Nil(t, o.Proxy)
}

func TestLaunchConfigOptions(t *testing.T) {
	t.Setenv("PLAYWRIGHT_PREINSTALLED", "1")
	c, err := NewLaunchConfig(
		WithBrowser(Firefox),
		Headless(false),
		WithProxy(opt.Some("http://proxy.example.com:3128")),
	)
	require.NoError(t, err)

	assert.Equal(t, Firefox, c.Browser)
	assert.True(t, c.SkipInstall)

	o := c.launchOptions()
	assert.False(t, *o.Headless)
	require.NotNil(t, o.Proxy)
	assert.Equal(t, "http://proxy.example.com:3128", o.Proxy.Server)
}

func TestLaunchConfigRejectsUnknownBrowser(t *testing.T) {
	_, err := NewLaunchConfig(WithBrowser("netscape"))
	assert.ErrorContains(t, err, `unknown browser "netscape"`)
}
