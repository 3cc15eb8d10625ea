package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/petstore-e2e/internal/browser"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/browsertest"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/manager"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/session"
	"github.com/xkilldash9x/petstore-e2e/internal/capabilities"
	"github.com/xkilldash9x/petstore-e2e/internal/observability"
	"github.com/xkilldash9x/petstore-e2e/internal/scenario"
)

// executeCommand runs a fresh command tree with args and captures its output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)
	// Quiet the global logger.
	t.Setenv("PETSTORE_LOGGER_LEVEL", "error")

	root := newRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// fakeBrowsers swaps the launchers for fake drivers for the duration of a test.
func fakeBrowsers(t *testing.T) *[]*browsertest.Driver {
	t.Helper()
	var opened []*browsertest.Driver
	open := func(name string) (browser.Driver, error) {
		d := browsertest.New(name)
		opened = append(opened, d)
		return d, nil
	}
	orig := launchers
	launchers = manager.Launchers{
		WebDriver: func(_ context.Context, c capabilities.Capability, _ string, _ *zap.Logger) (browser.Driver, error) {
			return open(c.BrowserName)
		},
		CDP: func(_ context.Context, c capabilities.Capability, _ string, _ *zap.Logger) (browser.Driver, error) {
			return open(c.BrowserName)
		},
	}
	t.Cleanup(func() { launchers = orig })
	return &opened
}

// fakeSpecs swaps the spec catalog for one passing and one failing spec.
func fakeSpecs(t *testing.T) {
	t.Helper()
	orig := specsFor
	specsFor = func(baseURL string) []scenario.Spec {
		return []scenario.Spec{
			{
				Name: "store.pass",
				Steps: []scenario.Step{{
					Name: "opens the catalog",
					Run: func(ctx context.Context, t *scenario.T, s *session.Session) {
						require.NoError(t, s.Driver().Navigate(ctx, baseURL))
					},
				}},
			},
			{
				Name: "store.fail",
				Steps: []scenario.Step{{
					Name: "finds nothing",
					Run: func(ctx context.Context, t *scenario.T, s *session.Session) {
						t.Errorf("cart is empty")
					},
				}},
			},
		}
	}
	t.Cleanup(func() { specsFor = orig })
}

func TestRootCmd_Version(t *testing.T) {
	out, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)

	out, err = executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "petstore-e2e "+Version)
}

func TestRootCmd_NoArgsPrintsHelp(t *testing.T) {
	out, err := executeCommand(t)
	require.NoError(t, err)
	assert.Contains(t, out, "run")
	assert.Contains(t, out, "caps")
}

func TestRootCmd_Config(t *testing.T) {
	t.Run("config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "petstore.yaml")
		require.NoError(t, os.WriteFile(path, []byte("browser:\n  name: firefox\n"), 0o600))

		out, err := executeCommand(t, "caps", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, `"browserName": "firefox"`)
		assert.Contains(t, out, "moz:firefoxOptions")
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("PETSTORE_BROWSER_NAME", "edge")
		out, err := executeCommand(t, "caps")
		require.NoError(t, err)
		assert.Contains(t, out, `"browserName": "MicrosoftEdge"`)
	})

	t.Run("unreadable config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("browser: [name"), 0o600))

		_, err := executeCommand(t, "caps", "--config", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize configuration")
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Setenv("PETSTORE_REPORT_FORMAT", "html")
		_, err := executeCommand(t, "caps")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "report.format")
	})
}

func TestCapsCmd(t *testing.T) {
	t.Run("json for named browser", func(t *testing.T) {
		out, err := executeCommand(t, "caps", "chrome")
		require.NoError(t, err)

		var got map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, "chrome", got["browserName"])
		assert.Contains(t, got, "goog:chromeOptions")
	})

	t.Run("yaml for every browser", func(t *testing.T) {
		out, err := executeCommand(t, "caps", "--all", "--format", "yaml")
		require.NoError(t, err)

		var got map[string]map[string]interface{}
		require.NoError(t, yaml.Unmarshal([]byte(out), &got))
		assert.ElementsMatch(t, capabilities.Supported(), keys(got))
		assert.Equal(t, "MicrosoftEdge", got[capabilities.Edge]["browserName"])
	})

	t.Run("unknown browser", func(t *testing.T) {
		_, err := executeCommand(t, "caps", "opera")
		assert.ErrorIs(t, err, capabilities.ErrInvalidBrowser)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := executeCommand(t, "caps", "--format", "toml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported caps format")
	})
}

func TestRunCmd(t *testing.T) {
	t.Run("selected spec passes", func(t *testing.T) {
		opened := fakeBrowsers(t)
		fakeSpecs(t)

		out, err := executeCommand(t, "run", "--specs", "store.pass", "--base-url", "https://shop.test/catalog")
		require.NoError(t, err)
		assert.Contains(t, out, "passed  store.pass [chrome]")
		assert.NotContains(t, out, "store.fail")
		assert.Contains(t, out, "1 specs, 0 failed")

		require.Len(t, *opened, 1)
		assert.Equal(t, "https://shop.test/catalog", (*opened)[0].URL)
		assert.True(t, (*opened)[0].Closed)
	})

	t.Run("failure writes report and returns error", func(t *testing.T) {
		opened := fakeBrowsers(t)
		fakeSpecs(t)
		report := filepath.Join(t.TempDir(), "report.json")

		out, err := executeCommand(t, "run", "--format", "json", "--output", report, "--browserName", "firefox")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSpecsFailed)
		assert.Contains(t, err.Error(), "1 of 2")
		assert.Contains(t, out, "failed  store.fail [firefox]")
		assert.Contains(t, out, "cart is empty")

		data, rerr := os.ReadFile(report)
		require.NoError(t, rerr)
		var got struct {
			Summary struct {
				Specs   int  `json:"specs"`
				Success bool `json:"success"`
			} `json:"summary"`
		}
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, 2, got.Summary.Specs)
		assert.False(t, got.Summary.Success)

		require.Len(t, *opened, 2)
		for _, d := range *opened {
			assert.True(t, d.Closed)
		}
	})

	t.Run("invalid browser fails before any session opens", func(t *testing.T) {
		opened := fakeBrowsers(t)
		fakeSpecs(t)

		out, err := executeCommand(t, "run", "--browserName", "opera")
		require.Error(t, err)
		assert.ErrorIs(t, err, capabilities.ErrInvalidBrowser)
		assert.NotErrorIs(t, err, ErrSpecsFailed)
		assert.Empty(t, *opened)
		assert.NotContains(t, out, "store.pass")
	})

	t.Run("no matching specs", func(t *testing.T) {
		fakeBrowsers(t)
		fakeSpecs(t)
		_, err := executeCommand(t, "run", "--specs", "admin.*")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no specs match")
	})
}

func keys(m map[string]map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
