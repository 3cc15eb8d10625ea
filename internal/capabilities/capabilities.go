// Package capabilities builds the browser capability records handed to the
// automation runtime when a session is opened.
package capabilities

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidBrowser is returned when the requested browser is not supported.
var ErrInvalidBrowser = errors.New("Invalid browser name!")

// Browser identifiers accepted on the command line.
const (
	Chrome  = "chrome"
	Firefox = "firefox"
	Edge    = "edge"
)

// DefaultBrowser is used when no browser name is given.
const DefaultBrowser = Chrome

// NameVersion is a name/version pair inside the device properties.
type NameVersion struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

// Platform describes the host operating system.
type Platform = NameVersion

// DeviceProperties carries the browser and platform descriptors.
type DeviceProperties struct {
	Browser  NameVersion `json:"browser" yaml:"browser"`
	Platform Platform    `json:"platform" yaml:"platform"`
}

// Capability is a single browser capability record.
type Capability struct {
	// ID is the command-line identifier (chrome, firefox, edge).
	ID          string `json:"-" yaml:"-"`
	BrowserName string `json:"browserName" yaml:"browserName"`
	// OptionsKey names the vendor options entry, e.g. "goog:chromeOptions".
	OptionsKey       string           `json:"-" yaml:"-"`
	Args             []string         `json:"-" yaml:"-"`
	ShardTestFiles   bool             `json:"shardTestFiles" yaml:"shardTestFiles"`
	MaxInstances     int              `json:"maxInstances" yaml:"maxInstances"`
	DeviceProperties DeviceProperties `json:"deviceProperties" yaml:"deviceProperties"`
}

// Options controls how capability records are built.
type Options struct {
	Args     []string
	Headless bool
	Platform Platform
}

// Map renders the record in the shape the remote driver expects.
func (c Capability) Map() map[string]interface{} {
	m := map[string]interface{}{
		"browserName":    c.BrowserName,
		"shardTestFiles": c.ShardTestFiles,
		"maxInstances":   c.MaxInstances,
		"deviceProperties": map[string]interface{}{
			"browser": map[string]interface{}{
				"name":    c.DeviceProperties.Browser.Name,
				"version": c.DeviceProperties.Browser.Version,
			},
			"platform": map[string]interface{}{
				"name":    c.DeviceProperties.Platform.Name,
				"version": c.DeviceProperties.Platform.Version,
			},
		},
	}
	if c.OptionsKey != "" {
		args := make([]interface{}, 0, len(c.Args))
		for _, a := range c.Args {
			args = append(args, a)
		}
		m[c.OptionsKey] = map[string]interface{}{"args": args}
	}
	return m
}

type browserSpec struct {
	browserName string
	optionsKey  string
	headlessArg string
}

var browsers = map[string]browserSpec{
	Chrome:  {browserName: "chrome", optionsKey: "goog:chromeOptions", headlessArg: "--headless=new"},
	Firefox: {browserName: "firefox", optionsKey: "moz:firefoxOptions", headlessArg: "-headless"},
	Edge:    {browserName: "MicrosoftEdge", optionsKey: "ms:edgeOptions", headlessArg: "--headless=new"},
}

func build(id string, spec browserSpec, opts Options) Capability {
	args := append([]string(nil), opts.Args...)
	if opts.Headless {
		args = append(args, spec.headlessArg)
	}
	return Capability{
		ID:             id,
		BrowserName:    spec.browserName,
		OptionsKey:     spec.optionsKey,
		Args:           args,
		ShardTestFiles: true,
		MaxInstances:   1,
		DeviceProperties: DeviceProperties{
			Browser:  NameVersion{Name: spec.browserName, Version: "latest"},
			Platform: opts.Platform,
		},
	}
}

// Set builds the full capability set keyed by browser identifier.
func Set(opts Options) map[string]Capability {
	set := make(map[string]Capability, len(browsers))
	for id, spec := range browsers {
		set[id] = build(id, spec, opts)
	}
	return set
}

// Supported lists the accepted browser identifiers in sorted order.
func Supported() []string {
	ids := make([]string, 0, len(browsers))
	for id := range browsers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Select returns the capability record for name. An empty name selects
// DefaultBrowser; names are matched case-insensitively.
func Select(name string, opts Options) (Capability, error) {
	id := strings.ToLower(strings.TrimSpace(name))
	if id == "" {
		id = DefaultBrowser
	}
	spec, ok := browsers[id]
	if !ok {
		return Capability{}, fmt.Errorf("%w (got %q, want one of %s)", ErrInvalidBrowser, name, strings.Join(Supported(), ", "))
	}
	return build(id, spec, opts), nil
}
