package internal

import (
	"fmt"
	"strings"

	"github.com/goplus/llar-pango/formula"
	"github.com/goplus/llar-pango/internal/profile"
	"github.com/goplus/llar-pango/recipes/pango"
)

// config is the effective input of one recipe evaluation: the host
// platform and default options, overridden by the profile, overridden by
// the command line.
type config struct {
	platform formula.Platform
	options  pango.Options
	deps     map[string]formula.Dependency
}

// parseOptionArg parses an option argument in the form "key=value".
func parseOptionArg(arg string) (key, value string, err error) {
	key, value, ok := strings.Cut(arg, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid option %q, want key=value", arg)
	}
	return key, strings.TrimSpace(value), nil
}

func loadConfig(f *globalFlags) (*config, error) {
	c := &config{
		platform: formula.HostPlatform(),
		options:  pango.DefaultOptions(),
		deps:     map[string]formula.Dependency{},
	}

	if f.profile != "" {
		p, err := profile.Load(f.profile)
		if err != nil {
			return nil, err
		}
		if err := p.Apply(&c.platform); err != nil {
			return nil, err
		}
		kvs, err := p.OptionValues()
		if err != nil {
			return nil, err
		}
		for _, kv := range kvs {
			if err := c.options.Set(kv[0], kv[1]); err != nil {
				return nil, fmt.Errorf("profile %s: %w", f.profile, err)
			}
		}
		c.deps = p.Dependencies()
	}

	if f.os != "" {
		target, err := formula.ParseOS(f.os)
		if err != nil {
			return nil, err
		}
		c.platform.OS = target
	}
	if f.arch != "" {
		c.platform.Arch = f.arch
	}
	for _, arg := range f.options {
		key, value, err := parseOptionArg(arg)
		if err != nil {
			return nil, err
		}
		if err := c.options.Set(key, value); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *config) resolve() pango.Resolved {
	return c.options.Resolve(c.platform)
}
