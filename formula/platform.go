package formula

import (
	"fmt"
	"runtime"
	"slices"
	"strings"
)

// OS names a target operating system.
type OS string

const (
	Linux   OS = "Linux"
	FreeBSD OS = "FreeBSD"
	Macos   OS = "Macos"
	Windows OS = "Windows"
)

// KnownOS lists the operating systems recipes are evaluated for.
var KnownOS = []OS{Linux, FreeBSD, Macos, Windows}

// ParseOS maps a user or GOOS spelling to an OS.
func ParseOS(s string) (OS, error) {
	switch strings.ToLower(s) {
	case "linux":
		return Linux, nil
	case "freebsd":
		return FreeBSD, nil
	case "macos", "darwin":
		return Macos, nil
	case "windows":
		return Windows, nil
	}
	return "", fmt.Errorf("unsupported os %q", s)
}

// Platform describes the settings a package is built for.
type Platform struct {
	OS              OS
	Arch            string
	Compiler        string
	CompilerVersion string
	BuildType       string
	Libcxx          string
	Cppstd          string
}

// HostPlatform returns the platform of the running process with a
// Release build type.
func HostPlatform() Platform {
	target, err := ParseOS(runtime.GOOS)
	if err != nil {
		target = OS(runtime.GOOS)
	}
	p := Platform{
		OS:        target,
		Arch:      archOf(runtime.GOARCH),
		BuildType: "Release",
	}
	switch target {
	case Windows:
		p.Compiler = "msvc"
	case Macos:
		p.Compiler = "apple-clang"
	case FreeBSD:
		p.Compiler = "clang"
	default:
		p.Compiler = "gcc"
	}
	return p
}

// Is reports whether p targets one of oses.
func (p Platform) Is(oses ...OS) bool {
	return slices.Contains(oses, p.OS)
}

// Settings returns the identity-relevant settings as key/value pairs.
// Empty values are omitted.
func (p Platform) Settings() map[string]string {
	m := map[string]string{}
	set := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	set("os", string(p.OS))
	set("arch", p.Arch)
	set("compiler", p.Compiler)
	set("compiler.version", p.CompilerVersion)
	set("build_type", p.BuildType)
	set("compiler.libcxx", p.Libcxx)
	set("compiler.cppstd", p.Cppstd)
	return m
}

func archOf(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "386":
		return "x86"
	case "arm64":
		return "armv8"
	}
	return goarch
}
