//go:build mage

// Build targets for dealdesk.
//
//	mage build     Compile both binaries to bin/
//	mage test      Run all tests with the race detector
//	mage bench     Run core benchmarks
//	mage lint      Run go vet
//	mage run       Build and start the server
//	mage clean     Remove build artifacts
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binDir = "bin"

var binaries = map[string]string{
	"dealdesk-server": "./cmd/server",
	"dealdesk":        "./cmd/dealdesk",
}

// version is stamped into the CLI.
func version() string {
	if v := os.Getenv("VERSION"); v != "" {
		return v
	}
	if out, err := sh.Output("git", "describe", "--tags", "--always", "--dirty"); err == nil {
		return out
	}
	return "dev"
}

// Build compiles the server and the CLI to bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return err
	}
	ldflags := fmt.Sprintf("-X main.version=%s", version())
	for name, pkg := range binaries {
		if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", filepath.Join(binDir, name), pkg); err != nil {
			return err
		}
	}
	return nil
}

// Test runs every test with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Bench runs the core benchmarks.
func Bench() error {
	return sh.RunV("go", "test", "-run", "^$", "-bench", ".", "-benchmem", "./internal/core/")
}

// Lint runs go vet.
func Lint() error {
	return sh.RunV("go", "vet", "./...")
}

// Run builds and starts the server with the current environment.
func Run() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, "dealdesk-server"))
}

// Clean removes build artifacts.
func Clean() error {
	return os.RemoveAll(binDir)
}
