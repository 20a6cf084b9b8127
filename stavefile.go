//go:build stave

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yaklabco/stave/pkg/sh"
	"github.com/yaklabco/stave/pkg/st"
)

// Default target when running `stave` with no arguments.
var Default = Build

// Aliases for common targets.
var Aliases = map[string]interface{}{
	"b": Build,
	"t": Test,
	"l": Lint,
	"i": Install,
	"d": Dist,
	"c": Clean,
}

const (
	binaryName = "tiercache"
	mainPkg    = "./cmd/tiercache"
	binDir     = "bin"
	distDir    = "dist"

	// installDir is on root's PATH; tiercache always runs under sudo.
	installDir = "/usr/local/bin"
)

// distTargets are the platforms with a memory-backed volume manager.
var distTargets = []string{"darwin/arm64", "darwin/amd64", "linux/amd64", "linux/arm64"}

// All runs lint and tests, then builds.
func All() error {
	st.Deps(Lint, Test)
	st.Deps(Build)
	return nil
}

// Build compiles tiercache for the host platform.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating bin directory: %w", err)
	}
	return sh.RunV("go", "build", "-ldflags", buildLdflags(), "-o", filepath.Join(binDir, binaryName), mainPkg)
}

// Dist cross-compiles tiercache for every supported platform.
func Dist() error {
	if err := os.MkdirAll(distDir, 0o755); err != nil {
		return fmt.Errorf("creating dist directory: %w", err)
	}

	ldflags := buildLdflags()
	for _, target := range distTargets {
		goos, goarch, _ := strings.Cut(target, "/")
		output := filepath.Join(distDir, fmt.Sprintf("%s-%s-%s", binaryName, goos, goarch))

		env := map[string]string{"GOOS": goos, "GOARCH": goarch, "CGO_ENABLED": "0"}
		if err := sh.RunWithV(env, "go", "build", "-ldflags", ldflags, "-o", output, mainPkg); err != nil {
			return fmt.Errorf("building %s: %w", target, err)
		}
	}
	return nil
}

// Install copies the built binary to /usr/local/bin. Run it with sudo.
func Install() error {
	st.Deps(Build)

	src := filepath.Join(binDir, binaryName)
	dst := filepath.Join(installDir, binaryName)
	if st.Verbose() {
		fmt.Printf("Installing %s to %s\n", src, dst)
	}
	if err := sh.Copy(dst, src); err != nil {
		return err
	}
	return os.Chmod(dst, 0o755)
}

// Uninstall removes the installed binary.
func Uninstall() error {
	target := filepath.Join(installDir, binaryName)
	if _, err := os.Stat(target); os.IsNotExist(err) {
		if st.Verbose() {
			fmt.Printf("Binary not found at %s, nothing to uninstall\n", target)
		}
		return nil
	}
	return os.Remove(target)
}

// Test runs all tests with race detection and coverage.
func Test() error {
	return sh.RunV("go", "test", "-race", "-cover", "./...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Fmt formats all Go code.
func Fmt() error {
	if err := sh.Run("gofmt", "-w", "."); err != nil {
		return fmt.Errorf("running gofmt: %w", err)
	}
	return sh.Run("goimports", "-w", ".")
}

// Tidy runs go mod tidy.
func Tidy() error {
	return sh.RunV("go", "mod", "tidy")
}

// Clean removes build artifacts.
func Clean() error {
	for _, dir := range []string{binDir, distDir} {
		if st.Verbose() {
			fmt.Printf("Removing %s/\n", dir)
		}
		if err := sh.Rm(dir + "/"); err != nil {
			return err
		}
	}
	return nil
}

// buildLdflags injects version information into cmd/tiercache.
func buildLdflags() string {
	version := "dev"
	commit := "unknown"
	date := time.Now().UTC().Format(time.RFC3339)

	if v, err := sh.Output("git", "describe", "--tags", "--always"); err == nil && v != "" {
		version = strings.TrimSpace(v)
	}
	if c, err := sh.Output("git", "rev-parse", "--short", "HEAD"); err == nil && c != "" {
		commit = strings.TrimSpace(c)
	}

	const pkg = "main"
	return fmt.Sprintf("-s -w -X %s.version=%s -X %s.commit=%s -X %s.date=%s",
		pkg, version, pkg, commit, pkg, date)
}
