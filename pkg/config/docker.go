package config

import (
	"os"
	"sync"
)

var (
	inContainerOnce   sync.Once
	inContainerResult bool
)

// RunningInContainer reports whether the engine is running inside a Docker
// container, detected via /.dockerenv. The result is cached.
func RunningInContainer() bool {
	inContainerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		inContainerResult = err == nil
	})
	return inContainerResult
}

// ResolveSourceHost maps loopback hosts to host.docker.internal when the
// engine runs in a container, so sources listening on the host machine stay
// reachable. Non-loopback hosts pass through unchanged.
func ResolveSourceHost(host string) string {
	if !RunningInContainer() {
		return host
	}
	if host == "localhost" || host == "127.0.0.1" {
		return "host.docker.internal"
	}
	return host
}
