package config

import (
	"net"
	"net/url"
	"os"
	"sync"
)

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker returns true if the application is running inside a Docker container.
// Detection is based on the presence of /.dockerenv. The result is cached after the first call.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// resolveHost maps loopback hosts to host.docker.internal when inDocker is set.
func resolveHost(host string, inDocker bool) string {
	if !inDocker {
		return host
	}
	if host == "localhost" || host == "127.0.0.1" {
		return "host.docker.internal"
	}
	return host
}

// resolveDatabaseURL rewrites a loopback host in a postgres URL so a
// containerised engine reaches the database on the Docker host.
// Unparseable URLs are returned unchanged; pgx reports them later.
func resolveDatabaseURL(rawURL string, inDocker bool) string {
	if !inDocker || rawURL == "" {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}

	host, port := u.Hostname(), u.Port()
	resolved := resolveHost(host, true)
	if resolved == host {
		return rawURL
	}
	if port != "" {
		u.Host = net.JoinHostPort(resolved, port)
	} else {
		u.Host = resolved
	}
	return u.String()
}

// resolveBindAddr makes a loopback-bound server reachable from outside its container.
func resolveBindAddr(addr string, inDocker bool) string {
	if inDocker && (addr == "127.0.0.1" || addr == "localhost") {
		return "0.0.0.0"
	}
	return addr
}

// applyDockerDefaults adjusts addresses when running inside Docker.
func (c *Config) applyDockerDefaults(inDocker bool) {
	c.BindAddr = resolveBindAddr(c.BindAddr, inDocker)
	c.Storage.DatabaseURL = resolveDatabaseURL(c.Storage.DatabaseURL, inDocker)
}
