package bootstrap

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// ClassifyRedisError provides specific error messages based on the type of connection failure.
func ClassifyRedisError(err error, addr string) string {
	if err == nil {
		return ""
	}

	errStr := err.Error()

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("Connection to Redis at %s timed out.\n"+
			"  Remediation:\n"+
			"  - Check if Redis is running: redis-cli -h <host> ping\n"+
			"  - Verify network connectivity: nc -zv %s", addr, addr)
	}

	if errors.Is(err, syscall.ECONNREFUSED) || containsIgnoreCase(errStr, "connection refused") {
		return fmt.Sprintf("Connection refused by Redis at %s.\n"+
			"  This usually means Redis is not running.\n"+
			"  Remediation:\n"+
			"  - Start Redis: docker compose up -d redis\n"+
			"  - Or use the in-process store: WARDEN_STORE_BACKEND=memory", addr)
	}

	if containsIgnoreCase(errStr, "no such host") || containsIgnoreCase(errStr, "lookup") {
		return fmt.Sprintf("Cannot resolve hostname in Redis address %s.\n"+
			"  Remediation:\n"+
			"  - Verify store.redis.addr in config.yaml\n"+
			"  - Check DNS configuration", addr)
	}

	if containsIgnoreCase(errStr, "NOAUTH") || containsIgnoreCase(errStr, "WRONGPASS") {
		return fmt.Sprintf("Authentication failed for Redis at %s.\n"+
			"  Remediation:\n"+
			"  - Set store.redis.password or WARDEN_STORE_REDIS_PASSWORD", addr)
	}

	return fmt.Sprintf("Failed to connect to Redis at %s: %v\n"+
		"  Remediation:\n"+
		"  - Ensure Redis is running and accessible\n"+
		"  - Check config.yaml store.redis.addr setting", addr, err)
}

// containsIgnoreCase checks if s contains substr (case-insensitive).
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
