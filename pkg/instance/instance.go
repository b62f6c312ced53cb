// Package instance names the running process in logs so entries from
// several replicas can be told apart.
package instance

import (
	"os"
	"strconv"
	"sync"
)

const envInstanceID = "HELADERIA_INSTANCE_ID"

var id = sync.OnceValue(func() string {
	if v := os.Getenv(envInstanceID); v != "" {
		return v
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	return host + "-" + strconv.Itoa(os.Getpid())
})

// ID is resolved once per process: HELADERIA_INSTANCE_ID when set,
// otherwise "<hostname>-<pid>".
func ID() string {
	return id()
}
