// relayprobe is a tiny standalone liveness probe for chatrelay, suitable as
// a container healthcheck. It GETs /healthz and exits 0 when the relay
// answers 200 within the timeout.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/valyala/fasthttp"
)

func main() {
	url := flag.String("url", "http://127.0.0.1:3000/healthz", "health endpoint to probe")
	timeout := flag.Duration("timeout", 3*time.Second, "request timeout")
	flag.Parse()

	status, _, err := fasthttp.GetTimeout(nil, *url, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe failed: %v\n", err)
		os.Exit(1)
	}
	if status != fasthttp.StatusOK {
		fmt.Fprintf(os.Stderr, "probe failed: status %d\n", status)
		os.Exit(1)
	}
	fmt.Println("ok")
}
