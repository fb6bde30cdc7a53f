// Command sigstream-discover browses the local network for analyzer daemons
// announced over mDNS and prints how to reach them.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sigstream/sigstream/internal/discovery"
)

func main() {
	timeout := flag.Duration("timeout", 5*time.Second, "Browse duration")
	flag.Parse()

	fmt.Printf("Browsing %s.local for %s...\n", discovery.Service, *timeout)

	start := time.Now()
	servers, err := discovery.Browse(context.Background(), *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "discovery error: %v\n", err)
		os.Exit(1)
	}
	elapsed := time.Since(start).Truncate(time.Millisecond)

	if len(servers) == 0 {
		fmt.Printf("No analyzers found (%s)\n", elapsed)
		return
	}

	fmt.Printf("Found %d analyzer(s) in %s\n\n", len(servers), elapsed)
	for i, s := range servers {
		fmt.Printf("#%d %s\n", i+1, s.Instance)
		fmt.Printf("   host: %s\n", s.Hostname)
		for _, ip := range s.Addresses {
			fmt.Printf("   addr: %s\n", ip)
		}
		fmt.Printf("   dial: sigstream -addr %s\n", s.Addr())
		for _, txt := range s.TXT {
			fmt.Printf("   txt:  %s\n", txt)
		}
		fmt.Println()
	}
}
