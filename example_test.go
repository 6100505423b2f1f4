package apexsync_test

import (
	"context"
	"log"
	"os"

	"github.com/folded-dev/apexsync"
)

func ExampleNew() {
	creds, err := apexsync.ResolveCredentials(
		apexsync.FileSource{Path: ".env"},
		apexsync.EnvSource{},
	)
	if err != nil {
		log.Fatalf("error resolving credentials: %s", err)
	}
	c, err := apexsync.New(creds,
		apexsync.WithLogger(log.New(os.Stderr, "", log.LstdFlags)),
	)
	if err != nil {
		log.Fatalf("error creating apexsync client: %s", err)
	}
	// run once:
	if err := c.Run(context.Background()); err != nil {
		log.Fatalf("reconcile failed: %s", err)
	}
}

func ExampleWebResolver() {
	// I'm not vouching for these services, but they do return the IP of the client connection.
	// If possible, run your own and provide the URL here instead.
	r, err := apexsync.WebResolver(
		"https://checkip.amazonaws.com/",
		"https://icanhazip.com/", // operated by Cloudflare since ~2021
		"https://ipinfo.io/ip",
	)
	if err != nil {
		log.Fatalf("error creating resolver: %s", err)
	}
	creds, err := apexsync.ResolveCredentials(apexsync.EnvSource{})
	if err != nil {
		log.Fatalf("error resolving credentials: %s", err)
	}
	c, err := apexsync.New(creds, apexsync.UsingResolver(r))
	if err != nil {
		log.Fatalf("error creating apexsync client: %s", err)
	}
	// run once:
	if err := c.Run(context.Background()); err != nil {
		log.Fatalf("reconcile failed: %s", err)
	}
}
