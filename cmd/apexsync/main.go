package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/cloudflare/cloudflare-go"
	"github.com/folded-dev/apexsync"
	"golang.org/x/term"
)

var config = struct {
	EnvFile  string
	IP       string
	Iface    string
	Services string
	DryRun   bool
	Setup    bool
	Verbose  bool
}{}

var logger *log.Logger = log.New(io.Discard, "", log.LstdFlags)

func init() {
	flag.StringVar(&config.EnvFile, "env", defaultEnvFile(), "Path to the credential file")
	flag.StringVar(&config.IP, "ip", "", "Skip the public IP lookup and use this address")
	flag.StringVar(&config.Iface, "iface", "", "Read the public IP from this network interface")
	flag.StringVar(&config.Services, "services", "", "Comma-separated public IP lookup service URLs")
	flag.BoolVar(&config.DryRun, "dry-run", false, "Report a divergence without updating the record")
	flag.BoolVar(&config.Setup, "setup", false, "Prompt for credentials and write the credential file")
	flag.BoolVar(&config.Verbose, "v", false, "Enable verbose logging")
}

func main() {
	flag.Parse()
	if config.Verbose {
		logger = log.Default()
	}
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if config.Setup {
		if err := runSetup(); err != nil {
			return fmt.Errorf("setup: %w", err)
		}
		return nil
	}

	creds, err := resolveCredentials()
	if err != nil {
		return err
	}
	logger.Printf("credentials loaded: %s\n", creds)

	resolver, err := buildResolver()
	if err != nil {
		return err
	}

	client, err := apexsync.New(creds,
		apexsync.UsingResolver(resolver),
		apexsync.WithDryRun(config.DryRun),
		apexsync.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("error creating apexsync client: %w", err)
	}
	if err := client.Run(context.Background()); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	return nil
}

// defaultEnvFile is the credential file expected beside the executable.
func defaultEnvFile() string {
	exe, err := os.Executable()
	if err != nil {
		return ".env"
	}
	return filepath.Join(filepath.Dir(exe), ".env")
}

func resolveCredentials() (apexsync.Credentials, error) {
	if _, err := os.Stat(config.EnvFile); err == nil {
		logger.Printf("credential file found at %q\n", config.EnvFile)
		if err := verifyPermissions(config.EnvFile); err != nil {
			return apexsync.Credentials{}, err
		}
	} else {
		logger.Printf("no credential file at %q, reading environment instead\n", config.EnvFile)
	}
	return apexsync.ResolveCredentials(
		apexsync.FileSource{Path: config.EnvFile},
		apexsync.EnvSource{},
	)
}

func buildResolver() (apexsync.Resolver, error) {
	switch {
	case config.IP != "":
		return apexsync.FromString(config.IP)
	case config.Iface != "":
		return apexsync.InterfaceResolver(config.Iface), nil
	case config.Services != "":
		var urls []string
		for _, s := range strings.Split(config.Services, ",") {
			if s = strings.TrimSpace(s); s != "" {
				urls = append(urls, s)
			}
		}
		return apexsync.WebResolver(urls...)
	default:
		return apexsync.WebResolver()
	}
}

func runSetup() error {
	fmt.Printf("Enter Cloudflare API token: \n")
	bytekey, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return fmt.Errorf("error reading from stdin: %w", err)
	}
	key := strings.TrimSpace(string(bytekey))

	api, err := cloudflare.NewWithAPIToken(key)
	if err != nil {
		return fmt.Errorf("error creating api client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Println("verifying token...")
	result, err := api.VerifyAPIToken(ctx)
	if err != nil {
		return fmt.Errorf("unable to verify api token: %w", err)
	}
	if result.Status != "active" {
		return fmt.Errorf("expected api token status to be \"active\"; got %q", result.Status)
	}
	logger.Println("token verified successfully")

	reader := bufio.NewReader(os.Stdin)
	zoneName, err := prompt(reader, "Zone name (e.g. example.com): ")
	if err != nil {
		return err
	}
	zoneID, err := prompt(reader, "Zone ID: ")
	if err != nil {
		return err
	}

	logger.Printf("creating credential file at %q\n", config.EnvFile)
	if err := writeCredentialFile(config.EnvFile, key, zoneName, zoneID); err != nil {
		return err
	}
	logger.Printf("credentials written to %q\n", config.EnvFile)
	return nil
}

// writeCredentialFile creates the key=value credential file readable only by
// its owner. An existing file is never overwritten.
func writeCredentialFile(path, key, zoneName, zoneID string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("unable to create %q: %w", path, err)
	}
	defer f.Close()
	fmt.Fprintf(f, "api_key=%s\nzone_name=%s\nzone_id=%s\n", key, zoneName, zoneID)
	return nil
}

func prompt(reader *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("error reading from stdin: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func verifyPermissions(path string) error {

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("error checking credential file permissions: %w", err)
	}

	perms := info.Mode().Perm()
	// Error messages will state that we want 0600,
	// but we'll also accept 0400 which is even more restricted.
	// The file might be provided by some secrets managing software as readonly.
	if perms != 0600 && perms != 0400 {
		return fmt.Errorf("invalid permissions for %q: expected file permissions \"-rw-------\"; found %q", path, fs.FileMode(perms))
	}

	return nil
}
