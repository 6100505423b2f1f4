package apexsync

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Required credential keys, identical for every source.
const (
	KeyAPIKey   = "api_key"
	KeyZoneName = "zone_name"
	KeyZoneID   = "zone_id"
)

// Credentials identifies the zone to reconcile and authorizes changes to it.
type Credentials struct {
	APIKey   string
	ZoneName string
	ZoneID   string
}

// String renders the credentials with secrets masked down to their first and
// last three characters. The zone name is not a secret and prints in full.
func (c Credentials) String() string {
	return fmt.Sprintf("api_key=%s zone_name=%s zone_id=%s", mask(c.APIKey), c.ZoneName, mask(c.ZoneID))
}

func mask(s string) string {
	if len(s) <= 6 {
		return "***"
	}
	return s[:3] + "..." + s[len(s)-3:]
}

// ErrSourceUnavailable is returned by a Source that cannot answer at all,
// such as a credential file that does not exist.
// Resolution moves on to the next source.
var ErrSourceUnavailable = errors.New("credential source unavailable")

// A Source produces a complete set of credentials or fails.
// There is no partial answer and no merging across sources:
// the first available source decides all three keys.
type Source interface {
	Credentials() (Credentials, error)
}

// FileSource reads credentials from a file of key=value lines.
// Each line splits on its first "=" only,
// so values may themselves contain "=" characters.
type FileSource struct {
	Path string
}

func (f FileSource) Credentials() (Credentials, error) {
	if _, err := os.Stat(f.Path); os.IsNotExist(err) {
		return Credentials{}, fmt.Errorf("%q: %w", f.Path, ErrSourceUnavailable)
	}
	vars, err := godotenv.Read(f.Path)
	if err != nil {
		return Credentials{}, fmt.Errorf("error reading credential file %q: %w", f.Path, err)
	}
	return fromMap(vars, fmt.Sprintf("credential file %q", f.Path))
}

// EnvSource reads the same keys from the process environment.
// It is always available, so it belongs last in the source order.
type EnvSource struct{}

func (EnvSource) Credentials() (Credentials, error) {
	vars := map[string]string{}
	for _, key := range []string{KeyAPIKey, KeyZoneName, KeyZoneID} {
		if v, ok := os.LookupEnv(key); ok {
			vars[key] = v
		}
	}
	return fromMap(vars, "environment")
}

func fromMap(vars map[string]string, source string) (Credentials, error) {
	var c Credentials
	for _, field := range []struct {
		key  string
		dest *string
	}{
		{KeyAPIKey, &c.APIKey},
		{KeyZoneName, &c.ZoneName},
		{KeyZoneID, &c.ZoneID},
	} {
		v, ok := vars[field.key]
		if !ok {
			return Credentials{}, MissingKeyError{Key: field.key, Source: source}
		}
		*field.dest = v
	}
	return c, nil
}

// ResolveCredentials returns credentials from the first available source.
// Availability decides everything: a credential file that exists but lacks a
// required key fails resolution even when a later source could supply it.
func ResolveCredentials(sources ...Source) (Credentials, error) {
	var errs []error
	for _, s := range sources {
		creds, err := s.Credentials()
		if errors.Is(err, ErrSourceUnavailable) {
			errs = append(errs, err)
			continue
		}
		if err != nil {
			return Credentials{}, err
		}
		return creds, nil
	}
	if len(errs) == 0 {
		return Credentials{}, errors.New("no credential sources were provided")
	}
	return Credentials{}, fmt.Errorf("no credential source available: %w", errors.Join(errs...))
}
