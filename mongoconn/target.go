// mongoconn/target.go
package mongoconn

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

// Fixed location of the cinema database inside the compose network.
const (
	DefaultHost     = "mongo"
	DefaultPort     = 27017
	DefaultDatabase = "new-cinema"
)

// Target identifies a single MongoDB server and the database (namespace)
// selected on it.
type Target struct {
	Host     string
	Port     int
	Database string
}

// DefaultTarget returns mongo:27017/new-cinema.
func DefaultTarget() Target {
	return Target{
		Host:     DefaultHost,
		Port:     DefaultPort,
		Database: DefaultDatabase,
	}
}

// URI renders the target as a mongodb:// connection string.
func (t Target) URI() string {
	return "mongodb://" + net.JoinHostPort(t.Host, strconv.Itoa(t.Port)) + "/" + t.Database
}

func (t Target) String() string { return t.URI() }

// Validate reports whether the target can be dialed.
func (t Target) Validate() error {
	var invalid []string
	if strings.TrimSpace(t.Host) == "" {
		invalid = append(invalid, "host is empty")
	}
	if t.Port <= 0 || t.Port > 65535 {
		invalid = append(invalid, "port must be in 1..65535")
	}
	if strings.TrimSpace(t.Database) == "" {
		invalid = append(invalid, "database is empty")
	}
	if len(invalid) == 0 {
		return nil
	}
	return fmt.Errorf("invalid mongo target: %s", strings.Join(invalid, ", "))
}

// ParseTarget builds a Target from a single-host mongodb:// URI. A missing
// port defaults to 27017; a missing database defaults to DefaultDatabase.
func ParseTarget(uri string) (Target, error) {
	if err := ValidateURI(uri); err != nil {
		return Target{}, fmt.Errorf("mongo uri: %w", err)
	}
	// +srv would resolve DNS records during parsing.
	if strings.HasPrefix(strings.TrimSpace(uri), "mongodb+srv://") {
		return Target{}, fmt.Errorf("mongo uri: mongodb+srv is not supported for a single-host target")
	}
	cs, err := connstring.ParseAndValidate(strings.TrimSpace(uri))
	if err != nil {
		return Target{}, fmt.Errorf("mongo uri: %w", err)
	}
	if len(cs.Hosts) != 1 {
		return Target{}, fmt.Errorf("mongo uri: expected exactly one host, got %d", len(cs.Hosts))
	}

	t := Target{Host: cs.Hosts[0], Port: DefaultPort, Database: cs.Database}
	if host, port, err := net.SplitHostPort(cs.Hosts[0]); err == nil {
		n, err := strconv.Atoi(port)
		if err != nil {
			return Target{}, fmt.Errorf("mongo uri: bad port %q", port)
		}
		t.Host, t.Port = host, n
	}
	if t.Database == "" {
		t.Database = DefaultDatabase
	}
	return t, t.Validate()
}

// ValidateURI does a lightweight shape check of a Mongo connection string.
// It accepts mongodb:// and mongodb+srv:// schemes, requires a non-empty host,
// and rejects CR/LF characters.
func ValidateURI(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("empty")
	}
	if strings.ContainsAny(raw, "\r\n") {
		return fmt.Errorf("contains CR/LF")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	switch u.Scheme {
	case "mongodb", "mongodb+srv":
	default:
		return fmt.Errorf(`scheme must be "mongodb" or "mongodb+srv" (got %q)`, u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("missing host")
	}

	return nil
}
