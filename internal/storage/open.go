package storage

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/DevSingh98/mysql-shell/internal/shellerr"
)

// Opener constructs a Backend rooted at the given URL. Registered by each
// backend subpackage's init-time Register call, keyed by URL scheme.
type Opener func(rawURL string) (Backend, error)

var openers = map[string]Opener{}

// Register associates a URL scheme (e.g. "s3", "azblob", "oci", "http",
// "https", "file") with an Opener. Backend subpackages call this from an
// init func; cmd/ imports every backend package for side effects so the
// registry is fully populated before Open is ever called.
func Register(scheme string, opener Opener) {
	openers[scheme] = opener
}

// Open parses rawURL's scheme and dispatches to the registered Opener. A
// bare path with no scheme (e.g. "/var/backups/dump1") is treated as
// "file".
func Open(rawURL string) (Backend, error) {
	scheme := "file"
	if u, err := url.Parse(rawURL); err == nil && u.Scheme != "" {
		scheme = strings.ToLower(u.Scheme)
	}
	opener, ok := openers[scheme]
	if !ok {
		return nil, shellerr.New(shellerr.ArgumentError, fmt.Sprintf("unsupported storage URL scheme %q", scheme))
	}
	return opener(rawURL)
}
