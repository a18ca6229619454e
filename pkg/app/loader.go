package app

import (
	"net/url"
	"os"

	"github.com/pkg/errors"
)

// fileLoaders reads files by URL scheme. A missing scheme is a local path.
var fileLoaders = map[string]func(u *url.URL) ([]byte, error){
	"":     loadLocalFile,
	"file": loadLocalFile,
}

// LoadFile reads the file at fileURL, such as a TLS certificate
func LoadFile(fileURL string) ([]byte, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid file url %s", fileURL)
	}

	load, ok := fileLoaders[u.Scheme]
	if !ok {
		return nil, errors.Errorf("no file loader for scheme %q", u.Scheme)
	}
	return load(u)
}

func loadLocalFile(u *url.URL) ([]byte, error) {
	return os.ReadFile(u.Path)
}
