// Package updates reads the published release manifest and fetches new
// application packages.
package updates

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/dmitrijs2005/fieldmate/internal/netx"
	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidManifest  = errors.New("invalid update manifest")
	ErrChecksumMismatch = errors.New("update checksum mismatch")
)

// Manifest describes the latest published build.
type Manifest struct {
	VersionCode int    `json:"versionCode" validate:"required,min=1"`
	VersionName string `json:"versionName" validate:"required"`
	APKURL      string `json:"apkUrl" validate:"required,url"`
	SHA256      string `json:"sha256,omitempty" validate:"omitempty,hexadecimal,len=64"`
}

// Available reports whether m is newer than the running build.
func (m Manifest) Available(current int) bool {
	return m.VersionCode > current
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// Checker fetches manifests and packages over HTTP.
type Checker struct {
	manifestURL string
	client      *http.Client
}

func NewChecker(manifestURL string, client *http.Client) *Checker {
	if client == nil {
		client = http.DefaultClient
	}
	return &Checker{manifestURL: manifestURL, client: client}
}

// Fetch downloads and validates the manifest.
func (c *Checker) Fetch(ctx context.Context) (Manifest, error) {
	var buf strings.Builder
	if _, err := netx.Download(ctx, c.client, c.manifestURL, &buf); err != nil {
		return Manifest{}, fmt.Errorf("fetch manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal([]byte(buf.String()), &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := validate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return Manifest{}, fmt.Errorf("%w: %s failed %s", ErrInvalidManifest, verrs[0].Field(), verrs[0].Tag())
		}
		return Manifest{}, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return m, nil
}

// Download stores the package from m at dst. When the manifest carries a
// checksum the file is only moved into place if it matches.
func (c *Checker) Download(ctx context.Context, m Manifest, dst string) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".update-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	_, err = netx.Download(ctx, c.client, m.APKURL, io.MultiWriter(tmp, h))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("download update: %w", err)
	}

	if m.SHA256 != "" {
		sum := hex.EncodeToString(h.Sum(nil))
		if !strings.EqualFold(sum, m.SHA256) {
			return fmt.Errorf("%w: got %s", ErrChecksumMismatch, sum)
		}
	}
	return os.Rename(tmp.Name(), dst)
}
