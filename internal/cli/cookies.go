package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

// cookieFileMode keeps the signed session cookie private to the user.
const cookieFileMode = 0o600

// DefaultCookieFile returns where quotectl remembers its visitor session.
func DefaultCookieFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, "quotedesk", "cookies.json")
}

// loadCookies restores the cookies saved for server into jar.
// A missing file is not an error.
func loadCookies(path string, jar http.CookieJar, server string) error {
	if path == "" {
		return nil
	}

	u, err := url.Parse(server)
	if err != nil {
		return fmt.Errorf("parsing server url: %w", err)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("reading cookies: %w", err)
	}

	saved := map[string][]*http.Cookie{}
	if err := json.Unmarshal(data, &saved); err != nil {
		return fmt.Errorf("decoding cookies %s: %w", path, err)
	}

	jar.SetCookies(u, saved[u.Host])

	return nil
}

// saveCookies persists the cookies jar holds for server, keeping entries of
// other servers already in the file.
func saveCookies(path string, jar http.CookieJar, server string) error {
	if path == "" {
		return nil
	}

	u, err := url.Parse(server)
	if err != nil {
		return fmt.Errorf("parsing server url: %w", err)
	}

	saved := map[string][]*http.Cookie{}
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &saved)
	}

	saved[u.Host] = jar.Cookies(u)

	data, err := json.Marshal(saved)
	if err != nil {
		return fmt.Errorf("encoding cookies: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating cookie dir: %w", err)
	}

	if err := os.WriteFile(path, data, cookieFileMode); err != nil {
		return fmt.Errorf("writing cookies: %w", err)
	}

	return nil
}
