// Package catalog loads quote catalogs from YAML files.
package catalog

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/jsamuelsen/quotedesk/internal/domain"
)

// entry is one quote as written in a catalog file:
//
//	quotes:
//	  - author: Linus Torvalds
//	    text: Talk is cheap. Show me the code.
type entry struct {
	Author string `koanf:"author"`
	Text   string `koanf:"text"`
}

// Load returns the catalog at path, or the built-in catalog when path is empty.
func Load(path string) (*domain.Catalog, error) {
	if path == "" {
		return domain.NewCatalog(domain.DefaultQuotes())
	}

	return LoadFile(path)
}

// LoadFile reads and validates a YAML catalog.
func LoadFile(path string) (*domain.Catalog, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("reading catalog %q: %w", path, err)
	}

	var entries []entry
	if err := k.Unmarshal("quotes", &entries); err != nil {
		return nil, fmt.Errorf("decoding catalog %q: %w", path, err)
	}

	quotes := make([]domain.Quote, len(entries))
	for i, e := range entries {
		quotes[i] = domain.Quote{
			Author: strings.TrimSpace(e.Author),
			Text:   strings.TrimSpace(e.Text),
		}
	}

	catalog, err := domain.NewCatalog(quotes)
	if err != nil {
		return nil, fmt.Errorf("catalog %q: %w", path, err)
	}

	return catalog, nil
}
