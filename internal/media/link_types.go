package media

import (
	_ "embed"
	"fmt"
	"net/url"
	"path"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed openers.toml
var openersTOML []byte

// Kind classifies an apply link.
type Kind int

const (
	KindNone Kind = iota
	KindPage
	KindDocument
)

func (k Kind) String() string {
	switch k {
	case KindPage:
		return "page"
	case KindDocument:
		return "document"
	default:
		return "none"
	}
}

type documentConfig struct {
	Extensions  []string `toml:"extensions"`
	URLPatterns []string `toml:"url_patterns"`
}

// PlatformOpener is the command used to hand a link to the desktop.
type PlatformOpener struct {
	Opener string   `toml:"opener"`
	Args   []string `toml:"args"`
}

type openersConfig struct {
	Documents documentConfig            `toml:"documents"`
	Platforms map[string]PlatformOpener `toml:"platforms"`
}

// Detector classifies links using the embedded opener table.
type Detector struct {
	config openersConfig
}

func NewDetector() (*Detector, error) {
	var cfg openersConfig
	if err := toml.Unmarshal(openersTOML, &cfg); err != nil {
		return nil, fmt.Errorf("parsing openers.toml: %w", err)
	}
	return &Detector{config: cfg}, nil
}

// Classify returns KindNone for placeholders and non-web links, KindDocument
// for links to downloadable notices, and KindPage otherwise.
func (d *Detector) Classify(link string) Kind {
	link = strings.TrimSpace(link)
	if link == "" || link == "#" {
		return KindNone
	}
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return KindNone
	}

	ext := strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), ".")
	for _, e := range d.config.Documents.Extensions {
		if ext == e {
			return KindDocument
		}
	}
	lower := strings.ToLower(link)
	for _, p := range d.config.Documents.URLPatterns {
		if strings.Contains(lower, p) {
			return KindDocument
		}
	}
	return KindPage
}

// DefaultOpener returns the opener for the running platform.
func (d *Detector) DefaultOpener() PlatformOpener {
	if p, ok := d.config.Platforms[runtime.GOOS]; ok {
		return p
	}
	if p, ok := d.config.Platforms["fallback"]; ok {
		return p
	}
	return PlatformOpener{Opener: "open"}
}
