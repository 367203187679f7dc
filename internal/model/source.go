package model

import "github.com/gosimple/slug"

// Source is one configured feed endpoint plus the metadata attached to
// every job it yields.
type Source struct {
	URL          string `mapstructure:"url" yaml:"url" toml:"url" json:"url"`
	Organization string `mapstructure:"organization" yaml:"organization" toml:"organization" json:"organization"`
	Category     string `mapstructure:"category" yaml:"category" toml:"category" json:"category"`
	Education    string `mapstructure:"education" yaml:"education" toml:"education" json:"education"`
}

// ID is a URL-safe handle for the source, derived from the organization
// name and falling back to the URL.
func (s Source) ID() string {
	if id := slug.Make(s.Organization); id != "" {
		return id
	}
	return slug.Make(s.URL)
}

func (s Source) String() string {
	if s.Organization != "" {
		return s.Organization
	}
	return s.URL
}
