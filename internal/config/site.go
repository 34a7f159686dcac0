package config

import "strings"

// SiteConfig holds per-site request settings.
// Some storefronts sit behind a password page or a geo gate; a cookie or
// header from a real session gets past them.
type SiteConfig struct {
	// Cookie is an HTTP cookie sent with every request to this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Region overrides the run region for records of this site.
	Region string `yaml:"region,omitempty"`
}

// File represents the structure of the .topshop rule file.
type File struct {
	// Platform holds the rules of the platform detection task.
	Platform TaskRules `yaml:"platform,omitempty"`

	// Category holds the rules of the category classification task.
	Category TaskRules `yaml:"category,omitempty"`

	// Sites maps domains to their site-specific configurations.
	// Keys are bare hosts without scheme (e.g., "shop.example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a specific domain.
// It merges the site-specific configuration with defaults.
func (cf *File) GetSiteConfig(domain string) SiteConfig {
	result := SiteConfig{
		Cookie: cf.Defaults.Cookie,
		Region: cf.Defaults.Region,
	}
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	siteConfig, ok := cf.Sites[strings.ToLower(domain)]
	if !ok {
		return result
	}
	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if siteConfig.Region != "" {
		result.Region = siteConfig.Region
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range siteConfig.Headers {
			result.Headers[k] = v
		}
	}
	return result
}
