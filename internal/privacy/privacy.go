// Package privacy scrubs identifying details from messages before they
// leave the machine: server URLs, file system paths that may name patients
// or users, and e-mail addresses.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"net/netip"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Pre-compiled patterns
var (
	urlPattern   = regexp.MustCompile(`\b(?:https?|dicom|ftp|sftp)://\S+`)
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	// Absolute POSIX paths and Windows drive paths with at least two segments
	pathPattern = regexp.MustCompile(`(?:[A-Za-z]:\\|/)(?:[^\s/\\:"']+[/\\])+[^\s/\\:"']*`)
)

// ScrubMessage removes or anonymizes sensitive information from telemetry messages
func ScrubMessage(message string) string {
	message = urlPattern.ReplaceAllStringFunc(message, AnonymizeURL)
	message = emailPattern.ReplaceAllString(message, "[EMAIL]")
	return pathPattern.ReplaceAllStringFunc(message, AnonymizePath)
}

// AnonymizeURL converts a URL to a stable hash that keeps the scheme, the
// kind of host and the shape of the path.
func AnonymizeURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		hash := sha256.Sum256([]byte(rawURL))
		return fmt.Sprintf("url-hash-%x", hash[:8])
	}

	var normalizedParts []string
	if parsedURL.Scheme != "" {
		normalizedParts = append(normalizedParts, parsedURL.Scheme)
	}
	if host := parsedURL.Hostname(); host != "" {
		normalizedParts = append(normalizedParts, categorizeHost(host))
	}
	if parsedURL.Port() != "" {
		normalizedParts = append(normalizedParts, "port-"+parsedURL.Port())
	}
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		normalizedParts = append(normalizedParts, hashSegments(parsedURL.Path))
	}

	hash := sha256.Sum256([]byte(strings.Join(normalizedParts, ":")))
	return fmt.Sprintf("url-%x", hash[:12])
}

// AnonymizePath replaces a file system path with a hash of its directory,
// keeping the file extension so errors stay diagnosable.
func AnonymizePath(p string) string {
	normalized := strings.ReplaceAll(p, `\`, "/")
	ext := path.Ext(normalized)
	hash := sha256.Sum256([]byte(path.Dir(normalized)))
	return fmt.Sprintf("[PATH-%x]%s", hash[:4], ext)
}

// categorizeHost anonymizes hostnames while preserving useful categorization
func categorizeHost(host string) string {
	if host == "localhost" {
		return "localhost"
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		switch {
		case addr.IsLoopback():
			return "localhost"
		case addr.IsPrivate(), addr.IsLinkLocalUnicast():
			return "private-ip"
		default:
			return "public-ip"
		}
	}

	// For domain names, preserve TLD only
	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		return "domain-" + parts[len(parts)-1]
	}
	return "unknown-host"
}

// hashSegments keeps the depth of a path but hashes each segment
func hashSegments(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return "root"
	}
	segments := strings.Split(p, "/")
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		hash := sha256.Sum256([]byte(segment))
		out = append(out, fmt.Sprintf("seg-%x", hash[:4]))
	}
	return strings.Join(out, "/")
}
