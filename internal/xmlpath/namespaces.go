// ABOUTME: Namespace prefix table shared by path matching
// ABOUTME: Maps conventional feed prefixes to every namespace URI publishers use for them

package xmlpath

import (
	"encoding/xml"
	"strings"
)

// namespaces maps a conventional prefix to the URIs that publishers bind it to.
var namespaces = map[string][]string{
	"itunes": {
		"http://www.itunes.com/dtds/podcast-1.0.dtd",
		"https://www.itunes.com/dtds/podcast-1.0.dtd",
	},
	"atom":       {"http://www.w3.org/2005/Atom"},
	"content":    {"http://purl.org/rss/1.0/modules/content/"},
	"googleplay": {"http://www.google.com/schemas/play-podcasts/1.0"},
	"podcast": {
		"https://podcastindex.org/namespace/1.0",
		"https://github.com/Podcastindex-org/podcast-namespace/blob/main/docs/1.0.md",
	},
	"media": {"http://search.yahoo.com/mrss/"},
	"dc":    {"http://purl.org/dc/elements/1.1/"},
	"rdf":   {"http://www.w3.org/1999/02/22-rdf-syntax-ns#"},
	"xml":   {"http://www.w3.org/XML/1998/namespace"},
}

// defaultSpaces are the namespaces an unprefixed path step matches.
var defaultSpaces = map[string]bool{
	"":                                       true,
	"http://www.w3.org/2005/Atom":            true,
	"http://purl.org/rss/1.0/":               true,
	"http://backend.userland.com/rss2":       true,
	"http://my.netscape.com/rdf/simple/0.9/": true,
}

// matchSpace reports whether a resolved namespace satisfies a path prefix. Documents
// repaired after a syntax error lose their xmlns declarations, so the bare prefix is
// accepted as well.
func matchSpace(space, prefix string) bool {
	if prefix == "" {
		return defaultSpaces[space]
	}
	if strings.EqualFold(space, prefix) {
		return true
	}
	trimmed := strings.TrimSuffix(space, "/")
	for _, uri := range namespaces[prefix] {
		if strings.EqualFold(trimmed, strings.TrimSuffix(uri, "/")) {
			return true
		}
	}
	return false
}

func matchElement(n xml.Name, prefix, local string) bool {
	if local != "*" && n.Local != local {
		return false
	}
	return matchSpace(n.Space, prefix)
}

func matchAttr(n xml.Name, prefix, local string) bool {
	if n.Local != local {
		return false
	}
	if prefix == "" {
		return n.Space == ""
	}
	return matchSpace(n.Space, prefix)
}
