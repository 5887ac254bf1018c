// ABOUTME: Ordered fallback path lists per logical field for RSS and Atom dialects
// ABOUTME: One table serves both dialects; the first path with a usable value wins

package parse

// feedPaths are evaluated against the channel (RSS) or feed (Atom) element.
var feedPaths = map[string][]string{
	"title": {"title", "itunes:title"},
	"description": {
		"itunes:summary",
		"description",
		"subtitle",
		"itunes:subtitle",
		"content:encoded",
		"summary",
		"tagline",
	},
	"link": {
		"link[@rel='alternate']/@href",
		"link",
		"link/@href",
	},
	"language": {"language", "dc:language", "@xml:lang"},
	"cover": {
		"itunes:image/@href",
		"image/url",
		"googleplay:image/@href",
		"media:thumbnail/@url",
		"logo",
		"icon",
	},
	"owner": {
		"itunes:author",
		"itunes:owner/itunes:name",
		"author/name",
		"googleplay:author",
		"dc:creator",
		"managingEditor",
		"author",
	},
	"owner_email": {
		"itunes:owner/itunes:email",
		"author/email",
		"googleplay:owner",
		"managingEditor",
		"webMaster",
	},
	"categories": {
		"itunes:category/@text",
		"itunes:category/itunes:category/@text",
		"googleplay:category/@text",
		"category/@term",
		"category",
		"media:category",
	},
	"keywords": {"itunes:keywords", "media:keywords"},
	"funding":  {"podcast:funding/@url"},
	"explicit": {"itunes:explicit", "googleplay:explicit", "media:rating"},
}

// itemPaths are evaluated against each item (RSS) or entry (Atom) element.
var itemPaths = map[string][]string{
	"guid":  {"guid", "id", "enclosure/@url", "link", "link/@href"},
	"title": {"title", "itunes:title", "media:title"},
	"description": {
		"content:encoded",
		"itunes:summary",
		"description",
		"content",
		"summary",
		"itunes:subtitle",
		"media:description",
	},
	"link": {
		"link[@rel='alternate']/@href",
		"link",
		"link/@href",
	},
	"media_url": {
		"enclosure/@url",
		"media:content/@url",
		"media:group/media:content/@url",
		"link[@rel='enclosure']/@href",
	},
	"media_type": {
		"enclosure/@type",
		"media:content/@type",
		"media:group/media:content/@type",
		"link[@rel='enclosure']/@type",
	},
	"length": {
		"enclosure/@length",
		"media:content/@fileSize",
		"link[@rel='enclosure']/@length",
	},
	"pub_date": {
		"pubDate",
		"published",
		"dc:date",
		"issued",
		"updated",
		"modified",
	},
	"duration":     {"itunes:duration", "media:content/@duration"},
	"explicit":     {"itunes:explicit", "media:rating"},
	"episode_type": {"itunes:episodeType"},
	"season":       {"itunes:season", "podcast:season"},
	"number":       {"itunes:episode", "podcast:episode"},
	"cover": {
		"itunes:image/@href",
		"media:thumbnail/@url",
		"googleplay:image/@href",
	},
	"keywords": {"itunes:keywords", "media:keywords"},
}
