package tree

import (
	"path/filepath"
	"slices"
	"strings"
)

// ContentKind distinguishes what a node displays.
type ContentKind int

const (
	// KindEmpty is a node with neither text nor image.
	KindEmpty ContentKind = iota
	// KindText is a text-only node.
	KindText
	// KindImage is an image-only node.
	KindImage
	// KindBoth is a node showing an image with text stacked below it.
	KindBoth
)

// String returns the lowercase name of the kind.
func (k ContentKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	case KindBoth:
		return "both"
	default:
		return "empty"
	}
}

// LinkKind classifies the target of a node link.
type LinkKind int

const (
	LinkNone LinkKind = iota
	LinkURL
	LinkFile
	LinkDirectory
	LinkMedia
)

// String returns the lowercase name of the link kind.
func (k LinkKind) String() string {
	switch k {
	case LinkURL:
		return "url"
	case LinkFile:
		return "file"
	case LinkDirectory:
		return "directory"
	case LinkMedia:
		return "media"
	default:
		return "none"
	}
}

// mediaExtensions lists file extensions treated as audio or video.
var mediaExtensions = []string{
	".mp3", ".wav", ".flac", ".ogg", ".m4a", ".aac",
	".mp4", ".mkv", ".avi", ".mov", ".webm", ".wmv",
}

// Image is an embedded image payload with its intrinsic pixel size.
// Data is treated as immutable once attached to a node; clones share it.
type Image struct {
	Data   []byte
	Format string // decoder name: "png", "jpeg", "gif", "bmp", "webp"
	Width  int
	Height int
}

// Content is what a node displays: optional text, optional image, optional link.
type Content struct {
	Text  string
	Image *Image
	Link  string
}

// TextContent returns text-only content.
func TextContent(text string) Content { return Content{Text: text} }

// ImageContent returns image-only content.
func ImageContent(img *Image) Content { return Content{Image: img} }

// Kind reports which variant the content is.
func (c Content) Kind() ContentKind {
	hasText := c.Text != ""
	hasImage := c.Image != nil
	switch {
	case hasText && hasImage:
		return KindBoth
	case hasImage:
		return KindImage
	case hasText:
		return KindText
	default:
		return KindEmpty
	}
}

// LinkKind classifies Link. A trailing slash marks a directory; without access
// to the file system that is the only directory signal.
func (c Content) LinkKind() LinkKind {
	link := strings.TrimSpace(c.Link)
	if link == "" {
		return LinkNone
	}
	lower := strings.ToLower(link)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return LinkURL
	}
	if strings.HasSuffix(link, "/") || strings.HasSuffix(link, "\\") {
		return LinkDirectory
	}
	if slices.Contains(mediaExtensions, strings.ToLower(filepath.Ext(link))) {
		return LinkMedia
	}
	return LinkFile
}

// Clone returns a copy whose Image header can be replaced independently.
func (c Content) Clone() Content {
	if c.Image != nil {
		img := *c.Image
		c.Image = &img
	}
	return c
}

// Equal reports whether two contents carry the same text, link and image bytes.
func (c Content) Equal(o Content) bool {
	if c.Text != o.Text || c.Link != o.Link {
		return false
	}
	if (c.Image == nil) != (o.Image == nil) {
		return false
	}
	if c.Image == nil {
		return true
	}
	return c.Image.Format == o.Image.Format &&
		c.Image.Width == o.Image.Width &&
		c.Image.Height == o.Image.Height &&
		slices.Equal(c.Image.Data, o.Image.Data)
}
