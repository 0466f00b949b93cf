package extractor

import (
	"net/url"
	"path"
	"strings"
)

// Kind is the media category a resource URL is sorted into.
type Kind int

const (
	KindUnknown Kind = iota
	KindVideo
	KindImage
	KindAudio
	KindDocument
	KindFolder
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindImage:
		return "image"
	case KindAudio:
		return "audio"
	case KindDocument:
		return "document"
	case KindFolder:
		return "folder"
	default:
		return "unknown"
	}
}

func extSet(exts ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		m[e] = struct{}{}
	}
	return m
}

var (
	videoExts    = extSet("mp4", "webm", "ogg", "mov", "m3u8")
	imageExts    = extSet("jpg", "jpeg", "png", "gif", "webp", "bmp", "svg", "avif")
	audioExts    = extSet("mp3", "wav", "m4a", "aac", "flac", "ogg")
	documentExts = extSet("pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx", "zip", "rar", "7z", "txt", "csv", "json")

	// playableExts is the narrower set the video-only profile accepts from
	// structured data and text.
	playableExts = extSet("mp4", "webm", "ogg", "mov")
)

// Extension returns the lower-cased file extension of the URL path, without
// the dot. Query and fragment are ignored.
func Extension(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	ext := path.Ext(p)
	if ext == "" {
		return ""
	}
	return strings.ToLower(ext[1:])
}

// Classify sorts a URL by its path extension. When an extension belongs to
// several sets the precedence is document, video, image, audio.
func Classify(rawURL string) Kind {
	ext := Extension(rawURL)
	if ext == "" {
		return KindUnknown
	}
	if _, ok := documentExts[ext]; ok {
		return KindDocument
	}
	if _, ok := videoExts[ext]; ok {
		return KindVideo
	}
	if _, ok := imageExts[ext]; ok {
		return KindImage
	}
	if _, ok := audioExts[ext]; ok {
		return KindAudio
	}
	return KindUnknown
}

// ClassifyLink classifies a hyperlink target found on the page at base.
// A target on the same host as base whose URL ends in "/" is a folder;
// everything else is classified by extension.
func ClassifyLink(rawURL, base string) Kind {
	if strings.HasSuffix(rawURL, "/") && sameHost(rawURL, base) {
		return KindFolder
	}
	return Classify(rawURL)
}

// IsPlayable reports whether the URL names a directly playable video file.
func IsPlayable(rawURL string) bool {
	_, ok := playableExts[Extension(rawURL)]
	return ok
}

func sameHost(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return ua.Host != "" && strings.EqualFold(ua.Host, ub.Host)
}
