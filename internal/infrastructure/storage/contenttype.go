package storage

import (
	"path"
	"strings"
)

// HLS objects get explicit content types so playback works without relying on
// bucket-level defaults.
func ContentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".m3u8":
		return "application/x-mpegURL"
	case ".ts":
		return "video/MP2T"
	case ".mp4":
		return "video/mp4"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

// Segments are immutable once written and cache forever; playlists are
// rewritten on refresh and must not be cached.
func CacheControlForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".ts":
		return "public, max-age=31536000, immutable"
	case ".m3u8":
		return "no-cache"
	default:
		return ""
	}
}
