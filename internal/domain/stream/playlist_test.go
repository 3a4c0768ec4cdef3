package stream

import (
	"strings"
	"testing"
)

const sampleTemplate = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXT-X-MEDIA-SEQUENCE:0
#EXT-X-PLAYLIST-TYPE:VOD
#EXTINF:10.000000,
segment_000.ts
#EXTINF:10.000000,
segment_001.ts
#EXTINF:4.500000,
segment_002.ts
#EXT-X-ENDLIST
`

func TestSubstituteSegments(t *testing.T) {
	signed := map[string]string{
		"segment_000.ts": "https://cdn.test/a/segment_000.ts?sig=1",
		"segment_001.ts": "https://cdn.test/a/segment_001.ts?sig=2",
		"segment_002.ts": "https://cdn.test/a/segment_002.ts?sig=3",
	}

	text, replaced := substituteSegments(sampleTemplate, signed)
	if replaced != 3 {
		t.Fatalf("replaced = %d, want 3", replaced)
	}

	for name, url := range signed {
		if strings.Contains(text, "\n"+name+"\n") {
			t.Errorf("bare segment name %q still present after rewrite", name)
		}
		if !strings.Contains(text, url) {
			t.Errorf("signed url %q missing from rewritten playlist", url)
		}
	}

	// Directives and structure survive untouched.
	for _, directive := range []string{
		"#EXTM3U",
		"#EXT-X-VERSION:3",
		"#EXT-X-TARGETDURATION:10",
		"#EXT-X-PLAYLIST-TYPE:VOD",
		"#EXTINF:10.000000,",
		"#EXT-X-ENDLIST",
	} {
		if !strings.Contains(text, directive) {
			t.Errorf("directive %q missing from rewritten playlist", directive)
		}
	}
}

func TestSubstituteSegments_SecondPassIsNoop(t *testing.T) {
	signed := map[string]string{
		"segment_000.ts": "https://cdn.test/a/segment_000.ts?sig=1",
		"segment_001.ts": "https://cdn.test/a/segment_001.ts?sig=2",
		"segment_002.ts": "https://cdn.test/a/segment_002.ts?sig=3",
	}

	first, replaced := substituteSegments(sampleTemplate, signed)
	if replaced != 3 {
		t.Fatalf("first pass replaced = %d, want 3", replaced)
	}

	// Signed URLs never match bare filenames, so rewriting an already
	// rewritten playlist changes nothing.
	second, replaced := substituteSegments(first, signed)
	if replaced != 0 {
		t.Errorf("second pass replaced = %d, want 0", replaced)
	}
	if second != first {
		t.Errorf("second pass altered the playlist text")
	}
}

func TestSubstituteSegments_PartialMap(t *testing.T) {
	signed := map[string]string{
		"segment_001.ts": "https://cdn.test/a/segment_001.ts?sig=2",
	}

	text, replaced := substituteSegments(sampleTemplate, signed)
	if replaced != 1 {
		t.Fatalf("replaced = %d, want 1", replaced)
	}
	if !strings.Contains(text, "\nsegment_000.ts\n") {
		t.Errorf("unmatched segment line should pass through unchanged")
	}
}

func TestSubstituteSegments_NoMatches(t *testing.T) {
	signed := map[string]string{
		"other_000.ts": "https://cdn.test/b/other_000.ts?sig=9",
	}

	text, replaced := substituteSegments(sampleTemplate, signed)
	if replaced != 0 {
		t.Fatalf("replaced = %d, want 0", replaced)
	}
	if text != sampleTemplate {
		t.Errorf("playlist text changed despite zero matches")
	}
}
