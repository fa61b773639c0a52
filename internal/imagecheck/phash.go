package imagecheck

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strconv"
	"strings"

	"github.com/corona10/goimagehash"
	"github.com/rotisserie/eris"
)

// HashImage decodes raw image bytes and computes a 64-bit perceptual hash.
// goimagehash normalizes the image to a fixed grayscale square before the
// DCT, so aspect ratio and color variance don't affect the result.
func HashImage(data []byte) (*goimagehash.ImageHash, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrap(err, "imagecheck: decode image")
	}

	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return nil, eris.Wrap(err, "imagecheck: perceptual hash")
	}
	return hash, nil
}

// ParseHash converts a configured hash string into a comparable perceptual
// hash. Accepts bare hex ("81c3e7ff00183c7e") or the goimagehash string form
// ("p:81c3e7ff00183c7e").
func ParseHash(s string) (*goimagehash.ImageHash, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.ToLower(s), "p:"))
	if s == "" {
		return nil, eris.New("imagecheck: empty hash string")
	}

	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "imagecheck: parse hash %q", s)
	}
	return goimagehash.NewImageHash(v, goimagehash.PHash), nil
}

// ParseHashes parses a configured list of known-generic hashes, skipping
// nothing: a malformed entry fails the whole load so a typo in config can't
// silently disable detection.
func ParseHashes(entries []string) ([]*goimagehash.ImageHash, error) {
	hashes := make([]*goimagehash.ImageHash, 0, len(entries))
	for _, e := range entries {
		h, err := ParseHash(e)
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, nil
}

// FormatHash renders a hash as bare hex, the form stored in cover_checks.
func FormatHash(h *goimagehash.ImageHash) string {
	if h == nil {
		return ""
	}
	return strconv.FormatUint(h.GetHash(), 16)
}
