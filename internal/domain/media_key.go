package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// MediaKey is the canonical content identity of an NFT, derived from its media URLs.
// Re-mints of the same media collapse to one MediaKey.
type MediaKey string

// String returns the string representation of the MediaKey
func (k MediaKey) String() string {
	return string(k)
}

// Empty reports whether the key is empty, meaning the content cannot be tracked
func (k MediaKey) Empty() bool {
	return k == ""
}

// DocumentID returns a path-safe identifier for the key
func (k MediaKey) DocumentID() string {
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:])
}

// URLs splits the key back into its sorted content URLs
func (k MediaKey) URLs() []string {
	if k.Empty() {
		return nil
	}
	return strings.Split(string(k), MEDIA_KEY_DELIMITER)
}

// DeriveMediaKey computes the MediaKey from the NFT's content-bearing URLs.
// The URL set is order independent; contract and token id never contribute.
// It returns an empty key when the NFT has no usable URL.
func DeriveMediaKey(nft NFT) MediaKey {
	return MediaKeyFromURLs(nft.MediaURL, nft.ImageURL, nft.AnimationURL)
}

// MediaKeyFromURLs builds a MediaKey from an arbitrary list of content URLs
func MediaKeyFromURLs(urls ...string) MediaKey {
	set := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		set[u] = struct{}{}
	}
	if len(set) == 0 {
		return ""
	}

	sorted := make([]string, 0, len(set))
	for u := range set {
		sorted = append(sorted, u)
	}
	sort.Strings(sorted)

	return MediaKey(strings.Join(sorted, MEDIA_KEY_DELIMITER))
}
