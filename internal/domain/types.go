package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// FID is the numeric Farcaster user identifier used as the ledger's user id
type FID int64

// Valid reports whether the FID is a positive integer
func (f FID) Valid() bool {
	return f > 0
}

// String returns the decimal representation of the FID
func (f FID) String() string {
	return strconv.FormatInt(int64(f), 10)
}

// ParseFID parses a decimal FID, rejecting zero and negative values
func ParseFID(s string) (FID, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, ErrInvalidUser
	}
	fid := FID(v)
	if !fid.Valid() {
		return 0, ErrInvalidUser
	}
	return fid, nil
}

// NFT is the token record handed to the ledger by the player and indexer collaborators
type NFT struct {
	ContractAddress string `json:"contractAddress"`
	TokenID         string `json:"tokenId"`
	Network         string `json:"network"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	CollectionName  string `json:"collectionName"`
	// MediaURL is the primary media URL (audio or animation)
	MediaURL string `json:"mediaUrl"`
	// ImageURL is the cover image URL
	ImageURL string `json:"imageUrl"`
	// AnimationURL is the secondary animation URL
	AnimationURL string `json:"animationUrl"`
}

// MediaKey derives the canonical content identity for the NFT
func (n NFT) MediaKey() MediaKey {
	return DeriveMediaKey(n)
}

// Snapshot copies the display fields of the NFT
func (n NFT) Snapshot() NFTSnapshot {
	return NFTSnapshot{
		Name:            n.Name,
		Description:     n.Description,
		Image:           n.ImageURL,
		MediaURL:        n.MediaURL,
		AnimationURL:    n.AnimationURL,
		CollectionName:  n.CollectionName,
		Network:         n.Network,
		ContractAddress: NormalizeAddress(n.ContractAddress),
		TokenID:         n.TokenID,
	}
}

// NFTSnapshot holds denormalized display fields copied at write time
type NFTSnapshot struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Image           string `json:"image,omitempty"`
	MediaURL        string `json:"mediaUrl,omitempty"`
	AnimationURL    string `json:"animationUrl,omitempty"`
	CollectionName  string `json:"collectionName,omitempty"`
	Network         string `json:"network,omitempty"`
	ContractAddress string `json:"contractAddress,omitempty"`
	TokenID         string `json:"tokenId,omitempty"`
}

// NFT rebuilds an NFT from the snapshot so the MediaKey can be re-derived
func (s NFTSnapshot) NFT() NFT {
	return NFT{
		ContractAddress: s.ContractAddress,
		TokenID:         s.TokenID,
		Network:         s.Network,
		Name:            s.Name,
		Description:     s.Description,
		CollectionName:  s.CollectionName,
		MediaURL:        s.MediaURL,
		ImageURL:        s.Image,
		AnimationURL:    s.AnimationURL,
	}
}

// LikeRecord exists iff the user currently likes the content
type LikeRecord struct {
	FID      FID         `json:"fid"`
	MediaKey MediaKey    `json:"mediaKey"`
	NFT      NFTSnapshot `json:"nft"`
	// LikedAt is in unix milliseconds
	LikedAt int64 `json:"likedAt"`
}

// GlobalLikeAggregate counts the users currently liking a MediaKey
type GlobalLikeAggregate struct {
	MediaKey  MediaKey    `json:"mediaKey"`
	LikeCount int64       `json:"likeCount"`
	NFT       NFTSnapshot `json:"nft"`
	UpdatedAt int64       `json:"updatedAt"`
}

// PlayEvent is one counted play, kept for recency ordering
type PlayEvent struct {
	ID       string      `json:"id"`
	FID      FID         `json:"fid"`
	MediaKey MediaKey    `json:"mediaKey"`
	NFT      NFTSnapshot `json:"nft"`
	PlayedAt int64       `json:"playedAt"`
}

// GlobalPlayAggregate holds the monotonically non-decreasing play count of a MediaKey
type GlobalPlayAggregate struct {
	MediaKey     MediaKey    `json:"mediaKey"`
	PlayCount    int64       `json:"playCount"`
	NFT          NFTSnapshot `json:"nft"`
	LastPlayedAt int64       `json:"lastPlayedAt"`
}

// TopPlayedEntry is one row of the materialized top-played ranking
type TopPlayedEntry struct {
	MediaKey  MediaKey    `json:"mediaKey"`
	Rank      int         `json:"rank"`
	PlayCount int64       `json:"playCount"`
	NFT       NFTSnapshot `json:"nft"`
	UpdatedAt int64       `json:"updatedAt"`
}

// UnixMilli converts a time to the millisecond timestamps stored in documents
func UnixMilli(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// NormalizeAddress normalizes a contract address to the format used by its blockchain
func NormalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if common.IsHexAddress(address) {
		return common.HexToAddress(address).String()
	}
	return address
}

// IsContractAddress checks if the address is an Ethereum or Tezos contract address
func IsContractAddress(address string) bool {
	if common.IsHexAddress(address) {
		return common.HexToAddress(address) != common.HexToAddress(ETHEREUM_ZERO_ADDRESS)
	}
	return strings.HasPrefix(address, "KT1")
}
