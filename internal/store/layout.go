package store

import (
	"fmt"

	"github.com/feral-file/ff-media-ledger/internal/domain"
)

// Collection names of the document layout
const (
	CollectionUsers       = "users"
	CollectionLikes       = "likes"
	CollectionPlays       = "plays"
	CollectionGlobalLikes = "global_likes"
	CollectionGlobalPlays = "global_plays"
	CollectionTopPlayed   = "top_played"
	// CollectionLegacyUserLikes is the flat collection keyed by "{fid}-{contract}-{tokenId}"
	CollectionLegacyUserLikes = "user_likes"
)

// Field names shared by queries and documents
const (
	FieldMediaKey     = "mediaKey"
	FieldFID          = "fid"
	FieldNFT          = "nft"
	FieldLikedAt      = "likedAt"
	FieldLikeCount    = "likeCount"
	FieldUpdatedAt    = "updatedAt"
	FieldPlayCount    = "playCount"
	FieldPlayedAt     = "playedAt"
	FieldLastPlayedAt = "lastPlayedAt"
	FieldRank         = "rank"
	// FieldLegacyLikedNFTs is the embedded array on the user profile
	FieldLegacyLikedNFTs = "likedNfts"
	// FieldLegacyUserID is the owner field of flat legacy records
	FieldLegacyUserID = "userId"
)

// LikesGroup matches every user's likes collection
const LikesGroup = CollectionUsers + "/*/" + CollectionLikes

// UserProfilePath is the user profile document that may embed legacy likes
func UserProfilePath(fid domain.FID) string {
	return fmt.Sprintf("%s/%s", CollectionUsers, fid)
}

// LikesCollection is the collection of a user's LikeRecords
func LikesCollection(fid domain.FID) string {
	return fmt.Sprintf("%s/%s/%s", CollectionUsers, fid, CollectionLikes)
}

// LikePath is the LikeRecord of a user for a MediaKey
func LikePath(fid domain.FID, key domain.MediaKey) string {
	return LikesCollection(fid) + "/" + key.DocumentID()
}

// GlobalLikePath is the GlobalLikeAggregate of a MediaKey
func GlobalLikePath(key domain.MediaKey) string {
	return CollectionGlobalLikes + "/" + key.DocumentID()
}

// PlaysCollection is the collection of a user's PlayEvents
func PlaysCollection(fid domain.FID) string {
	return fmt.Sprintf("%s/%s/%s", CollectionUsers, fid, CollectionPlays)
}

// PlayEventPath is one PlayEvent of a user
func PlayEventPath(fid domain.FID, id string) string {
	return PlaysCollection(fid) + "/" + id
}

// GlobalPlayPath is the GlobalPlayAggregate of a MediaKey
func GlobalPlayPath(key domain.MediaKey) string {
	return CollectionGlobalPlays + "/" + key.DocumentID()
}

// TopPlayedPath is the TopPlayedEntry of a MediaKey
func TopPlayedPath(key domain.MediaKey) string {
	return CollectionTopPlayed + "/" + key.DocumentID()
}

// LegacyUserLikePath is a flat legacy like record
func LegacyUserLikePath(docID string) string {
	return CollectionLegacyUserLikes + "/" + docID
}
