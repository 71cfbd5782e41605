package migrator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/feral-file/ff-media-ledger/internal/domain"
)

// ErrMissingMediaKey marks legacy records whose content cannot be identified.
// They are left where they are rather than discarded.
var ErrMissingMediaKey = errors.New("legacy record has no media url")

// LegacySchema is the closed set of shapes a like has been stored in
type LegacySchema interface {
	legacySchema()
}

// V1Entry is one element of the array embedded on the user profile
type V1Entry struct {
	ContractAddress string `json:"contractAddress"`
	TokenID         string `json:"tokenId"`
	Network         string `json:"network"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	CollectionName  string `json:"collectionName"`
	MediaURL        string `json:"mediaUrl"`
	ImageURL        string `json:"imageUrl"`
	AnimationURL    string `json:"animationUrl"`
	// LikedAt is in unix milliseconds; the oldest entries have none
	LikedAt int64 `json:"likedAt"`
}

// NFT returns the token described by the entry
func (e V1Entry) NFT() domain.NFT {
	return domain.NFT{
		ContractAddress: e.ContractAddress,
		TokenID:         e.TokenID,
		Network:         e.Network,
		Name:            e.Name,
		Description:     e.Description,
		CollectionName:  e.CollectionName,
		MediaURL:        e.MediaURL,
		ImageURL:        e.ImageURL,
		AnimationURL:    e.AnimationURL,
	}
}

// V1Embedded is a like kept in the likedNfts array of users/{fid}
type V1Embedded struct {
	FID   domain.FID
	Entry V1Entry
}

// V2FlatGlobal is a like kept in user_likes/{fid}-{contract}-{tokenId}
type V2FlatGlobal struct {
	DocID  string
	UserID domain.FID
	NFT    domain.NFT
	// LikedAt is in unix milliseconds, 0 when unknown
	LikedAt int64
}

// Canonical is a like already stored as a LikeRecord under users/{fid}/likes
type Canonical struct {
	DocID  string
	Record domain.LikeRecord
}

func (V1Embedded) legacySchema()   {}
func (V2FlatGlobal) legacySchema() {}
func (Canonical) legacySchema()    {}

// V2Key is the parsed id of a flat legacy record
type V2Key struct {
	FID             domain.FID
	ContractAddress string
	TokenID         string
}

// ParseV2Key parses "{fid}-{contract}-{tokenId}".
// Ethereum contracts are normalized to checksum form and Tezos KT1 contracts are kept verbatim.
func ParseV2Key(docID string) (V2Key, error) {
	first := strings.Index(docID, "-")
	last := strings.LastIndex(docID, "-")
	if first <= 0 || last == first || last == len(docID)-1 {
		return V2Key{}, fmt.Errorf("%w: malformed key %q", domain.ErrPartialMigrationFailure, docID)
	}

	fid, err := domain.ParseFID(docID[:first])
	if err != nil {
		return V2Key{}, fmt.Errorf("%w: invalid fid in key %q", domain.ErrPartialMigrationFailure, docID)
	}

	contract := docID[first+1 : last]
	if !domain.IsContractAddress(contract) {
		return V2Key{}, fmt.Errorf("%w: invalid contract in key %q", domain.ErrPartialMigrationFailure, docID)
	}
	contract = domain.NormalizeAddress(contract)

	tokenID := docID[last+1:]
	for _, r := range tokenID {
		if r < '0' || r > '9' {
			return V2Key{}, fmt.Errorf("%w: invalid token id in key %q", domain.ErrPartialMigrationFailure, docID)
		}
	}

	return V2Key{FID: fid, ContractAddress: contract, TokenID: tokenID}, nil
}

// ConvertV1Embedded turns an embedded entry into a LikeRecord; now is used when the entry has no timestamp
func ConvertV1Embedded(v V1Embedded, now int64) (domain.LikeRecord, error) {
	if !v.FID.Valid() {
		return domain.LikeRecord{}, fmt.Errorf("%w: invalid fid %d", domain.ErrPartialMigrationFailure, v.FID)
	}

	nft := v.Entry.NFT()
	key := nft.MediaKey()
	if key.Empty() {
		return domain.LikeRecord{}, ErrMissingMediaKey
	}

	likedAt := v.Entry.LikedAt
	if likedAt <= 0 {
		likedAt = now
	}

	return domain.LikeRecord{
		FID:      v.FID,
		MediaKey: key,
		NFT:      nft.Snapshot(),
		LikedAt:  likedAt,
	}, nil
}

// ConvertV2FlatGlobal turns a flat record into a LikeRecord. The document id is authoritative
// for the owner and fills the contract and token id when the stored NFT lacks them.
func ConvertV2FlatGlobal(v V2FlatGlobal, now int64) (domain.LikeRecord, error) {
	parsed, err := ParseV2Key(v.DocID)
	if err != nil {
		return domain.LikeRecord{}, err
	}
	if v.UserID != 0 && v.UserID != parsed.FID {
		return domain.LikeRecord{}, fmt.Errorf("%w: userId %d does not match key %q",
			domain.ErrPartialMigrationFailure, v.UserID, v.DocID)
	}

	nft := v.NFT
	if nft.ContractAddress == "" {
		nft.ContractAddress = parsed.ContractAddress
	}
	if nft.TokenID == "" {
		nft.TokenID = parsed.TokenID
	}

	key := nft.MediaKey()
	if key.Empty() {
		return domain.LikeRecord{}, ErrMissingMediaKey
	}

	likedAt := v.LikedAt
	if likedAt <= 0 {
		likedAt = now
	}

	return domain.LikeRecord{
		FID:      parsed.FID,
		MediaKey: key,
		NFT:      nft.Snapshot(),
		LikedAt:  likedAt,
	}, nil
}

// ConvertCanonical validates a stored LikeRecord, re-deriving the MediaKey from its snapshot
// when the record predates the mediaKey field
func ConvertCanonical(v Canonical, now int64) (domain.LikeRecord, error) {
	record := v.Record
	if !record.FID.Valid() {
		return domain.LikeRecord{}, fmt.Errorf("%w: invalid fid %d", domain.ErrPartialMigrationFailure, record.FID)
	}

	if record.MediaKey.Empty() {
		record.MediaKey = record.NFT.NFT().MediaKey()
	}
	if record.MediaKey.Empty() {
		return domain.LikeRecord{}, ErrMissingMediaKey
	}
	if v.DocID != "" && v.DocID != record.MediaKey.DocumentID() {
		return domain.LikeRecord{}, fmt.Errorf("%w: record %s is not stored under its media key",
			domain.ErrPartialMigrationFailure, v.DocID)
	}

	if record.LikedAt <= 0 {
		record.LikedAt = now
	}
	return record, nil
}

// Convert dispatches to the conversion of the variant
func Convert(s LegacySchema, now int64) (domain.LikeRecord, error) {
	switch v := s.(type) {
	case V1Embedded:
		return ConvertV1Embedded(v, now)
	case V2FlatGlobal:
		return ConvertV2FlatGlobal(v, now)
	case Canonical:
		return ConvertCanonical(v, now)
	default:
		return domain.LikeRecord{}, fmt.Errorf("%w: unknown schema %T", domain.ErrPartialMigrationFailure, s)
	}
}
