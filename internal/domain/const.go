package domain

const (
	// PLAY_COUNT_THRESHOLD is the fraction of the duration a session must reach before a play is counted
	PLAY_COUNT_THRESHOLD = 0.25

	// TOP_PLAYED_SIZE bounds the materialized top-played set
	TOP_PLAYED_SIZE = 3

	// MEDIA_KEY_DELIMITER joins the sorted content URLs of a MediaKey
	MEDIA_KEY_DELIMITER = "|"

	// Blockchain constants
	ETHEREUM_ZERO_ADDRESS = "0x0000000000000000000000000000000000000000"
)
