package app

import (
	"github.com/coschain/hivebridge/hivesigner"
	"github.com/coschain/hivebridge/prototype"
)

// GetHiveSignerVoteUrl is the hosted signing link for users without a key
// extension. weight is a percent; the link carries basis points.
func GetHiveSignerVoteUrl(signerURL, voter, author, permlink string, weight float64) string {
	return hivesigner.VoteURL(signerURL, voter, author, permlink, prototype.PercentToBasisPoints(weight))
}
