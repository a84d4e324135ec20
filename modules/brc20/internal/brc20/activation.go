package brc20

import "github.com/subfrost/brc20shrew/common"

var selfMintActivationHeights = map[common.Network]uint64{
	common.NetworkMainnet: 837090,
	common.NetworkTestnet: 837090,
}

func IsSelfMintActivated(height uint64, network common.Network) bool {
	activationHeight, ok := selfMintActivationHeights[network]
	if !ok {
		return false
	}
	return height >= activationHeight
}
