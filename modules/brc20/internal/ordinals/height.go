package ordinals

import "github.com/subfrost/brc20shrew/common"

// GetJubileeHeight returns the block height at which would-be-cursed
// inscriptions become blessed. Blocks at or beyond this height bless them.
func GetJubileeHeight(network common.Network) uint64 {
	switch network {
	case common.NetworkMainnet:
		return 824544
	case common.NetworkTestnet:
		return 2544192
	}
	panic("unsupported network")
}
