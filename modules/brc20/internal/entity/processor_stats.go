package entity

// ProcessorStats carries running counters that survive restarts. All fields
// are cumulative since genesis.
type ProcessorStats struct {
	BlockHeight             uint64
	CursedInscriptionCount  uint64
	BlessedInscriptionCount uint64
	LostSats                uint64
	EventDeployCount        uint64
	EventMintCount          uint64
	EventInscribeTransfer   uint64
	EventTransferTransfer   uint64
	EventProgramDeploy      uint64
	EventProgramCall        uint64
}
