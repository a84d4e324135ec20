package ordinals

import "time"

type Inscription struct {
	Content         []byte
	ContentEncoding string
	ContentType     string
	Delegate        *InscriptionId
	Metadata        []byte
	Metaprotocol    string
	Parents         []InscriptionId
	Pointer         *uint64
}

// InscriptionEntry is the frozen identity record of an inscription. Number and
// SequenceNumber are assigned once at creation and never recomputed.
type InscriptionEntry struct {
	Id              InscriptionId
	Number          int64
	SequenceNumber  uint64
	Cursed          bool
	CursedForBRC20  bool
	Charms          Charm
	CreatedAt       time.Time
	CreatedAtHeight uint64
	Inscription     Inscription
	TransferCount   uint32
}
