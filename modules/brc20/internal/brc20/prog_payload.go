package brc20

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/entity"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
)

type ProgOperation string

const (
	ProgOperationDeploy ProgOperation = "deploy"
	ProgOperationCall   ProgOperation = "call"
)

func (o ProgOperation) IsValid() bool {
	switch o {
	case ProgOperationDeploy, ProgOperationCall:
		return true
	}
	return false
}

func (o ProgOperation) String() string {
	return string(o)
}

type rawProgPayload struct {
	P  string `json:"p"`  // required
	Op string `json:"op"` // required
	D  string `json:"d"`  // required, hex-encoded bytecode or calldata
	I  string `json:"i"`  // required for call: target inscription id
}

// ProgPayload is a parsed contract deploy or call inscription.
type ProgPayload struct {
	Transfer *entity.InscriptionTransfer
	Op       ProgOperation
	Data     []byte

	// for call operations
	TargetId ordinals.InscriptionId
}

var (
	ErrInvalidProgProtocol  = errors.New("invalid protocol: must be 'brc20-prog'")
	ErrInvalidProgOperation = errors.New("invalid operation for brc20-prog: must be one of 'deploy' or 'call'")
	ErrEmptyProgData        = errors.New("empty data field")
	ErrInvalidProgData      = errors.New("data field is not valid hex")
	ErrInvalidProgTarget    = errors.New("invalid target inscription id")
)

// ParseProgPayload parses a brc20-prog inscription payload. The data field is
// hex-encoded with an optional 0x prefix.
func ParseProgPayload(transfer *entity.InscriptionTransfer) (*ProgPayload, error) {
	var p rawProgPayload
	if err := json.Unmarshal(transfer.Content, &p); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal payload as json")
	}

	if p.P != "brc20-prog" {
		return nil, errors.WithStack(ErrInvalidProgProtocol)
	}
	if !ProgOperation(p.Op).IsValid() {
		return nil, errors.WithStack(ErrInvalidProgOperation)
	}
	if p.D == "" {
		return nil, errors.WithStack(ErrEmptyProgData)
	}
	data, err := hex.DecodeString(strings.TrimPrefix(p.D, "0x"))
	if err != nil {
		return nil, errors.WithStack(ErrInvalidProgData)
	}

	parsed := ProgPayload{
		Transfer: transfer,
		Op:       ProgOperation(p.Op),
		Data:     data,
	}

	if parsed.Op == ProgOperationCall {
		targetId, err := ordinals.NewInscriptionIdFromString(p.I)
		if err != nil {
			return nil, errors.WithStack(ErrInvalidProgTarget)
		}
		parsed.TargetId = targetId
	}
	return &parsed, nil
}
