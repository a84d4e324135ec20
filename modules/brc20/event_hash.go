package brc20

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/entity"
)

const eventHashSeparator = "|"

func (p *Processor) appendEventHash(eventString string) {
	p.eventHashString += eventString + eventHashSeparator
}

func getEventDeployString(event *entity.EventDeploy) string {
	var sb strings.Builder
	sb.WriteString("deploy-inscribe;")
	sb.WriteString(event.InscriptionId.String() + ";")
	sb.WriteString(hex.EncodeToString(event.PkScript) + ";")
	sb.WriteString(event.Tick + ";")
	sb.WriteString(event.OriginalTick + ";")
	sb.WriteString(event.TotalSupply.StringFixed(int32(event.Decimals)) + ";")
	sb.WriteString(strconv.Itoa(int(event.Decimals)) + ";")
	sb.WriteString(event.LimitPerMint.StringFixed(int32(event.Decimals)) + ";")
	sb.WriteString(lo.Ternary(event.IsSelfMint, "True", "False"))
	return sb.String()
}

func getEventMintString(event *entity.EventMint, decimals uint16) string {
	var sb strings.Builder
	var parentId string
	if event.ParentId != nil {
		parentId = event.ParentId.String()
	}
	sb.WriteString("mint-inscribe;")
	sb.WriteString(event.InscriptionId.String() + ";")
	sb.WriteString(hex.EncodeToString(event.PkScript) + ";")
	sb.WriteString(event.Tick + ";")
	sb.WriteString(event.OriginalTick + ";")
	sb.WriteString(event.Amount.StringFixed(int32(decimals)) + ";")
	sb.WriteString(parentId)
	return sb.String()
}

func getEventInscribeTransferString(event *entity.EventInscribeTransfer, decimals uint16) string {
	var sb strings.Builder
	sb.WriteString("inscribe-transfer;")
	sb.WriteString(event.InscriptionId.String() + ";")
	sb.WriteString(hex.EncodeToString(event.PkScript) + ";")
	sb.WriteString(event.Tick + ";")
	sb.WriteString(event.OriginalTick + ";")
	sb.WriteString(event.Amount.StringFixed(int32(decimals)))
	return sb.String()
}

func getEventTransferTransferString(event *entity.EventTransferTransfer, decimals uint16) string {
	var sb strings.Builder
	sb.WriteString("transfer-transfer;")
	sb.WriteString(event.InscriptionId.String() + ";")
	sb.WriteString(hex.EncodeToString(event.FromPkScript) + ";")
	if event.SpentAsFee {
		sb.WriteString(";")
	} else {
		sb.WriteString(hex.EncodeToString(event.ToPkScript) + ";")
	}
	sb.WriteString(event.Tick + ";")
	sb.WriteString(event.OriginalTick + ";")
	sb.WriteString(event.Amount.StringFixed(int32(decimals)))
	return sb.String()
}

func getEventProgramDeployString(event *entity.EventProgramDeploy) string {
	var sb strings.Builder
	sb.WriteString("program-deploy;")
	sb.WriteString(event.InscriptionId.String() + ";")
	sb.WriteString(hex.EncodeToString(event.Sender[:]) + ";")
	sb.WriteString(hex.EncodeToString(event.ContractAddress[:]) + ";")
	sb.WriteString(lo.Ternary(event.Success, "True", "False") + ";")
	sb.WriteString(strconv.FormatUint(event.GasUsed, 10))
	return sb.String()
}

func getEventProgramCallString(event *entity.EventProgramCall) string {
	var sb strings.Builder
	sb.WriteString("program-call;")
	sb.WriteString(event.InscriptionId.String() + ";")
	sb.WriteString(hex.EncodeToString(event.Sender[:]) + ";")
	sb.WriteString(event.TargetId.String() + ";")
	sb.WriteString(hex.EncodeToString(event.ContractAddress[:]) + ";")
	sb.WriteString(lo.Ternary(event.Success, "True", "False") + ";")
	sb.WriteString(strconv.FormatUint(event.GasUsed, 10) + ";")
	sb.WriteString(hex.EncodeToString(event.ReturnData))
	return sb.String()
}
