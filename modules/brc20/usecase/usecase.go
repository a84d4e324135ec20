package usecase

import (
	"github.com/subfrost/brc20shrew/modules/brc20/internal/datagateway"
)

type Usecase struct {
	brc20Dg   datagateway.BRC20DataGateway
	programDg datagateway.ProgramReaderDataGateway
}

func New(brc20Dg datagateway.BRC20DataGateway, programDg datagateway.ProgramReaderDataGateway) *Usecase {
	return &Usecase{
		brc20Dg:   brc20Dg,
		programDg: programDg,
	}
}
