package bankid

import (
	"fmt"

	bankidcommand "github.com/goliatone/go-bankid/command"
	bankidquery "github.com/goliatone/go-bankid/query"
)

// CommandQueryService is the engine surface the facade handlers drive.
type CommandQueryService interface {
	bankidcommand.LifecycleService
	bankidquery.TransactionReader
}

type Commands struct {
	InitAuth *bankidcommand.InitAuthCommand
	InitSign *bankidcommand.InitSignCommand
	Check    *bankidcommand.CheckCommand
	Cancel   *bankidcommand.CancelCommand
}

type Queries struct {
	LookupTransaction *bankidquery.LookupTransactionQuery
	CurrentQRCode     *bankidquery.CurrentQRCodeQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("bankid: command/query service is required")
	}
	return &Facade{
		service: service,
		commands: Commands{
			InitAuth: bankidcommand.NewInitAuthCommand(service),
			InitSign: bankidcommand.NewInitSignCommand(service),
			Check:    bankidcommand.NewCheckCommand(service),
			Cancel:   bankidcommand.NewCancelCommand(service),
		},
		queries: Queries{
			LookupTransaction: bankidquery.NewLookupTransactionQuery(service),
			CurrentQRCode:     bankidquery.NewCurrentQRCodeQuery(service),
		},
	}, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
