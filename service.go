// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package namevm

import (
	"net/http"

	"github.com/gorilla/rpc/v2"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/namevm/escrow"

	avajson "github.com/luxfi/namevm/utils/json"
)

const serviceName = "namevm"

// NewHandler returns the JSON-RPC 2.0 handler for the namevm service.
func (vm *VM) NewHandler(auth Authenticator) (http.Handler, error) {
	server := rpc.NewServer()
	server.RegisterCodec(avajson.NewCodec(), "application/json")
	server.RegisterCodec(avajson.NewCodec(), "application/json;charset=UTF-8")
	server.RegisterInterceptFunc(vm.metrics.InterceptRequest)
	server.RegisterAfterFunc(vm.metrics.AfterRequest)
	err := server.RegisterService(
		&Service{
			vm:   vm,
			auth: auth,
		},
		serviceName,
	)
	return server, err
}

// Service is the API service for namevm.
type Service struct {
	vm   *VM
	auth Authenticator
}

type TicketReply struct {
	Ticket avajson.Uint64 `json:"ticket"`
}

// IssueTicket gives the caller the next ticket.
func (s *Service) IssueTicket(r *http.Request, _ *struct{}, reply *TicketReply) error {
	caller, err := s.caller(r, "issueTicket")
	if err != nil {
		return err
	}
	ticketID, err := s.vm.IssueTicket(caller)
	reply.Ticket = avajson.Uint64(ticketID)
	return err
}

// DiscardAndIssue replaces the caller's ticket with a fresh one.
func (s *Service) DiscardAndIssue(r *http.Request, _ *struct{}, reply *TicketReply) error {
	caller, err := s.caller(r, "discardAndIssue")
	if err != nil {
		return err
	}
	ticketID, err := s.vm.DiscardAndIssue(caller)
	reply.Ticket = avajson.Uint64(ticketID)
	return err
}

func (s *Service) CurrentTicket(r *http.Request, _ *struct{}, reply *TicketReply) error {
	caller, err := s.caller(r, "currentTicket")
	if err != nil {
		return err
	}
	ticketID, err := s.vm.CurrentTicket(caller)
	reply.Ticket = avajson.Uint64(ticketID)
	return err
}

type RegisterNameArgs struct {
	Name  string         `json:"name"`
	Value avajson.Uint64 `json:"value"`
}

type RegisterNameReply struct {
	Balance avajson.Uint64 `json:"balance"`
	Fee     avajson.Uint64 `json:"fee"`
	Ticket  avajson.Uint64 `json:"ticket"`
}

// RegisterName registers a name for the caller with the attached value.
func (s *Service) RegisterName(r *http.Request, args *RegisterNameArgs, reply *RegisterNameReply) error {
	caller, err := s.caller(r, "registerName")
	if err != nil {
		return err
	}
	receipt, err := s.vm.RegisterName(caller, args.Name, uint64(args.Value))
	if err != nil {
		return err
	}
	reply.Balance = avajson.Uint64(receipt.Entry.Balance)
	reply.Fee = avajson.Uint64(receipt.Fee)
	reply.Ticket = avajson.Uint64(receipt.Ticket)
	return nil
}

type NameArgs struct {
	Name string `json:"name"`
}

type BalanceReply struct {
	Balance avajson.Uint64 `json:"balance"`
}

func (s *Service) GetRegistrationState(r *http.Request, args *NameArgs, reply *BalanceReply) error {
	caller, err := s.caller(r, "getRegistrationState")
	if err != nil {
		return err
	}
	balance, err := s.vm.GetRegistrationState(caller, args.Name)
	reply.Balance = avajson.Uint64(balance)
	return err
}

type Registration struct {
	Name          string         `json:"name"`
	Balance       avajson.Uint64 `json:"balance"`
	Registrations avajson.Uint64 `json:"registrations"`
	LastTicket    avajson.Uint64 `json:"lastTicket"`
}

func newRegistration(entry *escrow.Entry) Registration {
	return Registration{
		Name:          entry.Name,
		Balance:       avajson.Uint64(entry.Balance),
		Registrations: avajson.Uint64(entry.Registrations),
		LastTicket:    avajson.Uint64(entry.LastTicket),
	}
}

func (s *Service) GetRegistration(r *http.Request, args *NameArgs, reply *Registration) error {
	caller, err := s.caller(r, "getRegistration")
	if err != nil {
		return err
	}
	entry, err := s.vm.GetRegistration(caller, args.Name)
	if err != nil {
		return err
	}
	*reply = newRegistration(entry)
	return nil
}

type ListRegistrationsReply struct {
	Registrations []Registration `json:"registrations"`
}

func (s *Service) ListRegistrations(r *http.Request, _ *struct{}, reply *ListRegistrationsReply) error {
	caller, err := s.caller(r, "listRegistrations")
	if err != nil {
		return err
	}
	entries, err := s.vm.ListRegistrations(caller)
	if err != nil {
		return err
	}
	reply.Registrations = make([]Registration, len(entries))
	for i := range entries {
		reply.Registrations[i] = newRegistration(&entries[i])
	}
	return nil
}

func (s *Service) GetUnlockedBalance(r *http.Request, _ *struct{}, reply *BalanceReply) error {
	caller, err := s.caller(r, "getUnlockedBalance")
	if err != nil {
		return err
	}
	unlocked, err := s.vm.GetUnlockedBalance(caller)
	reply.Balance = avajson.Uint64(unlocked)
	return err
}

type AmountReply struct {
	Amount avajson.Uint64 `json:"amount"`
}

func (s *Service) Withdraw(r *http.Request, args *NameArgs, reply *AmountReply) error {
	caller, err := s.caller(r, "withdraw")
	if err != nil {
		return err
	}
	amount, err := s.vm.Withdraw(caller, args.Name)
	reply.Amount = avajson.Uint64(amount)
	return err
}

func (s *Service) GetTotalFeeBalance(r *http.Request, _ *struct{}, reply *BalanceReply) error {
	if _, err := s.caller(r, "getTotalFeeBalance"); err != nil {
		return err
	}
	total, err := s.vm.GetTotalFeeBalance()
	reply.Balance = avajson.Uint64(total)
	return err
}

func (s *Service) WithdrawFee(r *http.Request, _ *struct{}, reply *AmountReply) error {
	caller, err := s.caller(r, "withdrawFee")
	if err != nil {
		return err
	}
	amount, err := s.vm.WithdrawFee(caller)
	reply.Amount = avajson.Uint64(amount)
	return err
}

type QuoteFeeReply struct {
	Fee avajson.Uint64 `json:"fee"`
}

// QuoteFee does not require an authenticated caller.
func (s *Service) QuoteFee(_ *http.Request, args *NameArgs, reply *QuoteFeeReply) error {
	s.logCall("quoteFee")
	nameFee, err := s.vm.QuoteFee(args.Name)
	reply.Fee = avajson.Uint64(nameFee)
	return err
}

type GetOwnerReply struct {
	Owner ids.ShortID `json:"owner"`
}

func (s *Service) GetOwner(_ *http.Request, _ *struct{}, reply *GetOwnerReply) error {
	s.logCall("getOwner")
	reply.Owner = s.vm.Owner
	return nil
}

func (s *Service) caller(r *http.Request, method string) (ids.ShortID, error) {
	caller, err := s.auth.Authenticate(r)
	if err != nil {
		s.vm.log.Debug("rejected unauthenticated call",
			log.String("service", serviceName),
			log.String("method", method),
			log.Err(err),
		)
		return ids.ShortEmpty, err
	}
	s.logCall(method, log.Stringer("caller", caller))
	return caller, nil
}

func (s *Service) logCall(method string, fields ...interface{}) {
	s.vm.log.Debug("API called", append([]interface{}{
		log.String("service", serviceName),
		log.String("method", method),
	}, fields...)...)
}
