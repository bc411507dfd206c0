package rpc

import (
	"encoding/base64"
	"encoding/json"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/rippl-labs/rippl-server/pkg/rippl/data/campaign"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/donation"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/event"
	"github.com/rippl-labs/rippl-server/pkg/rippl/data/user"
	"github.com/rippl-labs/rippl-server/pkg/rippl/program"
	"github.com/rippl-labs/rippl-server/pkg/solana"
)

const jsonRpcVersion = "2.0"

// Error codes. The negative values follow JSON-RPC 2.0 and the Solana RPC,
// which existing clients already understand.
const (
	ParseErrorCode             = -32700
	InvalidRequestCode         = -32600
	MethodNotFoundCode         = -32601
	InvalidParamsCode          = -32602
	InternalErrorCode          = -32603
	TransactionFailedCode      = -32002
	RateLimitedCode            = 429
	defaultRentEpoch           = 0
	lamportsPerSolDecimalPlace = -9
)

type request struct {
	JsonRpc string            `json:"jsonrpc"`
	Id      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type response struct {
	JsonRpc string          `json:"jsonrpc"`
	Id      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC error object
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// TransactionErrorData is attached to TransactionFailedCode errors
type TransactionErrorData struct {
	Err          interface{}   `json:"err"`
	Signature    string        `json:"signature,omitempty"`
	ProgramError *ProgramError `json:"programError,omitempty"`
}

// ProgramError describes a custom instruction error by its stable code
type ProgramError struct {
	Code    uint32 `json:"code"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// toProgramError resolves the custom code carried by a failed instruction
func toProgramError(txErr *solana.TransactionError) *ProgramError {
	if txErr == nil || txErr.InstructionError() == nil {
		return nil
	}

	custom := txErr.InstructionError().CustomError()
	if custom == nil {
		return nil
	}

	programErr, ok := program.GetProgramError(uint32(*custom))
	if !ok {
		return nil
	}
	return &ProgramError{
		Code:    programErr.Code,
		Name:    programErr.Name,
		Message: programErr.Message,
	}
}

type Context struct {
	Slot uint64 `json:"slot"`
}

type BalanceResult struct {
	Context Context `json:"context"`
	Value   uint64  `json:"value"`
}

type AccountInfoResult struct {
	Context Context      `json:"context"`
	Value   *AccountView `json:"value"`
}

// AccountView is an account's lamports and data. Data is the base64 account
// encoding, with the decoded record in Parsed.
type AccountView struct {
	Lamports    uint64        `json:"lamports"`
	LamportsSol string        `json:"lamportsSol"`
	Owner       string        `json:"owner"`
	Executable  bool          `json:"executable"`
	RentEpoch   uint64        `json:"rentEpoch"`
	Space       int           `json:"space"`
	Data        []string      `json:"data"`
	Parsed      *ParsedRecord `json:"parsed,omitempty"`
}

type ParsedRecord struct {
	Type string      `json:"type"`
	Info interface{} `json:"info"`
}

type KeyedAccount struct {
	Pubkey  string       `json:"pubkey"`
	Account *AccountView `json:"account"`
}

type ProgramAccountsResult struct {
	Context    Context         `json:"context"`
	Accounts   []*KeyedAccount `json:"accounts"`
	NextCursor *string         `json:"nextCursor"`
}

// ProgramAccountsConfig selects the records returned by getProgramAccounts
type ProgramAccountsConfig struct {
	Filters ProgramAccountsFilters `json:"filters"`
	Cursor  string                 `json:"cursor,omitempty"`
	Limit   uint64                 `json:"limit,omitempty"`
	Order   string                 `json:"order,omitempty"`
}

type ProgramAccountsFilters struct {
	Authority string `json:"authority,omitempty"`
	Campaign  string `json:"campaign,omitempty"`
	Donor     string `json:"donor,omitempty"`
	Status    string `json:"status,omitempty"`
	Category  string `json:"category,omitempty"`
}

type SignatureStatus struct {
	Slot               uint64      `json:"slot"`
	Confirmations      *int        `json:"confirmations"`
	Err                interface{} `json:"err"`
	ConfirmationStatus string      `json:"confirmationStatus"`
}

type SignatureStatusesResult struct {
	Context Context            `json:"context"`
	Value   []*SignatureStatus `json:"value"`
}

type EventView struct {
	Type  string      `json:"type"`
	Index int         `json:"index"`
	Data  interface{} `json:"data"`
}

type TransactionMeta struct {
	Fee    uint64       `json:"fee"`
	Err    interface{}  `json:"err"`
	Events []*EventView `json:"events"`
}

type TransactionResult struct {
	Slot        uint64           `json:"slot"`
	BlockTime   int64            `json:"blockTime"`
	Transaction []string         `json:"transaction"`
	Meta        *TransactionMeta `json:"meta"`
}

type LatestBlockhash struct {
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

type LatestBlockhashResult struct {
	Context Context         `json:"context"`
	Value   LatestBlockhash `json:"value"`
}

type SimulationValue struct {
	Err    interface{}  `json:"err"`
	Fee    uint64       `json:"fee"`
	Events []*EventView `json:"events"`
}

type SimulationResult struct {
	Context Context         `json:"context"`
	Value   SimulationValue `json:"value"`
}

type UserView struct {
	Address            string            `json:"address"`
	Authority          string            `json:"authority"`
	Name               string            `json:"name"`
	WalletAddress      string            `json:"walletAddress"`
	Email              string            `json:"email"`
	AvatarUrl          string            `json:"avatarUrl"`
	TotalDonations     uint64            `json:"totalDonations"`
	TotalDonationsSol  string            `json:"totalDonationsSol"`
	CampaignsSupported uint32            `json:"campaignsSupported"`
	ImpactMetrics      ImpactMetricsView `json:"impactMetrics"`
	Badges             []BadgeView       `json:"badges"`
	Rank               uint32            `json:"rank"`
	Slot               uint64            `json:"slot"`
}

type ImpactMetricsView struct {
	MealsProvided    uint32 `json:"mealsProvided"`
	ChildrenEducated uint32 `json:"childrenEducated"`
	FamiliesHoused   uint32 `json:"familiesHoused"`
	TreesPlanted     uint32 `json:"treesPlanted"`
}

type BadgeView struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	ImageUrl    string `json:"imageUrl"`
	DateEarned  int64  `json:"dateEarned"`
}

type CampaignView struct {
	Address          string `json:"address"`
	Vault            string `json:"vault"`
	Authority        string `json:"authority"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	Category         string `json:"category"`
	OrganizationName string `json:"organizationName"`
	ImageUrl         string `json:"imageUrl"`
	IsUrgent         bool   `json:"isUrgent"`
	TargetAmount     uint64 `json:"targetAmount"`
	TargetSol        string `json:"targetSol"`
	RaisedAmount     uint64 `json:"raisedAmount"`
	RaisedSol        string `json:"raisedSol"`
	Progress         string `json:"progress"`
	DonorsCount      uint32 `json:"donorsCount"`
	StartDate        int64  `json:"startDate"`
	EndDate          int64  `json:"endDate"`
	Status           string `json:"status"`
	Slot             uint64 `json:"slot"`
}

type DonationView struct {
	Address           string `json:"address"`
	Donor             string `json:"donor"`
	Campaign          string `json:"campaign"`
	Sequence          uint32 `json:"sequence"`
	Amount            uint64 `json:"amount"`
	AmountSol         string `json:"amountSol"`
	Timestamp         int64  `json:"timestamp"`
	Status            string `json:"status"`
	PaymentMethod     string `json:"paymentMethod"`
	TransactionHash   string `json:"transactionHash"`
	ImpactDescription string `json:"impactDescription"`
	Slot              uint64 `json:"slot"`
}

// toSol formats lamports as a SOL amount without rounding
func toSol(lamports uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), lamportsPerSolDecimalPlace).String()
}

// progress is raised / target as a percentage with two decimal places
func progress(raised, target uint64) string {
	if target == 0 {
		return "0.00"
	}

	r := decimal.NewFromBigInt(new(big.Int).SetUint64(raised), 0)
	t := decimal.NewFromBigInt(new(big.Int).SetUint64(target), 0)
	return r.Mul(decimal.NewFromInt(100)).DivRound(t, 2).StringFixed(2)
}

func toUserView(record *user.Record) *UserView {
	badges := make([]BadgeView, len(record.Badges))
	for i, badge := range record.Badges {
		badges[i] = BadgeView{
			Type:        badge.Type.String(),
			Description: badge.Description,
			ImageUrl:    badge.ImageUrl,
			DateEarned:  badge.DateEarned,
		}
	}

	return &UserView{
		Address:            record.Address,
		Authority:          record.Authority,
		Name:               record.Name,
		WalletAddress:      record.WalletAddress,
		Email:              record.Email,
		AvatarUrl:          record.AvatarUrl,
		TotalDonations:     record.TotalDonations,
		TotalDonationsSol:  toSol(record.TotalDonations),
		CampaignsSupported: record.CampaignsSupported,
		ImpactMetrics: ImpactMetricsView{
			MealsProvided:    record.ImpactMetrics.MealsProvided,
			ChildrenEducated: record.ImpactMetrics.ChildrenEducated,
			FamiliesHoused:   record.ImpactMetrics.FamiliesHoused,
			TreesPlanted:     record.ImpactMetrics.TreesPlanted,
		},
		Badges: badges,
		Rank:   record.Rank,
		Slot:   record.Slot,
	}
}

func toCampaignView(record *campaign.Record) *CampaignView {
	return &CampaignView{
		Address:          record.Address,
		Vault:            record.Vault,
		Authority:        record.Authority,
		Title:            record.Title,
		Description:      record.Description,
		Category:         record.Category.String(),
		OrganizationName: record.OrganizationName,
		ImageUrl:         record.ImageUrl,
		IsUrgent:         record.IsUrgent,
		TargetAmount:     record.TargetAmount,
		TargetSol:        toSol(record.TargetAmount),
		RaisedAmount:     record.RaisedAmount,
		RaisedSol:        toSol(record.RaisedAmount),
		Progress:         progress(record.RaisedAmount, record.TargetAmount),
		DonorsCount:      record.DonorsCount,
		StartDate:        record.StartDate,
		EndDate:          record.EndDate,
		Status:           record.Status.String(),
		Slot:             record.Slot,
	}
}

func toDonationView(record *donation.Record) *DonationView {
	return &DonationView{
		Address:           record.Address,
		Donor:             record.Donor,
		Campaign:          record.Campaign,
		Sequence:          record.Sequence,
		Amount:            record.Amount,
		AmountSol:         toSol(record.Amount),
		Timestamp:         record.Timestamp,
		Status:            record.Status.String(),
		PaymentMethod:     record.PaymentMethod.String(),
		TransactionHash:   record.TransactionHash,
		ImpactDescription: record.ImpactDescription,
		Slot:              record.Slot,
	}
}

func toEventViews(events []program.Event) []*EventView {
	views := make([]*EventView, len(events))
	for i, e := range events {
		views[i] = &EventView{
			Type:  e.Type().String(),
			Index: i,
			Data:  e,
		}
	}
	return views
}

func toStoredEventViews(records []*event.Record) []*EventView {
	views := make([]*EventView, len(records))
	for i, record := range records {
		views[i] = &EventView{
			Type:  record.Type.String(),
			Index: int(record.Index),
			Data:  json.RawMessage(record.Payload),
		}
	}
	return views
}

func encodeBase64(data []byte) []string {
	return []string{base64.StdEncoding.EncodeToString(data), "base64"}
}
