package program

import (
	"fmt"

	"github.com/rippl-labs/rippl-server/pkg/solana"
)

// ProgramError is a failure reported through a custom instruction error code.
// Codes below 6000 are framework or system program errors, codes from 6000
// onwards are the program's own.
type ProgramError struct {
	Code    uint32
	Name    string
	Message string
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Message)
}

func newProgramError(code uint32, name, message string) *ProgramError {
	err := &ProgramError{
		Code:    code,
		Name:    name,
		Message: message,
	}
	errorsByCode[code] = err
	return err
}

var errorsByCode = make(map[uint32]*ProgramError)

// System program
var (
	ErrAccountAlreadyInUse     = newProgramError(0, "AccountAlreadyInUse", "an account with the same address already exists")
	ErrSystemInsufficientFunds = newProgramError(1, "ResultWithNegativeLamports", "account does not have enough lamports to complete the operation")
)

// Framework
var (
	ErrInstructionMissing           = newProgramError(100, "InstructionMissing", "8 byte instruction identifier not provided")
	ErrInstructionFallbackNotFound  = newProgramError(101, "InstructionFallbackNotFound", "fallback functions are not supported")
	ErrInstructionDidNotDeserialize = newProgramError(102, "InstructionDidNotDeserialize", "the program could not deserialize the given instruction")
	ErrConstraintMut                = newProgramError(2000, "ConstraintMut", "a mut constraint was violated")
	ErrConstraintSigner             = newProgramError(2002, "ConstraintSigner", "a signer constraint was violated")
	ErrConstraintSeeds              = newProgramError(2006, "ConstraintSeeds", "a seeds constraint was violated")
	ErrAccountDiscriminatorMismatch = newProgramError(3002, "AccountDiscriminatorMismatch", "account discriminator did not match what was expected")
	ErrAccountNotEnoughKeys         = newProgramError(3005, "AccountNotEnoughKeys", "not enough account keys given to the instruction")
	ErrInvalidProgramId             = newProgramError(3008, "InvalidProgramId", "program ID was not as expected")
	ErrAccountNotSigner             = newProgramError(3010, "AccountNotSigner", "the given account did not sign")
	ErrAccountNotSystemOwned        = newProgramError(3011, "AccountNotSystemOwned", "the given account is not owned by the system program")
	ErrAccountNotInitialized        = newProgramError(3012, "AccountNotInitialized", "the program expected this account to be already initialized")
)

// Program
var (
	ErrTitleTooLong             = newProgramError(6000, "TitleTooLong", "The provided title is too long")
	ErrDescriptionTooLong       = newProgramError(6001, "DescriptionTooLong", "The provided description is too long")
	ErrOrganizationNameTooLong  = newProgramError(6002, "OrganizationNameTooLong", "The provided organization name is too long")
	ErrImageUrlTooLong          = newProgramError(6003, "ImageUrlTooLong", "The provided image URL is too long")
	ErrCampaignDurationTooShort = newProgramError(6004, "CampaignDurationTooShort", "Campaign duration is too short")
	ErrCampaignDurationTooLong  = newProgramError(6005, "CampaignDurationTooLong", "Campaign duration is too long")
	ErrTargetAmountTooLow       = newProgramError(6006, "TargetAmountTooLow", "Campaign target amount is too low")
	ErrCampaignEnded            = newProgramError(6007, "CampaignEnded", "Campaign has already ended")
	ErrCampaignNotActive        = newProgramError(6008, "CampaignNotActive", "Campaign is not active")
	ErrDonationTooLow           = newProgramError(6009, "DonationTooLow", "Donation amount is too low")
	ErrInvalidAuthority         = newProgramError(6010, "InvalidAuthority", "Invalid authority")
	ErrInvalidStatusTransition  = newProgramError(6011, "InvalidStatusTransition", "Invalid campaign status transition")
	ErrInsufficientFunds        = newProgramError(6012, "InsufficientFunds", "Insufficient funds")
	ErrNameTooLong              = newProgramError(6013, "NameTooLong", "Maximum name length exceeded")
	ErrEmailTooLong             = newProgramError(6014, "EmailTooLong", "Maximum email length exceeded")
	ErrInvalidEmailFormat       = newProgramError(6015, "InvalidEmailFormat", "Invalid email format")
	ErrTransactionHashTooLong   = newProgramError(6016, "TransactionHashTooLong", "Maximum transaction hash length exceeded")
	ErrImpactDescriptionTooLong = newProgramError(6017, "ImpactDescriptionTooLong", "Maximum impact description length exceeded")
	ErrMaxBadgesReached         = newProgramError(6018, "MaxBadgesReached", "Maximum number of badges reached")
	ErrNameRequired             = newProgramError(6019, "NameRequired", "A name is required")
	ErrInvalidDonationSequence  = newProgramError(6020, "InvalidDonationSequence", "Donation sequence does not match the campaign donor count")
	ErrTitleRequired            = newProgramError(6021, "TitleRequired", "A title is required")
)

// GetProgramError returns the error registered for a custom error code
func GetProgramError(code uint32) (*ProgramError, bool) {
	err, ok := errorsByCode[code]
	return err, ok
}

// BuiltinError is an instruction failure reported by the runtime itself rather
// than through a custom code. The value is the instruction error key.
type BuiltinError string

func (e BuiltinError) Error() string {
	return string(e)
}

var (
	ErrBuiltinMaxSeedLengthExceeded = BuiltinError(solana.InstructionErrorMaxSeedLengthExceeded)
	ErrBuiltinInvalidSeeds          = BuiltinError(solana.InstructionErrorInvalidSeeds)
	ErrBuiltinArithmeticOverflow    = BuiltinError(solana.InstructionErrorArithmeticOverflow)
)

// ToInstructionError converts a handler error into the error carried by a
// solana.InstructionError. Unrecognized errors are infrastructure failures
// and are reported as not ok.
func ToInstructionError(err error) (error, bool) {
	switch typed := err.(type) {
	case *ProgramError:
		return solana.CustomError(typed.Code), true
	case BuiltinError:
		return typed, true
	}
	return nil, false
}
