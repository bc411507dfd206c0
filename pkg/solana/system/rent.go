package system

// Rent parameters match the cluster defaults.
//
// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/program/src/rent.rs#L33-L43
const (
	LamportsPerByteYear    = 3480
	ExemptionThreshold     = 2
	AccountStorageOverhead = 128

	// LamportsPerSignature is the fixed fee charged for every required signature.
	LamportsPerSignature = 5000
)

// RentExemptMinimum returns the balance an account holding size bytes of data
// must carry to be exempt from rent collection.
func RentExemptMinimum(size uint64) uint64 {
	return (size + AccountStorageOverhead) * LamportsPerByteYear * ExemptionThreshold
}
