package program

import (
	"crypto/ed25519"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/rippl-labs/rippl-server/pkg/cache"
	"github.com/rippl-labs/rippl-server/pkg/solana"
)

var (
	UserPrefix     = []byte("user")
	CampaignPrefix = []byte("campaign")
	DonationPrefix = []byte("donation")
	VaultSuffix    = []byte("vault")
)

// The bump search can take a few hundred hashes per address, and the runtime
// derives the same handful of addresses for every instruction.
var addressCache = cache.NewCache[*derivedAddress](10_000)

type derivedAddress struct {
	address ed25519.PublicKey
	bump    uint8
}

type GetUserAddressArgs struct {
	Authority ed25519.PublicKey
}

func GetUserAddress(args *GetUserAddressArgs) (ed25519.PublicKey, uint8, error) {
	return findProgramAddressAndBump(
		UserPrefix,
		args.Authority,
	)
}

type GetCampaignAddressArgs struct {
	Title     string
	Authority ed25519.PublicKey
}

func GetCampaignAddress(args *GetCampaignAddressArgs) (ed25519.PublicKey, uint8, error) {
	return findProgramAddressAndBump(
		CampaignPrefix,
		[]byte(args.Title),
		args.Authority,
	)
}

type GetCampaignVaultAddressArgs struct {
	Title     string
	Authority ed25519.PublicKey
}

func GetCampaignVaultAddress(args *GetCampaignVaultAddressArgs) (ed25519.PublicKey, uint8, error) {
	return findProgramAddressAndBump(
		CampaignPrefix,
		[]byte(args.Title),
		args.Authority,
		VaultSuffix,
	)
}

type GetDonationAddressArgs struct {
	Campaign ed25519.PublicKey
	Donor    ed25519.PublicKey
	Sequence string
}

func GetDonationAddress(args *GetDonationAddressArgs) (ed25519.PublicKey, uint8, error) {
	return findProgramAddressAndBump(
		DonationPrefix,
		args.Campaign,
		args.Donor,
		[]byte(args.Sequence),
	)
}

// FormatDonationSequence is the seed form of a campaign's donor count
func FormatDonationSequence(donorsCount uint32) string {
	return strconv.FormatUint(uint64(donorsCount), 10)
}

func findProgramAddressAndBump(seeds ...[]byte) (ed25519.PublicKey, uint8, error) {
	encoded := make([]string, len(seeds))
	for i, seed := range seeds {
		encoded[i] = base58.Encode(seed)
	}
	key := strings.Join(encoded, ":")

	if derived, ok := addressCache.Retrieve(key); ok {
		return derived.address, derived.bump, nil
	}

	address, bump, err := solana.FindProgramAddressAndBump(PROGRAM_ID, seeds...)
	if err != nil {
		return nil, 0, err
	}

	// Concurrent derivations of the same address race to insert, which is fine
	_ = addressCache.Insert(key, &derivedAddress{address: address, bump: bump}, 1)

	return address, bump, nil
}
