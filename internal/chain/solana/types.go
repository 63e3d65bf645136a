package solana

// Well-known program identifiers on mainnet.
const (
	SystemProgramID = "11111111111111111111111111111111"
	TokenProgramID  = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
)

// LamportsPerSOL is the native unit scale.
const LamportsPerSOL = 1_000_000_000

// SignatureInfo is one entry from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
}

// TokenBalance is a pre/post token balance snapshot inside transaction meta.
type TokenBalance struct {
	Owner  string
	Mint   string
	Amount int64
}

// Transaction carries the slots of a confirmed transaction the core needs:
// its timestamp and the owner-level token balance snapshots.
type Transaction struct {
	Signature         string
	Slot              int64
	BlockTime         *int64
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

// AccountIdentity is the executable/owner pair from getAccountInfo.
// A nil value from the client means the account does not exist.
type AccountIdentity struct {
	Executable bool
	Owner      string
	Lamports   uint64
}

// TokenAccount is one SPL token account matched by mint.
type TokenAccount struct {
	Pubkey string
	Owner  string
	Amount int64
}

// LargestAccount is one entry from getTokenLargestAccounts.
type LargestAccount struct {
	Address string
	Amount  int64
}

// TokenSupply reports mint-level supply metadata.
type TokenSupply struct {
	Amount   string
	Decimals int
}
