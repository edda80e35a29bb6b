// Package common contains common constants and variables used across services
package common

import "github.com/gagliardetto/solana-go"

var (
	TokenProgramID   = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	Token2022ID      = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
	WrappedSolMint   = solana.SolMint
	SystemProgramID  = solana.SystemProgramID
	SolanaDecimals   = uint8(9)
	EthereumDecimals = uint8(18)
)

const (
	ChainSolana   = "solana"
	ChainEthereum = "ethereum"

	DefaultSlippagePct = 1.0
)
