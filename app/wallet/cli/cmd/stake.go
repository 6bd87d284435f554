package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/rdchain/node/foundation/blockchain/database"
	"github.com/rdchain/node/foundation/blockchain/signature"
)

var (
	nodeURL      string
	stakeNonce   uint
	stakeChainID uint
	stakeTarget  string
	stakeSeedHex string
)

var stakeCmd = &cobra.Command{
	Use:   "stake",
	Short: "Submit validator-set and randomness-beacon transactions",
}

var stakeAddValidatorCmd = &cobra.Command{
	Use:   "add-validator",
	Short: "Propose adding an address to the validator set",
	Run: func(cmd *cobra.Command, args []string) {
		target, err := signature.AddressFromHex(stakeTarget)
		if err != nil {
			log.Fatal(err)
		}
		submitValidatorTx(database.NewAddValidatorTx(uint64(stakeNonce), uint64(stakeChainID), target))
	},
}

var stakeRemoveValidatorCmd = &cobra.Command{
	Use:   "remove-validator",
	Short: "Propose removing an address from the validator set",
	Run: func(cmd *cobra.Command, args []string) {
		target, err := signature.AddressFromHex(stakeTarget)
		if err != nil {
			log.Fatal(err)
		}
		submitValidatorTx(database.NewRemoveValidatorTx(uint64(stakeNonce), uint64(stakeChainID), target))
	},
}

var stakeCommitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Commit keccak(seed) for the next randomness round",
	Run: func(cmd *cobra.Command, args []string) {
		seed, err := parseSeedHex(stakeSeedHex)
		if err != nil {
			log.Fatal(err)
		}
		commitment := signature.Keccak256(seed.Bytes())
		submitValidatorTx(database.NewRandomHashTx(uint64(stakeNonce), uint64(stakeChainID), commitment))
	},
}

var stakeRevealCmd = &cobra.Command{
	Use:   "reveal",
	Short: "Reveal the seed behind a previously committed hash",
	Run: func(cmd *cobra.Command, args []string) {
		seed, err := parseSeedHex(stakeSeedHex)
		if err != nil {
			log.Fatal(err)
		}
		submitValidatorTx(database.NewRandomSeedTx(uint64(stakeNonce), uint64(stakeChainID), seed))
	},
}

func parseSeedHex(s string) (signature.Hash, error) {
	var h signature.Hash
	if err := h.UnmarshalText([]byte(s)); err != nil {
		return signature.Hash{}, fmt.Errorf("invalid seed: %w", err)
	}
	return h, nil
}

func submitValidatorTx(vtx database.ValidatorTx) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	signedTx, err := vtx.Sign(privateKey)
	if err != nil {
		log.Fatal(err)
	}

	payload, err := json.Marshal(signedTx)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/node/validatortx/submit", nodeURL), "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Fatalf("submit failed: %s", resp.Status)
	}

	log.Println("submitted", vtx.Kind, "nonce", vtx.Nonce)
}

func init() {
	rootCmd.AddCommand(stakeCmd)
	stakeCmd.AddCommand(stakeAddValidatorCmd, stakeRemoveValidatorCmd, stakeCommitCmd, stakeRevealCmd)

	stakeCmd.PersistentFlags().StringVarP(&nodeURL, "node", "n", "http://localhost:9080", "Url of the node's private API.")
	stakeCmd.PersistentFlags().UintVar(&stakeNonce, "nonce", 0, "Account nonce for this transaction.")
	stakeCmd.PersistentFlags().UintVarP(&stakeChainID, "chain-id", "c", 1, "Chain id to sign against.")

	stakeAddValidatorCmd.Flags().StringVarP(&stakeTarget, "target", "t", "", "Address to add to the validator set.")
	stakeRemoveValidatorCmd.Flags().StringVarP(&stakeTarget, "target", "t", "", "Address to remove from the validator set.")
	stakeCommitCmd.Flags().StringVarP(&stakeSeedHex, "seed", "s", "", "Hex seed this validator will later reveal.")
	stakeRevealCmd.Flags().StringVarP(&stakeSeedHex, "seed", "s", "", "Hex seed previously committed.")
}
