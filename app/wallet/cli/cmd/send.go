package cmd

import (
	"crypto/ecdsa"
	"log"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/rdchain/node/foundation/blockchain/database"
	"github.com/rdchain/node/foundation/blockchain/signature"
)

var (
	url      string
	to       string
	value    uint
	gasPrice uint
	gas      uint
	nonce    uint
	chainID  uint
	data     []byte
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send transaction",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		sendWithDetails(privateKey)
	},
}

func sendWithDetails(privateKey *ecdsa.PrivateKey) {
	toAddr, err := signature.AddressFromHex(to)
	if err != nil {
		log.Fatal(err)
	}

	tx := database.NewTx(uint64(nonce), toAddr, new(big.Int).SetUint64(uint64(value)), new(big.Int).SetUint64(uint64(gasPrice)), uint64(gas), data, uint64(chainID))

	signedTx, err := tx.Sign(privateKey)
	if err != nil {
		log.Fatal(err)
	}

	var txHash string
	if err := callRPC(url, "eth_sendRawTransaction", []database.SignedTx{signedTx}, &txHash); err != nil {
		log.Fatal(err)
	}

	log.Println("submitted:", txHash)
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address to send to.")
	sendCmd.Flags().UintVarP(&value, "value", "v", 0, "Value to send.")
	sendCmd.Flags().UintVarP(&gasPrice, "gas-price", "g", 1, "Gas price to offer.")
	sendCmd.Flags().UintVarP(&gas, "gas", "l", 21000, "Gas limit.")
	sendCmd.Flags().UintVarP(&nonce, "nonce", "n", 0, "Account nonce for this transaction.")
	sendCmd.Flags().UintVarP(&chainID, "chain-id", "c", 1, "Chain id to sign against.")
	sendCmd.Flags().BytesHexVarP(&data, "data", "d", nil, "Data to send.")
}
