package events

import (
	"math/big"
	"strconv"

	"mediachain/crypto"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatAccount(addr [20]byte) string {
	return crypto.FormatAccount(addr)
}

func formatHeight(h uint64) string {
	return strconv.FormatUint(h, 10)
}

func isZero(addr [20]byte) bool {
	return addr == [20]byte{}
}
