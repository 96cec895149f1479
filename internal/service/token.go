package service

import "github.com/google/uuid"

var tokenNamespace = uuid.MustParse("4b6f0c2e-8d1a-5e3b-9c47-1f2a3b4c5d6e")

// IdempotencyToken derives the reservation key for a purchase attempt. Without
// a client nonce a buyer holds at most one ticket per event; distinct nonces
// allow several.
func IdempotencyToken(buyerID, eventID, nonce string) string {
	return uuid.NewSHA1(tokenNamespace, []byte(buyerID+"\x00"+eventID+"\x00"+nonce)).String()
}
