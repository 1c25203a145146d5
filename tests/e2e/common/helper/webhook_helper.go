//go:build e2e

package helper

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SignWebhook builds the x-signature and x-request-id headers the provider
// sends with a notification, using the same HMAC manifest the server verifies.
func SignWebhook(secret, dataID, requestID string) map[string]string {
	ts := "1742000000"
	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))

	return map[string]string{
		"x-signature":  fmt.Sprintf("ts=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil))),
		"x-request-id": requestID,
	}
}
