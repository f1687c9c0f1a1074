package core

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

const qrCodePrefix = "bankid"

// GenerateQRCode renders the animated QR payload for order at now. The
// elapsed seconds are clamped at zero when now precedes the order start.
func GenerateQRCode(order OrderResponse, now time.Time) string {
	elapsed := int64(now.Sub(order.StartTime) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	qrTime := strconv.FormatInt(elapsed, 10)

	mac := hmac.New(sha256.New, []byte(order.QRStartSecret))
	mac.Write([]byte(qrTime))
	authCode := hex.EncodeToString(mac.Sum(nil))

	return qrCodePrefix + "." + order.QRStartToken + "." + qrTime + "." + authCode
}
