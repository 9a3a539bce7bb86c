package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// SignWebhookPayload computes the signature the billing provider is expected
// to send in the X-Signature header: base64 of an HMAC-SHA256 over the raw
// request body.
func SignWebhookPayload(body, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature checks a payment webhook's signature against the raw
// body. The comparison is constant time.
func VerifyWebhookSignature(body, signature, secret string) bool {
	expected := SignWebhookPayload(body, secret)
	return subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) == 1
}
