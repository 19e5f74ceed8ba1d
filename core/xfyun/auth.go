// Package xfyun holds what the xfyun speech endpoints share: credentials and
// the HMAC signed websocket URL.
package xfyun

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/koscakluka/ema-interview/core/transport"
)

const (
	RecognitionURL = "wss://iat-api.xfyun.cn/v2/iat"
	SynthesisURL   = "wss://tts-api.xfyun.cn/v2/tts"
)

var ErrMissingCredentials = errors.New("xfyun credentials missing")

type Credentials struct {
	AppID     string
	APIKey    string
	APISecret string
}

func (c Credentials) Validate() error {
	if c.AppID == "" || c.APIKey == "" || c.APISecret == "" {
		return ErrMissingCredentials
	}
	return nil
}

// SignURL returns endpoint with the host, date and authorization query
// parameters the xfyun gateway expects, signed at now.
func SignURL(endpoint string, creds Credentials, now time.Time) (string, error) {
	if creds.APIKey == "" || creds.APISecret == "" {
		return "", ErrMissingCredentials
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}

	date := now.UTC().Format(http.TimeFormat)
	signatureOrigin := fmt.Sprintf("host: %s\ndate: %s\nGET %s HTTP/1.1", u.Host, date, u.Path)

	mac := hmac.New(sha256.New, []byte(creds.APISecret))
	mac.Write([]byte(signatureOrigin))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	authorizationOrigin := fmt.Sprintf(
		`api_key="%s", algorithm="%s", headers="%s", signature="%s"`,
		creds.APIKey, "hmac-sha256", "host date request-line", signature,
	)

	query := url.Values{}
	query.Set("authorization", base64.StdEncoding.EncodeToString([]byte(authorizationOrigin)))
	query.Set("date", date)
	query.Set("host", u.Host)
	u.RawQuery = query.Encode()

	return u.String(), nil
}

// URLFunc signs endpoint freshly on every dial.
func URLFunc(endpoint string, creds Credentials) transport.URLFunc {
	return func() (string, error) {
		return SignURL(endpoint, creds, time.Now())
	}
}
