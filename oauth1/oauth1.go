/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package oauth1 signs individual HTTP requests with an OAuth 1.0a
// Authorization header (RFC 5849 §3), the same pre-shared consumer/token
// credential signing the original tool used - no three-legged handshake or
// token refresh, since a load generator is configured with a fixed
// credential pair up front.
//
// There is no OAuth1 request-signing library in the example corpus
// (golang.org/x/oauth2 only implements the OAuth2 token-exchange flow,
// which is a different protocol); this is implemented directly against
// crypto/hmac + crypto/sha1, which is the correct and only idiomatic choice
// for this primitive - see DESIGN.md.
package oauth1

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // HMAC-SHA1 is mandated by the OAuth1 spec, not used for collision resistance
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Credentials holds the consumer and (optional) access-token secrets used to
// sign a request.
type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	TokenKey       string
	TokenSecret    string
}

// Enabled reports whether a consumer key is configured; without one, OAuth
// signing is disabled entirely.
func (c Credentials) Enabled() bool {
	return c.ConsumerKey != ""
}

// Sign computes the Authorization header value for method+rawURL signed
// with creds, using nonce and unixTime supplied by the caller (the
// connection's per-thread RandState and wall clock) so the signature is
// deterministic given those inputs and therefore testable. The signature
// base string covers the method, the URL and its query parameters; body is
// accepted but not included in the signature.
func Sign(method, rawURL string, body []byte, creds Credentials, nonce string, unixTime int64) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("oauth1: invalid url: %w", err)
	}

	params := map[string]string{
		"oauth_consumer_key":     creds.ConsumerKey,
		"oauth_nonce":            nonce,
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(unixTime, 10),
		"oauth_version":          "1.0",
	}
	if creds.TokenKey != "" {
		params["oauth_token"] = creds.TokenKey
	}

	baseParams := make(map[string]string, len(params)+len(u.Query()))
	for k, v := range params {
		baseParams[k] = v
	}
	for k, vs := range u.Query() {
		if len(vs) > 0 {
			baseParams[k] = vs[0]
		}
	}

	baseURL := fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, u.Path)
	sig := signature(method, baseURL, baseParams, creds)
	params["oauth_signature"] = sig

	return buildHeader(params), nil
}

func signature(method, baseURL string, params map[string]string, creds Credentials) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, percentEncode(k)+"="+percentEncode(params[k]))
	}
	paramStr := strings.Join(pairs, "&")

	base := strings.ToUpper(method) + "&" + percentEncode(baseURL) + "&" + percentEncode(paramStr)
	key := percentEncode(creds.ConsumerSecret) + "&" + percentEncode(creds.TokenSecret)

	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func buildHeader(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf(`%s="%s"`, percentEncode(k), percentEncode(params[k])))
	}
	return "OAuth " + strings.Join(parts, ", ")
}

// percentEncode implements RFC 3986 unreserved-character encoding, which
// differs from url.QueryEscape (space -> "+", different reserved set).
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') ||
			c == '-' || c == '.' || c == '_' || c == '~' {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
