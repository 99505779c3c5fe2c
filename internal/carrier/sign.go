package carrier

import (
	"crypto/md5" //nolint:gosec // request checksum mandated by the carrier wire contract, not used for security
	"encoding/hex"
	"sort"
	"strings"
)

// SignParams computes the request signature used by the regional courier API
// family: parameters sorted by key, concatenated as key=value pairs joined by
// "&", the shared secret appended, MD5-hashed and upper-hex encoded. Key
// order and secret placement are part of the wire contract and must not
// change.
func SignParams(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	b.WriteString(secret)

	sum := md5.Sum([]byte(b.String())) //nolint:gosec
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
