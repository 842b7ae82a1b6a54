package internal

import "encoding/base64"

// EncodeSASL 把一段 SASL 负载编码成可以写到线上的 base64 atom。
func EncodeSASL(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeSASL 把从线上读到的 base64 字符串解码成 SASL 负载。
func DecodeSASL(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
