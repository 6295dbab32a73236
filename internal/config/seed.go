package config

import "encoding/hex"

func decodeHexSeed(s string) ([]byte, error) {
	return hex.DecodeString(s)
}
