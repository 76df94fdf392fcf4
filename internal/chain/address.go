package chain

import "strings"

// normalizeAddress canonicalizes addresses for comparison. EVM
// addresses are case-insensitive hex; Bitcoin addresses are compared
// as-is apart from surrounding whitespace.
func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if strings.HasPrefix(addr, "0x") || strings.HasPrefix(addr, "0X") {
		return strings.ToLower(addr)
	}
	return addr
}

// ValidWalletFormat is a cheap shape check on customer-supplied wallet
// addresses before they are stored.
func ValidWalletFormat(addr string) bool {
	addr = strings.TrimSpace(addr)
	if strings.HasPrefix(addr, "0x") {
		if len(addr) != 42 {
			return false
		}
		for _, c := range addr[2:] {
			if !isHex(byte(c)) {
				return false
			}
		}
		return true
	}
	// Bitcoin base58/bech32 length band
	return len(addr) >= 26 && len(addr) <= 62
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}
