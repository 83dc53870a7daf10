// Package trace reads the virtual address traces that drive a simulation.
package trace

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidAddress is returned for tokens that are not valid addresses.
var ErrInvalidAddress = errors.New("invalid address")

// ParseAddress parses an address token. A token with a 0x or 0X prefix is
// hexadecimal, anything else is decimal. The address must fit in 32 bits.
func ParseAddress(token string) (uint64, error) {
	digits, base := token, 10
	if strings.HasPrefix(token, "0x") || strings.HasPrefix(token, "0X") {
		digits, base = token[2:], 16
	}

	addr, err := strconv.ParseUint(digits, base, 32)
	if err != nil {
		return 0, fmt.Errorf("%w %q", ErrInvalidAddress, token)
	}

	return addr, nil
}
