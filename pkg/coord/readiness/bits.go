package readiness

import (
	"fmt"
	"math/bits"
	"strings"
)

// Bits is a readiness bitset. Each bit is one subsystem's ready flag.
type Bits uint32

// MaxBits is the number of independent flags a Bits can hold.
const MaxBits = 32

// Bit returns the mask with only position n set.
func Bit(n uint) Bits {
	return Bits(1) << n
}

// Has reports whether every bit of mask is set in b.
func Has(b, mask Bits) bool {
	return b&mask == mask
}

// HasAny reports whether at least one bit of mask is set in b.
func HasAny(b, mask Bits) bool {
	return b&mask != 0
}

// Count returns the number of set bits.
func (b Bits) Count() int {
	return bits.OnesCount32(uint32(b))
}

func (b Bits) String() string {
	if b == 0 {
		return "0x0"
	}
	var set []string
	for n := uint(0); n < MaxBits; n++ {
		if b&Bit(n) != 0 {
			set = append(set, fmt.Sprint(n))
		}
	}
	return fmt.Sprintf("%#x[%s]", uint32(b), strings.Join(set, ","))
}
