package firewall

import (
	"math/big"
	"net/netip"

	"github.com/defguard/defguard-core/internal/rangealgebra"
	"github.com/defguard/defguard-core/internal/wireproto"
)

func addrToInt(a netip.Addr) *big.Int {
	return new(big.Int).SetBytes(a.AsSlice())
}

func intToAddr(i *big.Int, is4 bool) netip.Addr {
	size := 16
	if is4 {
		size = 4
	}
	raw := i.Bytes()
	buf := make([]byte, size)
	copy(buf[size-len(raw):], raw)
	if is4 {
		var a [4]byte
		copy(a[:], buf)
		return netip.AddrFrom4(a)
	}
	var a [16]byte
	copy(a[:], buf)
	return netip.AddrFrom16(a)
}

func bitLenForAddr(a netip.Addr) int {
	if a.Is4() {
		return 32
	}
	return 128
}

func maxForFamily(is4 bool) *big.Int {
	bits := 128
	if is4 {
		bits = 32
	}
	max := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	return max.Sub(max, big.NewInt(1))
}

// addrOrdering supplies rangealgebra.Ordering for netip.Addr within a single
// family. Next wraps around to the family's zero address, matching the
// wrapping next() required by the Range Algebra contract (SPEC_FULL.md
// §3.A); addresses never actually reach the family maximum in practice.
func addrOrdering() rangealgebra.Ordering[netip.Addr] {
	return rangealgebra.Ordering[netip.Addr]{
		Less: func(a, b netip.Addr) bool { return a.Less(b) },
		Next: func(a netip.Addr) netip.Addr {
			i := addrToInt(a)
			i.Add(i, big.NewInt(1))
			is4 := a.Is4()
			if i.Cmp(maxForFamily(is4)) > 0 {
				i.SetInt64(0)
			}
			return intToAddr(i, is4)
		},
	}
}

// splitFamily partitions a list of addresses into IPv4 and IPv6 buckets.
func splitFamily(addrs []netip.Addr) (v4, v6 []netip.Addr) {
	for _, a := range addrs {
		if a.Is4() || a.Is4In6() {
			v4 = append(v4, a.Unmap())
		} else {
			v6 = append(v6, a)
		}
	}
	return
}

// mergeAddrs runs Range Algebra over a family-homogeneous set of single-point
// or explicit ranges and returns the minimal non-overlapping ranges.
func mergeAddrs(ranges []rangealgebra.Range[netip.Addr]) []rangealgebra.Range[netip.Addr] {
	return rangealgebra.Merge(ranges, addrOrdering())
}

// pointRanges converts bare addresses into degenerate [x,x] ranges.
func pointRanges(addrs []netip.Addr) []rangealgebra.Range[netip.Addr] {
	out := make([]rangealgebra.Range[netip.Addr], len(addrs))
	for i, a := range addrs {
		out[i] = rangealgebra.Range[netip.Addr]{Lo: a, Hi: a}
	}
	return out
}

// trailingZeroBits returns the number of trailing zero bits of i, treated as
// a bitLen-wide unsigned integer (so the all-zero value is "aligned" to the
// full block).
func trailingZeroBits(i *big.Int, bitLen int) int {
	if i.Sign() == 0 {
		return bitLen
	}
	tz := int(i.TrailingZeroBits())
	if tz > bitLen {
		return bitLen
	}
	return tz
}

// compactRange converts one merged [lo,hi] interval into the minimal set of
// wireproto.IPAddress entries: a single Ip for a one-address range, a single
// Subnet when the whole range is one aligned CIDR, a greedy CIDR-block
// decomposition when that aggregates into more than singleton blocks, or —
// when the greedy decomposition finds no aggregation at all — one explicit
// IPRange rather than a list of same-size /32 (or /128) entries.
func compactRange(lo, hi netip.Addr) []*wireproto.IPAddress {
	is4 := lo.Is4()
	bitLen := bitLenForAddr(lo)
	loInt := addrToInt(lo)
	hiInt := addrToInt(hi)

	size := new(big.Int).Sub(hiInt, loInt)
	size.Add(size, big.NewInt(1))
	if size.Cmp(big.NewInt(1)) == 0 {
		return []*wireproto.IPAddress{wireproto.Ip(lo.String())}
	}

	type block struct {
		base netip.Addr
		bits int
		size *big.Int
	}
	var blocks []block
	cur := new(big.Int).Set(loInt)
	one := big.NewInt(1)
	for cur.Cmp(hiInt) <= 0 {
		remaining := new(big.Int).Sub(hiInt, cur)
		remaining.Add(remaining, one)
		tz := trailingZeroBits(cur, bitLen)
		blockBits := tz
		blockSize := new(big.Int).Lsh(one, uint(blockBits))
		for blockSize.Cmp(remaining) > 0 && blockBits > 0 {
			blockBits--
			blockSize.Lsh(one, uint(blockBits))
		}
		blocks = append(blocks, block{
			base: intToAddr(cur, is4),
			bits: bitLen - blockBits,
			size: new(big.Int).Set(blockSize),
		})
		cur.Add(cur, blockSize)
	}

	allSingletons := true
	for _, b := range blocks {
		if b.size.Cmp(one) != 0 {
			allSingletons = false
			break
		}
	}
	if len(blocks) > 1 && allSingletons {
		return []*wireproto.IPAddress{wireproto.RangeAddr(lo.String(), hi.String())}
	}

	out := make([]*wireproto.IPAddress, 0, len(blocks))
	for _, b := range blocks {
		if b.size.Cmp(one) == 0 {
			out = append(out, wireproto.Ip(b.base.String()))
			continue
		}
		prefix := netip.PrefixFrom(b.base, b.bits)
		out = append(out, wireproto.Subnet(prefix.String()))
	}
	return out
}

// CompactAddrs merges a (possibly overlapping, unsorted) set of single
// addresses and explicit ranges of one family and converts the result to the
// minimal wire representation, in ascending order.
func CompactAddrs(points []netip.Addr, ranges []rangealgebra.Range[netip.Addr]) []*wireproto.IPAddress {
	all := pointRanges(points)
	all = append(all, ranges...)
	merged := mergeAddrs(all)
	out := make([]*wireproto.IPAddress, 0, len(merged))
	for _, r := range merged {
		out = append(out, compactRange(r.Lo, r.Hi)...)
	}
	return out
}

// CIDRToRange parses a CIDR string into its inclusive address range.
func CIDRToRange(cidr string) (rangealgebra.Range[netip.Addr], error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return rangealgebra.Range[netip.Addr]{}, err
	}
	prefix = prefix.Masked()
	lo := prefix.Addr()
	bitLen := bitLenForAddr(lo)
	hostBits := bitLen - prefix.Bits()
	loInt := addrToInt(lo)
	span := new(big.Int).Lsh(big.NewInt(1), uint(hostBits))
	span.Sub(span, big.NewInt(1))
	hiInt := new(big.Int).Add(loInt, span)
	return rangealgebra.Range[netip.Addr]{Lo: lo, Hi: intToAddr(hiInt, lo.Is4())}, nil
}

// ExplicitRangeToRange parses an IPRangeSpec into an addr range.
func ExplicitRangeToRange(spec IPRangeSpec) (rangealgebra.Range[netip.Addr], error) {
	lo, err := netip.ParseAddr(spec.Start)
	if err != nil {
		return rangealgebra.Range[netip.Addr]{}, err
	}
	hi, err := netip.ParseAddr(spec.End)
	if err != nil {
		return rangealgebra.Range[netip.Addr]{}, err
	}
	lo, hi = lo.Unmap(), hi.Unmap()
	if hi.Less(lo) {
		return rangealgebra.Range[netip.Addr]{}, ErrInvalidRange
	}
	return rangealgebra.Range[netip.Addr]{Lo: lo, Hi: hi}, nil
}
