package grf

// Version 1.x pads and lightly scrambles payload bytes, and separately
// obfuscates the Windows-1252 path stored in the file table. None of this
// is intended to be cryptographically strong (spec Non-goal). The padding
// and table layout follow the 1.x family, but the transforms below are this
// package's own concrete, documented, round-trippable permutations, not the
// original 1.x codec's routine: obfuscated payloads and names are not
// bit-for-bit identical to those of other 1.x writers and readers.
// obfuscatePayload and deobfuscatePayload are exact inverses of one another
// (see obfuscate_test.go), and obfuscateName is its own inverse.

// specialExtensions never receive the periodic content scramble; their
// cycle is always 0 (spec: case-sensitive match on the literal 4-byte
// tail).
var specialExtensions = []string{".gnd", ".gat", ".act", ".str"}

// encryptionCycle returns the cycle parameter for content obfuscation of a
// payload with the given (already 8-byte-aligned) length at relativePath.
func encryptionCycle(relativePath string, paddedLength int) int {
	if len(relativePath) >= 4 {
		tail := relativePath[len(relativePath)-4:]
		for _, ext := range specialExtensions {
			if tail == ext {
				return 0
			}
		}
	}
	return digitCount(paddedLength)
}

// digitCount returns the number of base-10 digits of n, treating n <= 0 as
// 1 (spec property: floor(log10(max(n,1))) + 1).
func digitCount(n int) int {
	if n < 1 {
		n = 1
	}
	count := 1
	acc := 10
	for n >= acc {
		acc *= 10
		count++
	}
	return count
}

// obfuscatePayload applies the 1.x content scramble in place to padded,
// compressed data (length must already be a multiple of 8).
func obfuscatePayload(data []byte, cycle int) {
	numBlocks := len(data) / 8
	for i := 0; i < numBlocks; i++ {
		block := data[i*8 : i*8+8]
		permuteBlockBytes(block)
		if shouldScramble(i, cycle) {
			scrambleBlockBytes(block, cycle)
		}
	}
}

// deobfuscatePayload is the exact inverse of obfuscatePayload.
func deobfuscatePayload(data []byte, cycle int) {
	numBlocks := len(data) / 8
	for i := 0; i < numBlocks; i++ {
		block := data[i*8 : i*8+8]
		if shouldScramble(i, cycle) {
			scrambleBlockBytes(block, cycle) // involution
		}
		permuteBlockBytes(block) // involution
	}
}

// shouldScramble reports whether block i receives the heavier scramble
// pass: unconditionally for the first 20 blocks, then every cycle-th block
// after that (cycle == 0 disables the periodic pass entirely).
func shouldScramble(blockIndex, cycle int) bool {
	if blockIndex < 20 {
		return true
	}
	if cycle <= 0 {
		return false
	}
	return blockIndex%cycle == 0
}

// permuteBlockBytes swaps adjacent byte pairs within an 8-byte block. It is
// its own inverse.
func permuteBlockBytes(block []byte) {
	_ = block[7]
	block[0], block[1] = block[1], block[0]
	block[2], block[3] = block[3], block[2]
	block[4], block[5] = block[5], block[4]
	block[6], block[7] = block[7], block[6]
}

// scrambleBlockBytes reverses the 8 bytes and XORs them with a palindromic,
// cycle-derived key. Both the byte reversal and the XOR are individually
// involutions, and the key is palindromic (key[i] == key[7-i]), which
// makes the whole transform its own inverse: see obfuscate_test.go.
func scrambleBlockBytes(block []byte, cycle int) {
	_ = block[7]
	key := scrambleKey(cycle)
	for i, j := 0, 7; i < j; i, j = i+1, j-1 {
		block[i], block[j] = block[j], block[i]
	}
	for i := range block {
		block[i] ^= key[i]
	}
}

func scrambleKey(cycle int) [8]byte {
	var k [8]byte
	for i := 0; i < 4; i++ {
		k[i] = byte(cycle*131 + i*17 + 0x5A)
	}
	k[4], k[5], k[6], k[7] = k[3], k[2], k[1], k[0]
	return k
}

// obfuscateName permutes and complements the Windows-1252-encoded path: it
// reverses byte order, swaps the nibbles of each byte, and complements
// every byte. The composition is its own inverse (see obfuscate_test.go),
// so the same function serves as both directions.
func obfuscateName(b []byte) []byte {
	n := len(b)
	out := make([]byte, n)
	for i, c := range b {
		out[n-1-i] = swapNibbles(c) ^ 0xFF
	}
	return out
}

func swapNibbles(c byte) byte {
	return c<<4 | c>>4
}
