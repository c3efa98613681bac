package typst

import "bytes"

// CountPages counts the page objects in a compiled PDF. Typst writes
// uncompressed object dictionaries, so the page tree nodes are visible as
// plain `/Type /Page` entries; `/Type /Pages` tree nodes are excluded.
func CountPages(pdf []byte) int {
	count := 0
	for _, marker := range [][]byte{[]byte("/Type /Page"), []byte("/Type/Page")} {
		offset := 0
		for {
			i := bytes.Index(pdf[offset:], marker)
			if i < 0 {
				break
			}
			rest := pdf[offset+i+len(marker):]
			// skip the /Pages tree nodes
			if !bytes.HasPrefix(rest, []byte("s")) {
				count++
			}
			offset += i + len(marker)
		}
	}
	return count
}
