// Package wire implements the binary buffer used for serialization.
//
// A Writer fills a caller-owned byte slice of explicit length and fails
// with an out_of_bounds error instead of growing. A Reader consumes a
// byte span and fails with malformed_input on truncation. Both carry a
// swap flag: without it scalars are little-endian, with it big-endian.
package wire
