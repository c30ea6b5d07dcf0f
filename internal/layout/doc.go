// Package layout computes sizes, alignments and field offsets.
//
// Records align each field to its own alignment and round the total size
// up to the largest field alignment. Flag sets use the smallest unsigned
// integer holding all bits.
package layout
