// Package filters decodes PDF stream filters: FlateDecode with PNG and TIFF
// predictors, ASCIIHexDecode, ASCII85Decode and RunLengthDecode.
//
// Decoders work on complete byte slices. Output is bounded by
// MaxDecodedSize so a small compressed stream cannot expand without limit.
package filters
