// Package core provides low-level PDF parsing primitives and object types.
//
// The eight PDF object types are implemented as types satisfying [Object]:
// [Null], [Bool], [Int], [Real], [String], [Name], [Array] and [Dict].
// [Stream] is a dictionary with raw data and [IndirectRef] refers to an
// indirect object.
//
// # Reading partially available files
//
// Everything here reads through an io.ReaderAt and never assumes the whole
// file is present. The first read error a [Lexer] sees is sticky and the
// [Parser] reports it in preference to any syntax error that follows, so an
// error from the underlying reader always reaches the caller:
//
//	p := core.NewParserAt(r, offset, size)
//	obj, err := p.ParseIndirectObject()
//
// # Cross-reference sections
//
// [XRefParser] locates startxref, parses classic tables and xref streams
// (including hybrid files) and follows /Prev chains, merging the sections
// into one [XRefTable]. Compressed objects live in an [ObjectStream].
//
// # Stream decoding
//
// [Stream.Decode] applies FlateDecode (with PNG and TIFF predictors),
// ASCIIHexDecode and ASCII85Decode filter chains.
package core
