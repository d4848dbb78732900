// Package document is the PDF model the access manager drives.
//
// A [Document] reads through an io.ReaderAt that may not hold every byte
// yet. Whenever an operation touches bytes that are not resident it returns
// the [*chunked.MissingDataError] describing them, never a parse error
// caused by the missing bytes, and leaves no partial state behind. Running
// the same operation again once the range is resident continues normally.
//
// The usual opening sequence is
//
//	doc := document.New(r, length, document.DefaultEvaluatorOptions())
//	err := doc.CheckHeader()
//	err = doc.ParseStartXRef()
//	err = doc.Parse(password)
//
// after which [Document.Catalog], [Document.NumPages], [Document.Page] and
// [Document.Info] are available.
package document
