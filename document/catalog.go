package document

import (
	"fmt"
	"io"
	"sync"

	"github.com/tsawler/lazypdf/core"
)

// maxPageTreeDepth bounds descent into nested /Pages nodes
const maxPageTreeDepth = 64

// Catalog is the document catalog, the root of the object graph
type Catalog struct {
	doc  *Document
	xref *XRef
	dict core.Dict

	mu       sync.Mutex
	numPages int
	counted  bool
	pages    map[int]*Page
}

func newCatalog(doc *Document, xref *XRef, dict core.Dict) *Catalog {
	return &Catalog{
		doc:   doc,
		xref:  xref,
		dict:  dict,
		pages: make(map[int]*Page),
	}
}

// Dict returns the catalog dictionary
func (c *Catalog) Dict() core.Dict {
	return c.dict
}

// Type returns the catalog type (should be "Catalog")
func (c *Catalog) Type() string {
	name, _ := c.dict.GetName("Type")
	return string(name)
}

// Version returns the /Version entry, which overrides the header version
// when it is later.
func (c *Catalog) Version() string {
	name, _ := c.dict.GetName("Version")
	return string(name)
}

// NumPages returns the page count from the root /Count. With IgnoreErrors a
// missing or invalid count is replaced by counting the leaves.
func (c *Catalog) NumPages() (int, error) {
	c.mu.Lock()
	n, counted := c.numPages, c.counted
	c.mu.Unlock()
	if counted {
		return n, nil
	}

	rec := newFaultRecorder(c.doc.src)
	n, err := c.countPages(rec)
	if err = rec.result(err); err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.numPages, c.counted = n, true
	c.mu.Unlock()
	return n, nil
}

func (c *Catalog) pageTreeRoot(r io.ReaderAt) (core.Dict, error) {
	obj := c.dict.Get("Pages")
	if obj == nil {
		return nil, fmt.Errorf("catalog missing /Pages entry")
	}
	resolved, err := c.xref.resolve(r, obj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /Pages: %w", err)
	}
	root, ok := resolved.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("invalid /Pages type: %T", resolved)
	}
	return root, nil
}

func (c *Catalog) countPages(r io.ReaderAt) (int, error) {
	root, err := c.pageTreeRoot(r)
	if err != nil {
		return 0, err
	}

	if count, ok := root.GetInt("Count"); ok && count >= 0 {
		return int(count), nil
	}
	if !c.doc.opts.IgnoreErrors {
		return 0, fmt.Errorf("page tree has invalid /Count: %v", root.Get("Count"))
	}

	c.doc.log.Warn().Msg("page tree /Count unusable, counting leaves")
	return c.countLeaves(r, root, make(map[int]bool), 0)
}

func (c *Catalog) countLeaves(r io.ReaderAt, node core.Dict, visited map[int]bool, depth int) (int, error) {
	if depth > maxPageTreeDepth {
		return 0, fmt.Errorf("page tree deeper than %d", maxPageTreeDepth)
	}
	kids, err := c.kids(r, node)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, kidObj := range kids {
		kid, _, err := c.kid(r, kidObj, visited)
		if err != nil {
			if c.skippable(err) {
				continue
			}
			return 0, err
		}
		if !isPagesNode(kid) {
			total++
			continue
		}
		n, err := c.countLeaves(r, kid, visited, depth+1)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// Page returns the page at the zero-based index. The page tree is descended
// using the /Count of intermediate nodes, so only the nodes on the path to
// the page are read.
func (c *Catalog) Page(index int) (*Page, error) {
	c.mu.Lock()
	if page, ok := c.pages[index]; ok {
		c.mu.Unlock()
		return page, nil
	}
	c.mu.Unlock()

	n, err := c.NumPages()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= n {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrPageOutOfRange, index, n)
	}

	rec := newFaultRecorder(c.doc.src)
	page, err := c.findPage(rec, index)
	if err = rec.result(err); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.pages[index] = page
	c.mu.Unlock()
	return page, nil
}

func (c *Catalog) findPage(r io.ReaderAt, index int) (*Page, error) {
	root, err := c.pageTreeRoot(r)
	if err != nil {
		return nil, err
	}

	attrs := pageAttrs{}.inherit(root)
	visited := make(map[int]bool)
	remaining := index
	node := root

	for depth := 0; depth <= maxPageTreeDepth; depth++ {
		kids, err := c.kids(r, node)
		if err != nil {
			return nil, err
		}

		var next core.Dict
		for _, kidObj := range kids {
			kid, ref, err := c.kid(r, kidObj, visited)
			if err != nil {
				if c.skippable(err) {
					continue
				}
				return nil, err
			}

			if !isPagesNode(kid) {
				if remaining == 0 {
					return c.newPage(r, index, ref, kid, attrs.inherit(kid))
				}
				remaining--
				continue
			}

			count, err := c.subtreeCount(r, kid, visited)
			if err != nil {
				return nil, err
			}
			if remaining < count {
				next = kid
				break
			}
			remaining -= count
		}

		if next == nil {
			return nil, fmt.Errorf("%w: page %d not found in page tree", ErrPageOutOfRange, index)
		}
		attrs = attrs.inherit(next)
		node = next
	}
	return nil, fmt.Errorf("page tree deeper than %d", maxPageTreeDepth)
}

func (c *Catalog) subtreeCount(r io.ReaderAt, node core.Dict, visited map[int]bool) (int, error) {
	if count, ok := node.GetInt("Count"); ok && count >= 0 {
		return int(count), nil
	}
	if !c.doc.opts.IgnoreErrors {
		return 0, fmt.Errorf("pages node has invalid /Count: %v", node.Get("Count"))
	}
	// counting must not mark the subtree as visited for the descent
	seen := make(map[int]bool, len(visited))
	for k := range visited {
		seen[k] = true
	}
	return c.countLeaves(r, node, seen, 0)
}

func (c *Catalog) kids(r io.ReaderAt, node core.Dict) (core.Array, error) {
	obj := node.Get("Kids")
	if obj == nil {
		return nil, fmt.Errorf("Pages node missing /Kids entry")
	}
	resolved, err := c.xref.resolve(r, obj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /Kids: %w", err)
	}
	kids, ok := resolved.(core.Array)
	if !ok {
		return nil, fmt.Errorf("invalid /Kids type: %T", resolved)
	}
	return kids, nil
}

// kid resolves one /Kids element. Revisiting an object is reported as an
// error so a cyclic tree cannot loop.
func (c *Catalog) kid(r io.ReaderAt, obj core.Object, visited map[int]bool) (core.Dict, *core.IndirectRef, error) {
	var ref *core.IndirectRef
	if ir, ok := obj.(core.IndirectRef); ok {
		if visited[ir.Number] {
			return nil, nil, fmt.Errorf("page tree cycle at object %d", ir.Number)
		}
		visited[ir.Number] = true
		ref = &ir
	}

	resolved, err := c.xref.resolve(r, obj)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve kid: %w", err)
	}
	dict, ok := resolved.(core.Dict)
	if !ok {
		return nil, nil, fmt.Errorf("invalid kid type: %T", resolved)
	}
	return dict, ref, nil
}

// skippable reports whether a broken kid may be left out. Data faults
// never are.
func (c *Catalog) skippable(err error) bool {
	if isFault(err) || !c.doc.opts.IgnoreErrors {
		return false
	}
	c.doc.log.Warn().Err(err).Msg("skipping broken page tree node")
	return true
}

func isPagesNode(node core.Dict) bool {
	if typ, ok := node.GetName("Type"); ok {
		return typ == "Pages"
	}
	return node.Has("Kids")
}

// pageAttrs are the inheritable page attributes collected on the way down
type pageAttrs struct {
	mediaBox  core.Object
	cropBox   core.Object
	rotate    core.Object
	resources core.Object
}

func (a pageAttrs) inherit(node core.Dict) pageAttrs {
	if v := node.Get("MediaBox"); v != nil {
		a.mediaBox = v
	}
	if v := node.Get("CropBox"); v != nil {
		a.cropBox = v
	}
	if v := node.Get("Rotate"); v != nil {
		a.rotate = v
	}
	if v := node.Get("Resources"); v != nil {
		a.resources = v
	}
	return a
}

func (c *Catalog) newPage(r io.ReaderAt, index int, ref *core.IndirectRef, dict core.Dict, attrs pageAttrs) (*Page, error) {
	page := &Page{
		Index:    index,
		Ref:      ref,
		Dict:     dict,
		MediaBox: LetterSize,
	}

	if attrs.mediaBox != nil {
		box, err := c.rect(r, attrs.mediaBox)
		if err != nil {
			if !c.skippable(err) {
				return nil, fmt.Errorf("page %d: MediaBox: %w", index, err)
			}
		} else {
			page.MediaBox = box
		}
	}

	page.CropBox = page.MediaBox
	if attrs.cropBox != nil {
		box, err := c.rect(r, attrs.cropBox)
		if err != nil {
			if isFault(err) {
				return nil, err
			}
		} else {
			page.CropBox = box
		}
	}

	if attrs.rotate != nil {
		rotate, err := c.xref.resolve(r, attrs.rotate)
		if err != nil {
			return nil, fmt.Errorf("page %d: Rotate: %w", index, err)
		}
		if v, ok := rotate.(core.Int); ok && v%90 == 0 {
			page.Rotate = int((v%360 + 360) % 360)
		}
	}

	if attrs.resources != nil {
		resources, err := c.xref.resolve(r, attrs.resources)
		if err != nil {
			return nil, fmt.Errorf("page %d: Resources: %w", index, err)
		}
		page.Resources, _ = resources.(core.Dict)
	}
	return page, nil
}

func (c *Catalog) rect(r io.ReaderAt, obj core.Object) (Rect, error) {
	resolved, err := c.xref.resolve(r, obj)
	if err != nil {
		return Rect{}, err
	}
	arr, ok := resolved.(core.Array)
	if !ok || arr.Len() != 4 {
		return Rect{}, fmt.Errorf("invalid rectangle: %v", resolved)
	}

	var rect Rect
	for i := range rect {
		elem, err := c.xref.resolve(r, arr[i])
		if err != nil {
			return Rect{}, err
		}
		v, ok := number(elem)
		if !ok {
			return Rect{}, fmt.Errorf("invalid rectangle element type: %T", elem)
		}
		rect[i] = v
	}
	return rect.Normalize(), nil
}

func number(obj core.Object) (float64, bool) {
	switch v := obj.(type) {
	case core.Int:
		return float64(v), true
	case core.Real:
		return float64(v), true
	}
	return 0, false
}
