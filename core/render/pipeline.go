package render

import (
	"sort"
	"strconv"

	"github.com/FocuswithJustin/lexpub/core/cache"
	"github.com/FocuswithJustin/lexpub/core/config"
	"github.com/FocuswithJustin/lexpub/core/encoding"
	"github.com/FocuswithJustin/lexpub/core/errors"
	"github.com/FocuswithJustin/lexpub/core/lexicon"
	"github.com/FocuswithJustin/lexpub/core/publication"
	"github.com/FocuswithJustin/lexpub/internal/logging"
)

// Virtual fields computed by the pipeline rather than read from the graph.
const (
	fieldHeadWord   = lexicon.FieldHeadWord
	fieldMLHeadWord = lexicon.FieldMLHeadWord
)

type fieldKey struct {
	class lexicon.ClassID
	name  string
}

// FieldCache memoizes field resolution; one cache can serve every
// pipeline of a batch.
type FieldCache = cache.LRU[fieldKey, lexicon.FieldID]

// NewFieldCache returns an empty field cache.
func NewFieldCache() *FieldCache {
	return cache.New[fieldKey, lexicon.FieldID](1024)
}

// Pipeline renders entries of one publication view into one backend. A
// Pipeline is not safe for concurrent use; batches give each worker its own.
type Pipeline struct {
	view    *publication.View
	backend Backend
	fields  *FieldCache
	abbrevs map[string]string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFieldCache shares a field cache between pipelines.
func WithFieldCache(c *FieldCache) Option {
	return func(p *Pipeline) { p.fields = c }
}

// WithAbbreviations sets the writing-system abbreviations shown when a
// node asks for them. Writing systems without an entry show their id.
func WithAbbreviations(abbrevs map[string]string) Option {
	return func(p *Pipeline) { p.abbrevs = abbrevs }
}

// NewPipeline returns a pipeline reading through view and writing to backend.
func NewPipeline(view *publication.View, backend Backend, opts ...Option) *Pipeline {
	p := &Pipeline{view: view, backend: backend}
	for _, opt := range opts {
		opt(p)
	}
	if p.fields == nil {
		p.fields = NewFieldCache()
	}
	return p
}

// Backend returns the pipeline's backend.
func (p *Pipeline) Backend() Backend { return p.backend }

// scope is the object being rendered and how the walk reached it.
type scope struct {
	obj lexicon.Handle
	// referrer is the object whose vector produced obj; lexical reference
	// targets skip it.
	referrer lexicon.Handle
	// senseNumber is the full number of the enclosing sense.
	senseNumber string
}

// RenderEntry renders one entry under root and brackets it as an entry.
// Configuration problems are logged and skip their node; values that
// cannot be rendered become error markers. The returned error reports a
// failure of the object source.
func (p *Pipeline) RenderEntry(entry lexicon.Handle, root *config.Node) (Fragment, error) {
	content, err := p.RenderContent(entry, root)
	if err != nil {
		return nil, err
	}
	hw, err := p.view.HeadwordText(entry, "")
	if err != nil {
		return nil, err
	}
	return p.backend.Entry(EntryMeta{Handle: entry, Class: root.ClassName(), Headword: hw}, content), nil
}

// RenderContent renders the children of root for entry without the entry
// bracket.
func (p *Pipeline) RenderContent(entry lexicon.Handle, root *config.Node) (Fragment, error) {
	return p.children(scope{obj: entry}, root)
}

func (p *Pipeline) children(sc scope, node *config.Node) (Fragment, error) {
	parts := make([]Fragment, 0, len(node.Children))
	for _, child := range node.Children {
		f, err := p.node(sc, child)
		if err != nil {
			return nil, err
		}
		if !f.IsEmpty() {
			parts = append(parts, f)
		}
	}
	if len(parts) == 0 {
		return p.backend.Empty(), nil
	}
	return p.backend.Join(parts...), nil
}

func (p *Pipeline) node(sc scope, node *config.Node) (Fragment, error) {
	if !node.Enabled() {
		return p.backend.Empty(), nil
	}
	if node.IsGroup() {
		content, err := p.children(sc, node)
		if err != nil || content.IsEmpty() {
			return content, err
		}
		return p.backend.Object(node, content), nil
	}

	class, err := p.view.ClassOf(sc.obj)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return p.dataError(node, errors.NewData(int64(sc.obj), node.Field, "unresolvable object")), nil
		}
		return nil, err
	}

	switch node.Field {
	case fieldHeadWord:
		return p.headword(sc, node, false)
	case fieldMLHeadWord:
		return p.headword(sc, node, true)
	case config.FieldOwnerType:
		return p.ownerType(sc, node)
	}

	fid, err := p.field(class, node.Field)
	if err != nil {
		logging.ConfigProblem(node.Path(), string(class), err)
		return p.backend.Empty(), nil
	}
	info, err := p.view.Field(fid)
	if err != nil {
		return nil, err
	}

	switch info.Kind {
	case lexicon.KindVector:
		return p.vector(sc, node, info)
	case lexicon.KindObject:
		return p.object(sc, node, info)
	case lexicon.KindMedia:
		return p.media(sc, node, info)
	default:
		val, err := p.view.Scalar(sc.obj, fid)
		if err != nil {
			return nil, err
		}
		return p.scalar(sc, node, info, val), nil
	}
}

func (p *Pipeline) field(class lexicon.ClassID, name string) (lexicon.FieldID, error) {
	return p.fields.GetOrLoad(fieldKey{class, name}, func(k fieldKey) (lexicon.FieldID, error) {
		id, err := p.view.FieldID(k.class, k.name)
		if err != nil {
			return 0, &errors.ConfigError{Node: k.name, Class: string(k.class), Message: "no such field", Err: err}
		}
		return id, nil
	})
}

func (p *Pipeline) dataError(node *config.Node, err error) Fragment {
	return p.backend.Error(node, encoding.SanitizeDiagnostic(err.Error()))
}

// scalar renders string, multi-string, integer and boolean values.
func (p *Pipeline) scalar(sc scope, node *config.Node, info lexicon.FieldInfo, val lexicon.Value) Fragment {
	var values []Fragment
	switch info.Kind {
	case lexicon.KindString:
		if val.Str != "" {
			values = append(values, p.run(sc, node, info, "", val.Str))
		}
	case lexicon.KindMultiString:
		for _, ws := range p.writingSystems(node, val) {
			if text := val.Multi[ws]; text != "" {
				values = append(values, p.run(sc, node, info, ws, text))
			}
		}
	case lexicon.KindInt:
		if val.Int != 0 {
			values = append(values, p.run(sc, node, info, "", strconv.Itoa(val.Int)))
		}
	case lexicon.KindBool:
		if val.Bool {
			values = append(values, p.run(sc, node, info, "", node.Label))
		}
	}
	if len(values) == 0 {
		return p.backend.Empty()
	}
	return p.backend.Property(node, values)
}

// run validates text and returns a run or an error marker.
func (p *Pipeline) run(sc scope, node *config.Node, info lexicon.FieldInfo, ws, text string) Fragment {
	if err := encoding.ValidText(text); err != nil {
		return p.dataError(node, errors.NewData(int64(sc.obj), info.Name, err.Error()))
	}
	return p.backend.Run(Run{WS: ws, Abbrev: p.abbrev(node, ws), Text: text, Style: node.Style})
}

func (p *Pipeline) abbrev(node *config.Node, ws string) string {
	if ws == "" || node.WritingSystems == nil || !node.WritingSystems.DisplayAbbreviation {
		return ""
	}
	if a, ok := p.abbrevs[ws]; ok {
		return a
	}
	return ws
}

// writingSystems returns the alternatives to render: the node's enabled
// writing systems, else the view's, else every alternative in id order.
func (p *Pipeline) writingSystems(node *config.Node, val lexicon.Value) []string {
	if enabled := node.WritingSystems.Enabled(); len(enabled) > 0 {
		return enabled
	}
	if ws := p.view.WritingSystem(); ws != "" {
		return []string{ws}
	}
	all := make([]string, 0, len(val.Multi))
	for ws := range val.Multi {
		all = append(all, ws)
	}
	sort.Strings(all)
	return all
}

// headword renders the publication headword of the entry owning sc.obj.
// The multilingual form renders one value per enabled writing system.
func (p *Pipeline) headword(sc scope, node *config.Node, multi bool) (Fragment, error) {
	entry, err := lexicon.OwningEntry(p.view, sc.obj)
	if err != nil {
		return nil, err
	}
	if entry == lexicon.NoHandle {
		return p.dataError(node, errors.NewData(int64(sc.obj), node.Field, "object is not inside an entry")), nil
	}
	wss := []string{p.view.WritingSystem()}
	if multi {
		if enabled := node.WritingSystems.Enabled(); len(enabled) > 0 {
			wss = enabled
		}
	}
	info := lexicon.FieldInfo{Name: node.Field}
	var values []Fragment
	for _, ws := range wss {
		text, err := p.view.HeadwordText(entry, ws)
		if err != nil {
			return nil, err
		}
		if text != "" {
			values = append(values, p.run(sc, node, info, ws, text))
		}
	}
	if len(values) == 0 {
		return p.backend.Empty(), nil
	}
	return p.backend.Property(node, values), nil
}

// ownerType renders a string field of the object owning sc.obj, such as
// the relation type of a lexical reference.
func (p *Pipeline) ownerType(sc scope, node *config.Node) (Fragment, error) {
	owner, err := p.view.Owner(sc.obj)
	if err != nil {
		return nil, err
	}
	if owner == lexicon.NoHandle || node.SubField == "" {
		return p.backend.Empty(), nil
	}
	return p.subField(scope{obj: owner}, node)
}

// subField renders node.SubField of sc.obj as a scalar.
func (p *Pipeline) subField(sc scope, node *config.Node) (Fragment, error) {
	class, err := p.view.ClassOf(sc.obj)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return p.dataError(node, errors.NewData(int64(sc.obj), node.SubField, "unresolvable object")), nil
		}
		return nil, err
	}
	fid, err := p.field(class, node.SubField)
	if err != nil {
		logging.ConfigProblem(node.Path(), string(class), err)
		return p.backend.Empty(), nil
	}
	info, err := p.view.Field(fid)
	if err != nil {
		return nil, err
	}
	val, err := p.view.Scalar(sc.obj, fid)
	if err != nil {
		return nil, err
	}
	return p.scalar(sc, node, info, val), nil
}

func (p *Pipeline) object(sc scope, node *config.Node, info lexicon.FieldInfo) (Fragment, error) {
	val, err := p.view.Scalar(sc.obj, info.ID)
	if err != nil {
		return nil, err
	}
	target := val.Obj
	if target == lexicon.NoHandle || !p.view.IsVisible(target) {
		return p.backend.Empty(), nil
	}
	if node.SubField != "" {
		return p.subField(scope{obj: target, referrer: sc.obj}, node)
	}
	content, err := p.children(scope{obj: target, referrer: sc.obj, senseNumber: sc.senseNumber}, node)
	if err != nil || content.IsEmpty() {
		return content, err
	}
	content, err = p.linkIfReferenced(sc.obj, target, content)
	if err != nil {
		return nil, err
	}
	return p.backend.Object(node, content), nil
}

func (p *Pipeline) media(sc scope, node *config.Node, info lexicon.FieldInfo) (Fragment, error) {
	val, err := p.view.Scalar(sc.obj, info.ID)
	if err != nil {
		return nil, err
	}
	if val.Str == "" {
		return p.backend.Empty(), nil
	}
	if err := encoding.ValidText(val.Str); err != nil {
		return p.dataError(node, errors.NewData(int64(sc.obj), info.Name, err.Error())), nil
	}
	m := Media{ID: AnchorID(sc.obj) + "-" + node.ClassName(), Path: val.Str}
	if info.Media == lexicon.MediaAudio {
		return p.backend.Audio(m), nil
	}
	return p.backend.Image(m), nil
}

// linkIfReferenced wraps content in a link when target is not owned by
// from, i.e. when the walk followed a reference rather than ownership.
func (p *Pipeline) linkIfReferenced(from, target lexicon.Handle, content Fragment) (Fragment, error) {
	owner, err := p.view.Owner(target)
	if err != nil {
		return nil, err
	}
	if owner == from {
		return content, nil
	}
	return p.backend.Link(target, content), nil
}
