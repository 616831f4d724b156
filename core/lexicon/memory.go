package lexicon

import (
	"fmt"
	"sort"
	"sync"

	"github.com/FocuswithJustin/lexpub/core/errors"
)

// Memory is an in-memory Source. It is safe for concurrent readers and
// may be edited between batches.
type Memory struct {
	mu      sync.RWMutex
	next    Handle
	classes map[Handle]ClassID
	owners  map[Handle]Handle
	order   map[ClassID][]Handle

	fields     []FieldInfo
	fieldIndex map[ClassID]map[string]FieldID

	scalars map[fieldKey]Value
	vectors map[fieldKey][]Handle
}

type fieldKey struct {
	h Handle
	f FieldID
}

// NewMemory returns an empty graph.
func NewMemory() *Memory {
	return &Memory{
		next:       1,
		classes:    make(map[Handle]ClassID),
		owners:     make(map[Handle]Handle),
		order:      make(map[ClassID][]Handle),
		fieldIndex: make(map[ClassID]map[string]FieldID),
		scalars:    make(map[fieldKey]Value),
		vectors:    make(map[fieldKey][]Handle),
	}
}

// DefineField registers a field and returns its id. Defining the same
// class and name twice returns the existing id.
func (m *Memory) DefineField(class ClassID, name string, kind FieldKind, dest ClassID) FieldID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defineLocked(FieldInfo{Class: class, Name: name, Kind: kind, Dest: dest})
}

// DefineMedia registers a media field.
func (m *Memory) DefineMedia(class ClassID, name string, media MediaType) FieldID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defineLocked(FieldInfo{Class: class, Name: name, Kind: KindMedia, Media: media})
}

func (m *Memory) defineLocked(info FieldInfo) FieldID {
	byName, ok := m.fieldIndex[info.Class]
	if !ok {
		byName = make(map[string]FieldID)
		m.fieldIndex[info.Class] = byName
	}
	if id, ok := byName[info.Name]; ok {
		return id
	}
	info.ID = FieldID(len(m.fields) + 1)
	m.fields = append(m.fields, info)
	byName[info.Name] = info.ID
	return info.ID
}

// NewObject creates an object of class owned by owner.
func (m *Memory) NewObject(class ClassID, owner Handle) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.next
	m.next++
	m.classes[h] = class
	m.owners[h] = owner
	m.order[class] = append(m.order[class], h)
	return h
}

// Set stores a scalar value. The value kind must match the field.
func (m *Memory) Set(h Handle, f FieldID, v Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, err := m.fieldLocked(f)
	if err != nil {
		return err
	}
	if info.Kind == KindVector {
		return errors.NewValidation(info.Name, "vector field cannot hold a scalar")
	}
	v.Kind = info.Kind
	m.scalars[fieldKey{h, f}] = v
	return nil
}

// SetString is a convenience for string and media fields.
func (m *Memory) SetString(h Handle, f FieldID, s string) error {
	return m.Set(h, f, Value{Str: s})
}

// SetMulti stores one writing-system alternative of a multi-string field.
func (m *Memory) SetMulti(h Handle, f FieldID, ws, s string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := fieldKey{h, f}
	v := m.scalars[k]
	if v.Multi == nil {
		v.Multi = make(map[string]string)
	}
	v.Kind = KindMultiString
	v.Multi[ws] = s
	m.scalars[k] = v
	return nil
}

// SetInt stores an integer field.
func (m *Memory) SetInt(h Handle, f FieldID, n int) error {
	return m.Set(h, f, Value{Int: n})
}

// SetObject stores an atomic reference.
func (m *Memory) SetObject(h Handle, f FieldID, target Handle) error {
	return m.Set(h, f, Value{Obj: target})
}

// Append adds targets to the end of a vector field.
func (m *Memory) Append(h Handle, f FieldID, targets ...Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := fieldKey{h, f}
	m.vectors[k] = append(m.vectors[k], targets...)
}

// Remove deletes target from a vector field.
func (m *Memory) Remove(h Handle, f FieldID, target Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := fieldKey{h, f}
	vec := m.vectors[k]
	out := vec[:0]
	for _, t := range vec {
		if t != target {
			out = append(out, t)
		}
	}
	m.vectors[k] = out
}

// ClassOf implements Source.
func (m *Memory) ClassOf(h Handle) (ClassID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.classes[h]
	if !ok {
		return "", errors.NewNotFound("object", h.String())
	}
	return c, nil
}

// Owner implements Source.
func (m *Memory) Owner(h Handle) (Handle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.owners[h]
	if !ok {
		return NoHandle, errors.NewNotFound("object", h.String())
	}
	return o, nil
}

// FieldID implements Source.
func (m *Memory) FieldID(class ClassID, name string) (FieldID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.fieldIndex[class][name]; ok {
		return id, nil
	}
	return 0, errors.NewNotFound("field", fmt.Sprintf("%s.%s", class, name))
}

// Field implements Source.
func (m *Memory) Field(id FieldID) (FieldInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fieldLocked(id)
}

func (m *Memory) fieldLocked(id FieldID) (FieldInfo, error) {
	if id < 1 || int(id) > len(m.fields) {
		return FieldInfo{}, errors.NewNotFound("field", fmt.Sprintf("#%d", id))
	}
	return m.fields[id-1], nil
}

// Fields implements Source.
func (m *Memory) Fields() []FieldInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]FieldInfo, len(m.fields))
	copy(out, m.fields)
	return out
}

// Scalar implements Source. Unset fields return the zero value of their kind.
func (m *Memory) Scalar(h Handle, f FieldID) (Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, err := m.fieldLocked(f)
	if err != nil {
		return Value{}, err
	}
	if _, ok := m.classes[h]; !ok {
		return Value{}, errors.NewNotFound("object", h.String())
	}
	v, ok := m.scalars[fieldKey{h, f}]
	if !ok {
		return Value{Kind: info.Kind}, nil
	}
	if v.Multi != nil {
		multi := make(map[string]string, len(v.Multi))
		for ws, s := range v.Multi {
			multi[ws] = s
		}
		v.Multi = multi
	}
	return v, nil
}

// Vector implements Source. The returned slice is a copy.
func (m *Memory) Vector(h Handle, f FieldID) ([]Handle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, err := m.fieldLocked(f); err != nil {
		return nil, err
	}
	if _, ok := m.classes[h]; !ok {
		return nil, errors.NewNotFound("object", h.String())
	}
	vec := m.vectors[fieldKey{h, f}]
	out := make([]Handle, len(vec))
	copy(out, vec)
	return out, nil
}

// Instances implements Source.
func (m *Memory) Instances(class ClassID) ([]Handle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Handle, len(m.order[class]))
	copy(out, m.order[class])
	return out, nil
}

// Classes lists the classes that have at least one object, sorted.
func (m *Memory) Classes() []ClassID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ClassID, 0, len(m.order))
	for c := range m.order {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
