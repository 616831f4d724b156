// Package lexicon defines the read-only object graph contract that the
// publication view and the render pipeline consume.
//
// Objects are referenced by opaque handles. Every object has a class and
// an owner; properties are addressed by field identifiers that are
// resolved once from a class and field name.
package lexicon

import (
	"fmt"
	"strconv"
	"sync"
)

// Handle identifies an object in the graph.
type Handle int64

// NoHandle is the zero handle; no object has it.
const NoHandle Handle = 0

func (h Handle) String() string {
	return strconv.FormatInt(int64(h), 10)
}

// FieldID identifies a property of a class.
type FieldID int

// ClassID identifies an object class.
type ClassID string

// FieldKind describes how a field's value is stored.
type FieldKind int

const (
	// KindString is a single string value.
	KindString FieldKind = iota
	// KindMultiString is a string per writing system.
	KindMultiString
	// KindInt is an integer value.
	KindInt
	// KindBool is a boolean value.
	KindBool
	// KindObject is a reference to a single object.
	KindObject
	// KindVector is an ordered sequence of object references.
	KindVector
	// KindMedia is a path to an audio or image file.
	KindMedia
)

var kindNames = map[FieldKind]string{
	KindString:      "string",
	KindMultiString: "multistring",
	KindInt:         "int",
	KindBool:        "bool",
	KindObject:      "object",
	KindVector:      "vector",
	KindMedia:       "media",
}

func (k FieldKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseFieldKind maps a kind name back to its FieldKind.
func ParseFieldKind(s string) (FieldKind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// MediaType distinguishes the two media field flavours.
type MediaType string

const (
	MediaAudio MediaType = "audio"
	MediaImage MediaType = "image"
)

// FieldInfo describes a resolved field.
type FieldInfo struct {
	ID    FieldID
	Class ClassID
	Name  string
	Kind  FieldKind
	// Dest is the class of referenced objects for object and vector fields.
	Dest ClassID
	// Media is set for KindMedia fields.
	Media MediaType
}

// Value is a scalar field value. Which member is meaningful depends on
// the field kind.
type Value struct {
	Kind  FieldKind
	Str   string            // KindString, KindMedia
	Multi map[string]string // KindMultiString, keyed by writing system
	Int   int               // KindInt
	Bool  bool              // KindBool
	Obj   Handle            // KindObject
}

// Text returns the alternative for ws, or Str for single strings.
func (v Value) Text(ws string) string {
	if v.Kind == KindMultiString {
		return v.Multi[ws]
	}
	return v.Str
}

// Source is the field-access contract of an object graph.
//
// Implementations used by parallel batches must tolerate concurrent reads;
// wrap others with Serialized.
type Source interface {
	// ClassOf returns the class of h.
	ClassOf(h Handle) (ClassID, error)
	// Owner returns the owning object of h, or NoHandle for roots.
	Owner(h Handle) (Handle, error)
	// FieldID resolves a field by class and name.
	FieldID(class ClassID, name string) (FieldID, error)
	// Field describes a resolved field.
	Field(id FieldID) (FieldInfo, error)
	// Fields lists every field the graph knows.
	Fields() []FieldInfo
	// Scalar returns the value of a non-vector field.
	Scalar(h Handle, f FieldID) (Value, error)
	// Vector returns the ordered handles of a vector field.
	Vector(h Handle, f FieldID) ([]Handle, error)
	// Instances returns all objects of a class in storage order.
	Instances(class ClassID) ([]Handle, error)
}

// Serialized guards every call on src with a single lock. Use it for
// sources that cannot serve concurrent readers; fragment construction in
// the pipeline still runs in parallel.
func Serialized(src Source) Source {
	if s, ok := src.(*serialized); ok {
		return s
	}
	return &serialized{src: src}
}

type serialized struct {
	mu  sync.Mutex
	src Source
}

func (s *serialized) ClassOf(h Handle) (ClassID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.ClassOf(h)
}

func (s *serialized) Owner(h Handle) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Owner(h)
}

func (s *serialized) FieldID(class ClassID, name string) (FieldID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.FieldID(class, name)
}

func (s *serialized) Field(id FieldID) (FieldInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Field(id)
}

func (s *serialized) Fields() []FieldInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Fields()
}

func (s *serialized) Scalar(h Handle, f FieldID) (Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Scalar(h, f)
}

func (s *serialized) Vector(h Handle, f FieldID) ([]Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Vector(h, f)
}

func (s *serialized) Instances(class ClassID) ([]Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Instances(class)
}

// OwnedBy reports whether h is owned, directly or transitively, by owner.
func OwnedBy(src Source, h, owner Handle) (bool, error) {
	for cur := h; cur != NoHandle; {
		parent, err := src.Owner(cur)
		if err != nil {
			return false, err
		}
		if parent == owner {
			return true, nil
		}
		cur = parent
	}
	return false, nil
}

// OwningEntry walks up the owner chain of h until it reaches a LexEntry.
// It returns NoHandle when h is not inside an entry.
func OwningEntry(src Source, h Handle) (Handle, error) {
	for cur := h; cur != NoHandle; {
		class, err := src.ClassOf(cur)
		if err != nil {
			return NoHandle, err
		}
		if class == ClassEntry {
			return cur, nil
		}
		if cur, err = src.Owner(cur); err != nil {
			return NoHandle, err
		}
	}
	return NoHandle, nil
}
