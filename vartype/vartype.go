// Package vartype implements the schema system described in spec.md §4.4:
// primitive types with intrinsic wire sizes, and user-defined struct/enum
// types whose members come from a MemberEmitter.
package vartype

import "faraabin/fobject"

// PrimitiveID enumerates the fixed primitive wire types (spec.md §3).
type PrimitiveID uint8

const (
	Bool PrimitiveID = iota
	U8
	I8
	U16
	I16
	U32
	I32
	U64
	I64
	F32
	F64
)

// Size returns the intrinsic wire size in bytes of a primitive type.
func (p PrimitiveID) Size() int {
	switch p {
	case Bool, U8, I8:
		return 1
	case U16, I16:
		return 2
	case U32, I32, F32:
		return 4
	case U64, I64, F64:
		return 8
	default:
		return 0
	}
}

// Signed reports whether p's wire representation is a two's-complement
// signed integer (used by DataBus trigger threshold interpretation).
func (p PrimitiveID) Signed() bool {
	switch p {
	case I8, I16, I32, I64:
		return true
	default:
		return false
	}
}

// Float reports whether p is a floating-point primitive.
func (p PrimitiveID) Float() bool { return p == F32 || p == F64 }

// Variant distinguishes the four VarType shapes (spec.md §3).
type Variant uint8

const (
	VariantPrimitive Variant = iota
	VariantUserStruct
	VariantUserEnum
	VariantUserUnion // reserved; enumerated as a struct
)

// StructMember describes one field of a UserStruct (spec.md §3, §4.4).
type StructMember struct {
	Name      string
	TypeHandle fobject.Handle
	ArrayLen  int
	IsPtr     bool
}

// EnumMember describes one value of a UserEnum (spec.md §3, §4.4).
type EnumMember struct {
	Name string
	ID   uint16
}

// MemberEmitter supplies a user type's members in declaration order; it is
// the Go-idiomatic replacement (spec.md §9) for the source's raw
// function-pointer member enumerator. Neither this package nor
// faraabin/dict calls it during dictionary emission.
type MemberEmitter interface {
	// StructMembers and EnumMembers are called according to Variant; a
	// type only implements the one relevant to its own Variant, but both
	// are on the interface so a single user type can be both if it ever
	// needs to (VarType Variant still picks which is authoritative).
	StructMembers() []StructMember
	EnumMembers() []EnumMember
}

// VarType is a registered type schema (a KindVarType fobject's payload).
type VarType struct {
	Fobject fobject.Fobject

	Variant   Variant
	Primitive PrimitiveID // valid iff Variant == VariantPrimitive

	// Emitter supplies struct/enum members for user-defined types. Nil
	// for primitives.
	Emitter MemberEmitter

	// DeclaredSize is authoritative for user-defined types (spec.md §3:
	// "user-defined size is the declared size").
	DeclaredSize int
}

// Size returns the wire size of v: intrinsic for primitives, declared for
// user types.
func (v *VarType) Size() int {
	if v.Variant == VariantPrimitive {
		return v.Primitive.Size()
	}
	return v.DeclaredSize
}

// NewPrimitive constructs the VarType wrapper for a primitive id. The
// registry pre-registers one of these per PrimitiveID at init (spec.md §3
// global lifecycle step 2: "primitive vartypes registered").
func NewPrimitive(handle fobject.Handle, id PrimitiveID, name string) *VarType {
	return &VarType{
		Fobject: fobject.Fobject{
			Kind:        fobject.KindVarType,
			Handle:      handle,
			Initialized: true,
			Enabled:     true,
			Name:        name,
			Path:        "root",
		},
		Variant:   VariantPrimitive,
		Primitive: id,
	}
}

// NewUserStruct constructs a user-defined struct/union VarType. path
// defaults to "root" per spec.md §4.4 when the application supplies none.
func NewUserStruct(handle fobject.Handle, name, path string, size int, emitter MemberEmitter) *VarType {
	if path == "" {
		path = "root"
	}
	return &VarType{
		Fobject: fobject.Fobject{
			Kind:        fobject.KindVarType,
			Handle:      handle,
			Initialized: true,
			Enabled:     true,
			Name:        name,
			Path:        path,
		},
		Variant:      VariantUserStruct,
		Emitter:      emitter,
		DeclaredSize: size,
	}
}

// NewUserEnum constructs a user-defined enum VarType.
func NewUserEnum(handle fobject.Handle, name, path string, size int, emitter MemberEmitter) *VarType {
	if path == "" {
		path = "root"
	}
	return &VarType{
		Fobject: fobject.Fobject{
			Kind:        fobject.KindVarType,
			Handle:      handle,
			Initialized: true,
			Enabled:     true,
			Name:        name,
			Path:        path,
		},
		Variant:      VariantUserEnum,
		Emitter:      emitter,
		DeclaredSize: size,
	}
}

// DictEntry is the variable-dictionary entry described in spec.md §3.
type DictEntry struct {
	TypeHandle        fobject.Handle
	ValueAddr         []byte // direct backing, when ExternalIface is nil
	ArrayLen          int
	AccessCb          func(write bool)
	ExternalIface     ExternalInterface
	IsPtr             bool
	Name, Path, File  string
}

// ExternalInterface lets a dict entry's value live outside the process's
// own address space (remote/indirect storage), per spec.md §3.
type ExternalInterface interface {
	Read() []byte
	Write([]byte)
}

// Bytes returns the current value bytes, invoking AccessCb as an observer
// first (spec.md §3: "access_cb is an observer called on every read/write").
func (e *DictEntry) Bytes() []byte {
	if e.AccessCb != nil {
		e.AccessCb(false)
	}
	if e.ExternalIface != nil {
		return e.ExternalIface.Read()
	}
	return e.ValueAddr
}

// SetBytes writes v into the entry's backing storage.
func (e *DictEntry) SetBytes(v []byte) {
	if e.AccessCb != nil {
		e.AccessCb(true)
	}
	if e.ExternalIface != nil {
		e.ExternalIface.Write(v)
		return
	}
	copy(e.ValueAddr, v)
}
