package types

import "strings"

// Type represents a type in the TML type system.
type Type interface {
	String() string
	// IsType is a marker method to ensure type safety.
	IsType()
}

// PrimitiveKind represents the kind of a primitive type. The full set
// spans {I8..I128, U8..U128, F32, F64, Bool, Char, Str, Unit}.
type PrimitiveKind string

const (
	I8   PrimitiveKind = "i8"
	I16  PrimitiveKind = "i16"
	I32  PrimitiveKind = "i32"
	I64  PrimitiveKind = "i64"
	I128 PrimitiveKind = "i128"
	U8   PrimitiveKind = "u8"
	U16  PrimitiveKind = "u16"
	U32  PrimitiveKind = "u32"
	U64  PrimitiveKind = "u64"
	U128 PrimitiveKind = "u128"
	F32  PrimitiveKind = "f32"
	F64  PrimitiveKind = "f64"
	Bool PrimitiveKind = "bool"
	Char PrimitiveKind = "char"
	Str  PrimitiveKind = "str"
	Unit PrimitiveKind = "unit"
)

// Legacy aliases kept so earlier-authored passes (the checker's untyped
// literal defaulting, generic inference plumbing) keep compiling against a
// single "the" integer/float/string kind. They resolve to the IR-facing
// kind that a bare `42`, `3.14`, or `"s"` literal defaults to before any
// suffix or contextual type is applied.
var (
	Int    = I64
	Float  = F64
	String = Str
	Void   = Unit
	Nil    = Unit
)

// IsInteger reports whether k is one of the signed/unsigned integer kinds.
func (k PrimitiveKind) IsInteger() bool {
	switch k {
	case I8, I16, I32, I64, I128, U8, U16, U32, U64, U128:
		return true
	}
	return false
}

// IsSigned reports whether k is a signed integer kind.
func (k PrimitiveKind) IsSigned() bool {
	switch k {
	case I8, I16, I32, I64, I128:
		return true
	}
	return false
}

// IsFloat reports whether k is a floating point kind.
func (k PrimitiveKind) IsFloat() bool { return k == F32 || k == F64 }

// BitWidth returns the storage width in bits for integer/float/bool kinds.
func (k PrimitiveKind) BitWidth() int {
	switch k {
	case I8, U8:
		return 8
	case I16, U16:
		return 16
	case I32, U32, F32:
		return 32
	case I64, U64, F64:
		return 64
	case I128, U128:
		return 128
	case Bool:
		return 1
	case Char:
		return 32
	}
	return 0
}

// Primitive represents a primitive type.
type Primitive struct {
	Kind PrimitiveKind
}

func (p *Primitive) String() string { return string(p.Kind) }
func (p *Primitive) IsType()        {}

// Common primitive instances
var (
	TypeI8     = &Primitive{Kind: I8}
	TypeI16    = &Primitive{Kind: I16}
	TypeI32    = &Primitive{Kind: I32}
	TypeI64    = &Primitive{Kind: I64}
	TypeI128   = &Primitive{Kind: I128}
	TypeU8     = &Primitive{Kind: U8}
	TypeU16    = &Primitive{Kind: U16}
	TypeU32    = &Primitive{Kind: U32}
	TypeU64    = &Primitive{Kind: U64}
	TypeU128   = &Primitive{Kind: U128}
	TypeF32    = &Primitive{Kind: F32}
	TypeF64    = &Primitive{Kind: F64}
	TypeChar   = &Primitive{Kind: Char}
	TypeUnit   = &Primitive{Kind: Unit}
	TypeInt    = &Primitive{Kind: Int}
	TypeFloat  = &Primitive{Kind: Float}
	TypeBool   = &Primitive{Kind: Bool}
	TypeString = &Primitive{Kind: String}
	TypeNil    = &Primitive{Kind: Nil}
	TypeVoid   = &Primitive{Kind: Void}
)

// Struct represents a struct type.
type Struct struct {
	Name       string
	TypeParams []TypeParam
	Fields     []Field
}

type Field struct {
	Name string
	Type Type
}

func (s *Struct) String() string { return s.Name }
func (s *Struct) IsType()        {}

// Enum represents an enum type.
type Enum struct {
	Name       string
	TypeParams []TypeParam
	Variants   []Variant
}

type Variant struct {
	Name    string
	Payload []Type // Can be empty for unit variants
}

func (e *Enum) String() string { return e.Name }
func (e *Enum) IsType()        {}

// Function represents a function type.
type Function struct {
	TypeParams []TypeParam
	Params     []Type
	Return     Type
	Receiver   *ReceiverType
	Unsafe     bool
}

// ReceiverType describes a method's `self` parameter.
type ReceiverType struct {
	IsMutable bool
	Type      Type
}

func (f *Function) String() string {
	var params []string
	for _, p := range f.Params {
		params = append(params, p.String())
	}
	ret := "void"
	if f.Return != nil {
		ret = f.Return.String()
	}
	return "fn(" + strings.Join(params, ", ") + ") -> " + ret
}
func (f *Function) IsType() {}

// Channel represents a channel type.
type Channel struct {
	Elem Type
	Dir  ChanDir
}

type ChanDir int

const (
	SendRecv ChanDir = iota
	SendOnly
	RecvOnly
)

func (c *Channel) String() string {
	switch c.Dir {
	case SendOnly:
		return "chan<- " + c.Elem.String()
	case RecvOnly:
		return "<-chan " + c.Elem.String()
	default:
		return "chan " + c.Elem.String()
	}
}
func (c *Channel) IsType() {}

// Named represents a reference to a named type (like a struct or enum)
// that hasn't been fully resolved or is just a reference.
type Named struct {
	Name       string
	ModulePath string
	TypeArgs   []Type
	Ref        Type // The actual type it refers to, if resolved
}

func (n *Named) String() string {
	if len(n.TypeArgs) == 0 {
		return n.Name
	}
	var args []string
	for _, a := range n.TypeArgs {
		args = append(args, a.String())
	}
	return n.Name + "[" + strings.Join(args, ", ") + "]"
}
func (n *Named) IsType() {}

// Reference is a borrowed view of another value: `&T` or `&mut T`.
type Reference struct {
	Mutable  bool
	Elem     Type
	Lifetime string // empty when elided/inferred
}

func (r *Reference) String() string {
	if r.Mutable {
		return "&mut " + r.Elem.String()
	}
	return "&" + r.Elem.String()
}
func (r *Reference) IsType() {}

// Pointer is a raw pointer. Never Send/Sync.
type Pointer struct {
	Inner Type
}

func (p *Pointer) String() string { return "*" + p.Inner.String() }
func (p *Pointer) IsType()        {}

// Optional is TML's `T?` maybe-type, lowered to a tagged {bool, T} pair.
type Optional struct {
	Elem Type
}

func (o *Optional) String() string { return o.Elem.String() + "?" }
func (o *Optional) IsType()        {}

// Tuple is an ordered, fixed-arity product type.
type Tuple struct {
	Elements []Type
}

func (t *Tuple) String() string {
	var parts []string
	for _, e := range t.Elements {
		parts = append(parts, e.String())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
func (t *Tuple) IsType() {}

// Array is a fixed-length, value-owning sequence: `[T; N]`.
type Array struct {
	Elem Type
	Len  int64
}

func (a *Array) String() string {
	return "[" + a.Elem.String() + "; " + itoa(a.Len) + "]"
}
func (a *Array) IsType() {}

// Slice is a non-owning fat-pointer view over a contiguous run of T: `[]T`.
type Slice struct {
	Elem Type
}

func (s *Slice) String() string { return "[]" + s.Elem.String() }
func (s *Slice) IsType()        {}

// Closure is a captured function value: `fn(params) -> return` plus its
// capture list, in first-seen order.
type Closure struct {
	Params   []Type
	Return   Type
	Captures []Capture
}

type Capture struct {
	Name  string
	Type  Type
	IsMut bool
}

func (c *Closure) String() string {
	var params []string
	for _, p := range c.Params {
		params = append(params, p.String())
	}
	ret := "unit"
	if c.Return != nil {
		ret = c.Return.String()
	}
	return "closure(" + strings.Join(params, ", ") + ") -> " + ret
}
func (c *Closure) IsType() {}

// Class is a nominal, single-inheritance reference type with a vtable
// pointer occupying field slot 0.
type Class struct {
	Name string
	Def  *ClassDef // nil until registry resolution completes
}

func (c *Class) String() string { return c.Name }
func (c *Class) IsType()        {}

// ClassField describes one field of a ClassDef, including inheritance
// bookkeeping used to disambiguate shadowed names.
type ClassField struct {
	Name            string
	Type            Type
	IsStatic        bool
	IsInherited     bool
	InheritancePath []string
}

// ClassMethodSig describes one method slot of a class.
type ClassMethodSig struct {
	Name       string
	Params     []Type
	Return     Type
	IsStatic   bool
	IsVirtual  bool
	VtableSlot int // -1 when not dispatched through a vtable
}

// ClassDef is the registry-resident definition of a class.
// Slot 0 of the runtime layout is always the vtable pointer; subsequent
// slots follow declaration order with overridden methods keeping the slot
// of their first declaration along the inheritance chain.
type ClassDef struct {
	Name       string
	Base       *string
	Fields     []ClassField
	Methods    []ClassMethodSig
	Implements []string
}

// DynBehavior is a trait object: a fat pointer {data_ptr, vtable_ptr} for
// one or more behaviors ("dyn B").
type DynBehavior struct {
	Behaviors []string
}

func (d *DynBehavior) String() string { return "dyn " + strings.Join(d.Behaviors, " + ") }
func (d *DynBehavior) IsType()        {}

// Interface is an abstract reference type implemented by classes (distinct
// from a dyn-behavior trait object, which is implemented by any type).
type Interface struct {
	Name string
}

func (i *Interface) String() string { return i.Name }
func (i *Interface) IsType()        {}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
