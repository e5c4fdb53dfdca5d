package dbus

import "testing"

func TestElementAlignment(t *testing.T) {
	tt := map[Signature]int{
		"y": 1, "g": 1, "v": 1,
		"n": 2, "q": 2,
		"b": 4, "i": 4, "u": 4, "h": 4, "s": 4, "o": 4,
		"x": 8, "t": 8, "d": 8,
		"(ii)": 8, "{si}": 8,
		"ai": 4,
	}
	for sig, want := range tt {
		if got := elementAlignment(sig); got != want {
			t.Errorf("elementAlignment(%q) = %d, want %d", sig, got, want)
		}
	}
}

func TestValueSignatures(t *testing.T) {
	tt := map[string]struct {
		v    Value
		want Signature
	}{
		"byte":        {Byte(1), "y"},
		"bool":        {Bool(true), "b"},
		"int16":       {Int16(-1), "n"},
		"uint16":      {Uint16(1), "q"},
		"int32":       {Int32(-1), "i"},
		"uint32":      {Uint32(1), "u"},
		"int64":       {Int64(-1), "x"},
		"uint64":      {Uint64(1), "t"},
		"float64":     {Float64(1.5), "d"},
		"string":      {String("s"), "s"},
		"objectpath":  {ObjectPath("/a"), "o"},
		"signature":   {SignatureValue("i"), "g"},
		"unixfd":      {UnixFD(0), "h"},
		"struct":      {NewStruct(Byte(1), String("x")), "(ys)"},
		"array":       {NewArray("i", Int32(1), Int32(2)), "ai"},
		"dictentry":   {NewDictEntry(String("k"), Int32(1)), "{si}"},
		"variant":     {NewVariant(Int32(1)), "v"},
		"emptyArray":  {NewArray("s"), "as"},
	}
	for name, tc := range tt {
		t.Run(name, func(t *testing.T) {
			if got := tc.v.Signature(); got != tc.want {
				t.Errorf("Signature() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewStructPanicsOnEmpty(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewStruct([]) did not panic")
		}
	}()
	NewStruct()
}

func TestNewDictEntryPanicsOnNonBasicKey(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewDictEntry with non-basic key did not panic")
		}
	}()
	NewDictEntry(NewStruct(Byte(1)), Int32(1))
}

func TestNewDictEntryPanicsOnDictEntryValue(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewDictEntry with dict-entry value did not panic")
		}
	}()
	inner := NewDictEntry(String("k"), Int32(1))
	NewDictEntry(String("k2"), inner)
}

func TestNewVariantPanicsOnNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewVariant(nil) did not panic")
		}
	}()
	NewVariant(nil)
}
