package wire

// SizeHint holds the static facts about a type's wire footprint.
type SizeHint struct {
	// Variable is true when the encoded size depends on the value.
	Variable bool
	// Footprint is the number of bytes always present, even for a variably
	// sized value (for example a length prefix).
	Footprint int
	// PrefixWidth is the part of Footprint that is a length prefix or
	// presence flag and is omitted when a count is supplied externally.
	PrefixWidth int
}

// Static is the hint of a type that always occupies n bytes.
func Static(n int) SizeHint { return SizeHint{Footprint: n} }

// Prefixed is the hint of a variably sized type led by a w-byte prefix.
func Prefixed(w int) SizeHint {
	return SizeHint{Variable: true, Footprint: w, PrefixWidth: w}
}

// Seq combines member hints in declaration order. The result is variable iff
// any member is; the footprint sums members up to and including the first
// variable one, because later offsets are unknown.
func Seq(members ...SizeHint) SizeHint {
	var h SizeHint
	for _, m := range members {
		h.Footprint += m.Footprint
		if m.Variable {
			h.Variable = true
			break
		}
	}
	return h
}

// Alt combines a discriminant with the hints of the variants it selects.
// The selected footprint is only static when every variant is static and
// they all agree on size.
func Alt(disc SizeHint, variants ...SizeHint) SizeHint {
	h := SizeHint{Footprint: disc.Footprint, Variable: disc.Variable}
	if len(variants) == 0 {
		return h
	}
	first := variants[0].Footprint
	for _, v := range variants {
		if v.Variable || v.Footprint != first {
			h.Variable = true
		}
	}
	if !h.Variable {
		h.Footprint += first
	}
	return h
}
