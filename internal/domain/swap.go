package domain

// SwapDirection selects which side of the pool is pulled in and which is
// pushed out.
type SwapDirection string

const (
	// SwapAToB pulls token A from the caller and pushes token B out.
	SwapAToB SwapDirection = "a_to_b"
	// SwapBToA pulls token B from the caller and pushes token A out.
	SwapBToA SwapDirection = "b_to_a"
)

// Valid reports whether d is a known direction.
func (d SwapDirection) Valid() bool {
	return d == SwapAToB || d == SwapBToA
}
