package shipping

// axis identifies one package side.
type axis int

const (
	axisLength axis = iota
	axisWidth
	axisHeight
)

// axisCursor tracks which side absorbs the next stacked unit under the sum
// policy. It advances only when a value is added to the current side, not
// when a side is replaced by a larger value.
type axisCursor struct {
	current axis
}

func (c *axisCursor) advance() {
	switch c.current {
	case axisLength:
		c.current = axisWidth
	case axisWidth:
		c.current = axisHeight
	default:
		c.current = axisLength
	}
}

// accumulate folds one unit's converted side value into the package
// dimension. The first contribution to an empty side sets it directly. An
// item's first unit never grows a side, it only takes the max; stacked
// units beyond the first add on the rotating side and advance the cursor,
// or take the max on any other side.
func (c *axisCursor) accumulate(side axis, acc *float64, value float64, stacked bool) {
	switch {
	case *acc == 0:
		*acc = value
	case stacked && c.current == side:
		*acc += value
		c.advance()
	case *acc < value:
		*acc = value
	}
}

// PackingPolicy selects how item dimensions aggregate into the package.
type PackingPolicy struct {
	// UseBiggerBox assumes every item fits the largest single item's
	// bounding box per axis instead of the stacking approximation.
	UseBiggerBox bool
}

// BuildPackage folds the cart items into a single package: weight is the
// sum of converted unit weights times quantity, dimensions follow the
// packing policy. Items without weight or dimensions contribute nothing.
func BuildPackage(items []CartItem, policy PackingPolicy) Package {
	pkg := Package{
		Weight: Measure{Unit: "g"},
		Dimensions: PackageDimensions{
			Length: Measure{Unit: "cm"},
			Width:  Measure{Unit: "cm"},
			Height: Measure{Unit: "cm"},
		},
	}

	cursor := &axisCursor{}
	for _, item := range items {
		if w := Grams(item.Weight); w > 0 {
			pkg.Weight.Value += w * float64(item.Quantity)
		}
		if item.Dimensions == nil {
			continue
		}

		sides := []struct {
			axis    axis
			measure *Measure
			acc     *float64
		}{
			{axisLength, item.Dimensions.Length, &pkg.Dimensions.Length.Value},
			{axisWidth, item.Dimensions.Width, &pkg.Dimensions.Width.Value},
			{axisHeight, item.Dimensions.Height, &pkg.Dimensions.Height.Value},
		}
		for _, side := range sides {
			value := Centimeters(side.measure)
			if value <= 0 {
				continue
			}
			if policy.UseBiggerBox {
				if *side.acc < value {
					*side.acc = value
				}
				continue
			}
			for i := 0; i < item.Quantity; i++ {
				cursor.accumulate(side.axis, side.acc, value, i > 0)
			}
		}
	}

	return pkg
}

// DeclaredValue computes the monetary value submitted to the carrier for
// liability. An explicit cart subtotal is used verbatim; otherwise the item
// prices accumulate. Zero when the merchant disabled value declaration.
func DeclaredValue(items []CartItem, subtotal float64, noDeclare bool) float64 {
	if noDeclare {
		return 0
	}
	if subtotal > 0 {
		return subtotal
	}
	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}
