package stash

// Category is a canonical resource category held in storage.
type Category string

const (
	RestrictedGood Category = "restricted_good"
	CleanFunds     Category = "clean_funds"
	DirtyFunds     Category = "dirty_funds"
)

// Class groups categories by how the policy treats them.
type Class string

const (
	ClassGoods Class = "goods"
	ClassFunds Class = "funds"
)

// ClassOf reports the class of c. Only the two money categories are funds.
func ClassOf(c Category) Class {
	if c == CleanFunds || c == DirtyFunds {
		return ClassFunds
	}

	return ClassGoods
}

// IsFunds is a shorthand for ClassOf(c) == ClassFunds.
func (c Category) IsFunds() bool {
	return ClassOf(c) == ClassFunds
}

// BuiltinCategories are present in every storage, even when zero.
func BuiltinCategories() []Category {
	return []Category{RestrictedGood, CleanFunds, DirtyFunds}
}
