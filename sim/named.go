package sim

// A Named object is an object that has a name.
type Named interface {
	Name() string
}

// NameMustBeValid panics if the name is not usable as a component name.
func NameMustBeValid(name string) {
	if name == "" {
		panic("name must not be empty")
	}
}
